package profile

import (
	"math"
	"os"

	"gopkg.in/ini.v1"

	"github.com/lightroast/rawdev/pkg/pmath"
)

// Exposure compensation below this magnitude is treated as absent, so
// an explicit "Compensation=0" line doesn't force the exposure stage on.
const exposureEpsilon = 1e-4

// Parse turns settings text into an AdjustmentSet. Worst case is the
// all-default set; this function has no failure mode.
func Parse(text string) AdjustmentSet {
	adj := AdjustmentSet{}
	if text == "" {
		return adj
	}

	f, err := ini.Load([]byte(text))
	if err != nil {
		return adj
	}

	// Tone keys live in [Exposure], but are accepted unscoped too.
	if v, ok := lookup(f, "Exposure", "Compensation"); ok && math.Abs(v) > exposureEpsilon {
		adj.Exposure = Adjustment{Value: v, Set: true}
	}
	if v, ok := lookup(f, "Exposure", "Black"); ok && v != 0 {
		adj.Black = Adjustment{Value: pmath.Clamp(v, 0, 0.95), Set: true}
	}
	if v, ok := lookup(f, "Exposure", "Shadows"); ok && v != 0 {
		adj.Shadows = Adjustment{Value: pmath.Clamp(v, -100, 100), Set: true}
	}

	if v, ok := lookup(f, "Luminance Curve", "Chromaticity"); ok && v != 0 {
		adj.ChromaCurve = Adjustment{Value: v, Set: true}
	}
	if v, ok := lookup(f, "Color appearance", "Chroma"); ok && v != 0 {
		adj.Chroma = Adjustment{Value: v, Set: true}
	}
	if v, ok := lookup(f, "Color appearance", "Contrast"); ok && v != 0 {
		adj.Contrast = Adjustment{Value: v, Set: true}
	}

	iters, ok := lookup(f, "Sharpening", "DeconvIterations")
	if !ok {
		// Older profiles wrote the iteration count under this name.
		iters, ok = lookup(f, "Sharpening", "Deconviter")
	}
	if ok && iters > 0 {
		adj.Sharpen.Iterations = int(pmath.Clamp(iters, 1, 30))
		adj.Sharpen.Enabled = true

		adj.Sharpen.Amount = 100
		if v, ok := lookup(f, "Sharpening", "DeconvAmount"); ok {
			adj.Sharpen.Amount = pmath.Clamp(v, 0, 200)
		}
		if v, ok := lookup(f, "Sharpening", "DeconvDamping"); ok {
			adj.Sharpen.Damping = pmath.Clamp(v, 0, 100)
		}
		adj.Sharpen.Radius = 0.75
		if v, ok := lookup(f, "Sharpening", "DeconvRadius"); ok {
			adj.Sharpen.Radius = pmath.Clamp(v, 0.05, 5.0)
		}
	}

	return adj
}

// Load reads a settings file. A missing or unreadable file yields the
// all-default set, same as an empty profile.
func Load(path string) AdjustmentSet {
	b, err := os.ReadFile(path)
	if err != nil {
		return AdjustmentSet{}
	}
	return Parse(string(b))
}

// lookup finds a key in the named section, falling back to the
// unscoped (default) section. Malformed numbers read as absent.
func lookup(f *ini.File, section, key string) (float64, bool) {
	for _, name := range []string{section, ini.DefaultSection} {
		s := f.Section(name)
		if !s.HasKey(key) {
			continue
		}
		v, err := s.Key(key).Float64()
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
