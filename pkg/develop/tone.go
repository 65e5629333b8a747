package develop

import (
	"math"

	"github.com/codahale/hdrhistogram"

	"github.com/lightroast/rawdev/pkg/pmath"
	"github.com/lightroast/rawdev/pkg/profile"
)

// ApplyTone runs the linear tone operations in order: exposure,
// black-point lift, shadow lift. extraEV is the auto-exposure bias;
// it adds to any user compensation, never replaces it. Each
// operation is skipped when its adjustment is absent.
func ApplyTone(im *LinearImage, adj profile.AdjustmentSet, extraEV float64) {
	ev := extraEV
	if adj.Exposure.Set {
		ev += adj.Exposure.Value
	}
	if ev != 0 {
		ApplyExposure(im, ev)
	}
	if adj.Black.Set {
		ApplyBlack(im, adj.Black.Value)
	}
	if adj.Shadows.Set {
		ApplyShadows(im, adj.Shadows.Value)
	}
}

// ApplyExposure multiplies every sample by 2^ev, clamping to [0,1].
func ApplyExposure(im *LinearImage, ev float64) {
	gain := math.Exp2(ev)
	for _, plane := range [][]float64{im.R, im.G, im.B} {
		for i, v := range plane {
			plane[i] = pmath.Clamp(v*gain, 0, 1)
		}
	}
}

// ApplyBlack lifts the black point: bp maps to 0 and 1 stays at 1.
func ApplyBlack(im *LinearImage, bp float64) {
	bp = pmath.Clamp(bp, 0, 0.95)
	scale := 1.0 / (1.0 - bp)
	for _, plane := range [][]float64{im.R, im.G, im.B} {
		for i, v := range plane {
			plane[i] = math.Max(0, v-bp) * scale
		}
	}
}

// ApplyShadows lifts the shadows with the sample's own value as a
// cheap local luminance proxy: v + s*(1-v)*v. Applied per channel
// independently, not on a derived luminance plane.
func ApplyShadows(im *LinearImage, amount float64) {
	s := amount / 100.0
	for _, plane := range [][]float64{im.R, im.G, im.B} {
		for i, v := range plane {
			plane[i] = pmath.Clamp(v+s*(1.0-v)*v, 0, 1)
		}
	}
}

const autoExposeBins = 1024

// AutoExposureBias computes the EV needed to pull the image's bright
// end up to a target: build a luma histogram, find the configured
// percentile, and gain it to the target brightness. The gain is
// clamped so a pathological frame can't swing more than a few stops.
func AutoExposureBias(im *LinearImage, cfg Config) float64 {
	h := hdrhistogram.New(1, autoExposeBins, 3)
	for i := 0; i < im.Width*im.Height; i++ {
		luma := 0.2126*im.R[i] + 0.7152*im.G[i] + 0.0722*im.B[i]
		bin := int64(pmath.Clamp(luma, 0, 1)*float64(autoExposeBins-1)) + 1
		h.RecordValue(bin)
	}

	val := float64(h.ValueAtQuantile(cfg.AutoExposePercentile)-1) / float64(autoExposeBins-1)
	if val <= 0 {
		return 0
	}

	gain := pmath.Clamp(cfg.AutoExposeTarget/val, cfg.AutoExposeMinGain, cfg.AutoExposeMaxGain)
	return math.Log2(gain)
}
