// Package profile parses the INI-like develop settings text into a
// typed AdjustmentSet. The format is a small subset of the processing
// profiles raw editors write out: [Section] headers, Key=Value lines,
// # comments. Unknown keys are ignored, malformed values fall back to
// the field default, and a missing or empty profile just means "no
// adjustments" - parsing never fails.
package profile

// An Adjustment is a single optional develop parameter. Set
// distinguishes "explicitly present in the profile" from "absent";
// an unset adjustment turns its pipeline stage into a no-op.
type Adjustment struct {
	Value float64
	Set   bool
}

// Sharpen holds the Richardson-Lucy deconvolution parameters. Unlike
// the scalar adjustments, enabling sharpening without the sub-keys
// does not mean zero: a profile that names an iteration count but
// omits the rest gets Amount 100 and Radius 0.75, the values raw
// editors write by default. Damping alone defaults to 0 (off).
type Sharpen struct {
	Iterations int     // [1,30]
	Amount     float64 // percent, [0,200]
	Damping    float64 // percent, [0,100]
	Radius     float64 // pixels, [0.05,5.0]
	Enabled    bool
}

// An AdjustmentSet is everything a single develop call can ask for.
// It is built once per call and never mutated.
type AdjustmentSet struct {
	Exposure Adjustment // stops (EV)
	Black    Adjustment // linear black point, [0,1]
	Shadows  Adjustment // [-100,100]

	ChromaCurve Adjustment // [Luminance Curve] Chromaticity, percent
	Chroma      Adjustment // [Color appearance] Chroma, percent
	Contrast    Adjustment // [Color appearance] Contrast, percent

	Sharpen Sharpen
}

// NoOp reports whether every stage would leave the image untouched.
func (a AdjustmentSet) NoOp() bool {
	return !a.Exposure.Set && !a.Black.Set && !a.Shadows.Set &&
		!a.ChromaCurve.Set && !a.Chroma.Set && !a.Contrast.Set &&
		!a.Sharpen.Enabled
}
