package develop

import (
	"math"

	"github.com/lightroast/rawdev/pkg/pmath"
	"github.com/lightroast/rawdev/pkg/profile"
)

// The sharpen engine is a Richardson-Lucy style deconvolution on a
// derived luminance plane: repeatedly blur the estimate, compare it
// to the target, and correct multiplicatively. The final estimate is
// folded back into R,G,B as a per-pixel gain, so color is untouched.
// This is the most expensive stage in the pipeline and the only one
// with observable intermediate progress.

const sharpenEpsilon = 1e-5

// minimum effective radius; anything at or below this is a no-op
const sharpenMinRadius = 0.05

// Sharpen runs the deconvolution in place. radiusScale shrinks the
// blur radius on reduced-scale renders so previews match the full
// render. onIteration, if non-nil, is invoked after each pass with
// (iteration, total), 1-based.
func Sharpen(im *LinearImage, p profile.Sharpen, radiusScale float64, onIteration func(iter, total int)) {
	radius := p.Radius * radiusScale
	if !p.Enabled || p.Iterations <= 0 || p.Amount <= 0 || radius <= sharpenMinRadius {
		return
	}
	boxRadius := int(math.Round(radius))

	// Target luminance, BT.709 weights.
	target := pmath.NewPlane(im.Width, im.Height)
	tv := target.Values()
	for i := 0; i < im.Width*im.Height; i++ {
		tv[i] = 0.2126*im.R[i] + 0.7152*im.G[i] + 0.0722*im.B[i]
	}

	estimate := target.Copy()
	ev := estimate.Values()

	damping := p.Damping / 100.0
	lo, hi := 1.0-damping, 1.0+damping

	ratio := pmath.NewPlane(im.Width, im.Height)
	rv := ratio.Values()

	for it := 1; it <= p.Iterations; it++ {
		blurred := estimate.Copy()
		blurred.BoxBlur3(boxRadius)
		bv := blurred.Values()

		for i := range rv {
			r := tv[i] / (bv[i] + sharpenEpsilon)
			if damping > 0 {
				r = pmath.Clamp(r, lo, hi)
			}
			rv[i] = r
		}

		// The kernel is symmetric, so the same blur serves as its own
		// transpose when diffusing the correction.
		ratio.BoxBlur3(boxRadius)

		for i := range ev {
			ev[i] = pmath.Clamp(ev[i]*rv[i], 0, 1)
		}

		if onIteration != nil {
			onIteration(it, p.Iterations)
		}
	}

	// Fold the sharpened luminance back in as a multiplicative gain.
	strength := math.Min(2.0, p.Amount/100.0)
	for i := 0; i < im.Width*im.Height; i++ {
		gain := 1.0 + (ev[i]/(tv[i]+sharpenEpsilon)-1.0)*strength
		gain = pmath.Clamp(gain, 0, 4)
		im.R[i] = pmath.Clamp(im.R[i]*gain, 0, 1)
		im.G[i] = pmath.Clamp(im.G[i]*gain, 0, 1)
		im.B[i] = pmath.Clamp(im.B[i]*gain, 0, 1)
	}
}
