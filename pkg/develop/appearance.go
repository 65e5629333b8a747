package develop

import (
	"math"

	"github.com/lightroast/rawdev/pkg/pcolor"
	"github.com/lightroast/rawdev/pkg/pmath"
	"github.com/lightroast/rawdev/pkg/profile"
)

// ApplyAppearance runs the Lab-space color and contrast edits on the
// packed buffer, in place. Each pixel is decoded 8-bit sRGB ->
// linear -> XYZ -> Lab, edited, and re-encoded. When none of the
// three edits is enabled the buffer is left byte-for-byte untouched;
// that check happens once, before the per-pixel loop.
func ApplyAppearance(p *PackedImage, adj profile.AdjustmentSet) {
	if !adj.ChromaCurve.Set && !adj.Chroma.Set && !adj.Contrast.Set {
		return
	}

	curveK := 1.0 + adj.ChromaCurve.Value/100.0
	chromaK := 1.0 + adj.Chroma.Value/100.0
	contrastK := 1.0 + adj.Contrast.Value/100.0

	for i := 0; i < p.Width*p.Height; i++ {
		o := 4 * i
		lin := pmath.Vec3{
			pcolor.SRGBToLinear(float64(p.Pix[o+0]) / 255.0),
			pcolor.SRGBToLinear(float64(p.Pix[o+1]) / 255.0),
			pcolor.SRGBToLinear(float64(p.Pix[o+2]) / 255.0),
		}
		l, a, b := pcolor.XYZToLab(pcolor.RGBToXYZ(lin))

		if adj.ChromaCurve.Set {
			a *= curveK
			b *= curveK
		}
		if adj.Chroma.Set {
			chroma := math.Hypot(a, b) * chromaK
			hue := math.Atan2(b, a)
			a = chroma * math.Cos(hue)
			b = chroma * math.Sin(hue)
		}
		if adj.Contrast.Set {
			l = pmath.Clamp((l-50.0)*contrastK+50.0, 0, 100)
		}

		out := pcolor.XYZToRGB(pcolor.LabToXYZ(l, a, b))
		out.FloorAt(0)
		out.CeilingAt(1)

		p.Pix[o+0] = uint8(pcolor.LinearToSRGB(out[0])*255.0 + 0.5)
		p.Pix[o+1] = uint8(pcolor.LinearToSRGB(out[1])*255.0 + 0.5)
		p.Pix[o+2] = uint8(pcolor.LinearToSRGB(out[2])*255.0 + 0.5)
	}
}
