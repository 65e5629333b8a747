package pcolor

import (
	"math"

	"github.com/lightroast/rawdev/pkg/pmath"
)

// D65 reference white, for the Lab transform.
var refWhite = pmath.Vec3{0.95047, 1.00000, 1.08883}

const (
	labEpsilon = 216.0 / 24389.0 // (6/29)^3
	labKappa   = 24389.0 / 27.0
)

// XYZToLab is the standard CIE 1976 transform: cube root above the
// epsilon threshold, linear fallback below. L is in [0,100].
func XYZToLab(xyz pmath.Vec3) (l, a, b float64) {
	fx := labF(xyz[0] / refWhite[0])
	fy := labF(xyz[1] / refWhite[1])
	fz := labF(xyz[2] / refWhite[2])

	l = 116.0*fy - 16.0
	a = 500.0 * (fx - fy)
	b = 200.0 * (fy - fz)
	return
}

// LabToXYZ undoes XYZToLab.
func LabToXYZ(l, a, b float64) pmath.Vec3 {
	fy := (l + 16.0) / 116.0
	fx := fy + a/500.0
	fz := fy - b/200.0

	return pmath.Vec3{
		labFInv(fx) * refWhite[0],
		labFInv(fy) * refWhite[1],
		labFInv(fz) * refWhite[2],
	}
}

func labF(t float64) float64 {
	if t > labEpsilon {
		return math.Cbrt(t)
	}
	return (labKappa*t + 16.0) / 116.0
}

func labFInv(f float64) float64 {
	if f3 := f * f * f; f3 > labEpsilon {
		return f3
	}
	return (116.0*f - 16.0) / labKappa
}
