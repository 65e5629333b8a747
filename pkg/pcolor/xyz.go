package pcolor

import "github.com/lightroast/rawdev/pkg/pmath"

var (
	// Linear sRGB(D65) -> XYZ(D65), per the reference sRGB primaries.
	// http://www.brucelindbloom.com/index.html?Eqn_RGB_XYZ_Matrix.html
	SRGBToXYZMat = pmath.Mat3{
		0.4124564, 0.3575761, 0.1804375,
		0.2126729, 0.7151522, 0.0721750,
		0.0193339, 0.1191920, 0.9503041,
	}

	// XYZ(D65) -> linear sRGB(D65), the inverse of the above.
	XYZToSRGBMat = pmath.Mat3{
		3.2404542, -1.5371385, -0.4985314,
		-0.9692660, 1.8760108, 0.0415560,
		0.0556434, -0.2040259, 1.0572252,
	}

	// XYZ(D50) -> linear sRGB(D65).
	//
	// Camera forward matrices land in XYZ(D50), but sRGB output
	// assumes D65, so this bundles in the chromatic adaptation.
	// Most XYZ->sRGB matrices on the web ignore the change of
	// reference white, and come out looking wrong.
	XYZD50ToSRGBMat = pmath.Mat3{
		3.1338561, -1.6168667, -0.4906146,
		-0.9787684, 1.9161415, 0.0334540,
		0.0719453, -0.2289914, 1.4052427,
	}
)

// RGBToXYZ maps linear sRGB to XYZ(D65).
func RGBToXYZ(rgb pmath.Vec3) pmath.Vec3 {
	return SRGBToXYZMat.Apply(rgb)
}

// XYZToRGB maps XYZ(D65) back to linear sRGB.
func XYZToRGB(xyz pmath.Vec3) pmath.Vec3 {
	return XYZToSRGBMat.Apply(xyz)
}
