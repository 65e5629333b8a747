package pcolor

import "github.com/lightroast/rawdev/pkg/pmath"

// ApplyWhiteBalance scales the camera-native channels by the
// per-channel multipliers the unpacker reported. After this the color
// is camera-neutral, not yet camera-independent.
func ApplyWhiteBalance(rgb pmath.Vec3, mul pmath.Vec3) pmath.Vec3 {
	return pmath.Vec3{rgb[0] * mul[0], rgb[1] * mul[1], rgb[2] * mul[2]}
}

// CameraToSRGB composes the full camera->sRGB conversion from a
// camera->XYZ(D50) matrix, including the D50->D65 adaptation, then
// row-normalizes so camera white stays white.
func CameraToSRGB(camToXYZ pmath.Mat3) pmath.Mat3 {
	return XYZD50ToSRGBMat.Mult(camToXYZ).NormalizeRows()
}
