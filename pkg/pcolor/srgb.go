// Package pcolor holds the pure color math the develop pipeline leans
// on: the sRGB transfer curve, the fixed sRGB/D65 primaries, the CIE
// 1976 Lab transform, and camera-matrix handling. Everything here is
// stateless; callers are responsible for clamping their inputs.
package pcolor

import "math"

// SRGBToLinear decodes the standard sRGB transfer curve: a linear
// segment near black, power law above.
func SRGBToLinear(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// LinearToSRGB is the encode direction of the same curve.
func LinearToSRGB(v float64) float64 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1.0/2.4) - 0.055
}
