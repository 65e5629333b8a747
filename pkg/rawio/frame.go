// Package rawio is the boundary to the RAW-container world. The
// actual vendor-format unpacking is an external collaborator hidden
// behind the Unpacker interface; what crosses the boundary is a
// SensorFrame - the mosaic plus the camera metadata the develop
// pipeline needs. The package also knows how to fish the largest
// embedded preview raster out of a container, which is the pipeline's
// fallback when demosaicing is unavailable.
package rawio

import (
	"github.com/lightroast/rawdev/pkg/pmath"
)

// CFA color indices.
const (
	Red   = 0
	Green = 1
	Blue  = 2
)

// A CFA describes the repeating color-per-photosite pattern of the
// sensor: a 2x2 tile for Bayer sensors, a 6x6 tile for X-Trans style
// sensors.
type CFA struct {
	Period int // 2 or 6
	Colors [6][6]uint8
}

func NewBayerCFA(tile [2][2]uint8) CFA {
	c := CFA{Period: 2}
	c.Colors[0][0], c.Colors[0][1] = tile[0][0], tile[0][1]
	c.Colors[1][0], c.Colors[1][1] = tile[1][0], tile[1][1]
	return c
}

func NewXTransCFA(tile [6][6]uint8) CFA {
	return CFA{Period: 6, Colors: tile}
}

// At reports the color index of the photosite at (x, y).
func (c CFA) At(x, y int) uint8 {
	return c.Colors[y%c.Period][x%c.Period]
}

// A SensorFrame is one unpacked RAW mosaic plus the camera metadata
// needed to develop it. It is immutable once unpacked; the
// orchestrator owns it for the duration of one develop call.
type SensorFrame struct {
	Width, Height int

	// Raw photosite samples, row-major, one value per pixel. The CFA
	// says which color each sample is.
	Mosaic []float64

	CFA          CFA
	Black        [4]float64 // per-channel black level: R, G, B, second green
	White        float64    // single white level
	CamToXYZ     pmath.Mat3 // camera native -> XYZ(D50) forward matrix
	WhiteBalance pmath.Vec3 // per-channel multipliers, camera native
	Flip         int        // sensor-reported flip code, 0..7
}

// blackFor returns the black level for the photosite at (x, y),
// using the fourth entry for the second green site on Bayer sensors.
func (f *SensorFrame) blackFor(x, y int) float64 {
	c := f.CFA.At(x, y)
	if c == Green && f.CFA.Period == 2 && y%2 == 1 {
		return f.Black[3]
	}
	return f.Black[c]
}

// NormalizedMosaic returns the mosaic with black levels subtracted
// and samples scaled to [0,1] against the white level. This is the
// form the demosaic bridge
// expects for 2x2 patterns.
func (f *SensorFrame) NormalizedMosaic() []float64 {
	out := make([]float64, len(f.Mosaic))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			i := y*f.Width + x
			black := f.blackFor(x, y)
			scale := f.White - black
			if scale <= 0 {
				scale = 1
			}
			out[i] = pmath.Clamp((f.Mosaic[i]-black)/scale, 0, 1)
		}
	}
	return out
}

// NormalizedPlanes demultiplexes the normalized mosaic into three
// color planes, zero everywhere a photosite belongs to another color.
// This is the form the demosaic bridge expects for 6x6 patterns.
func (f *SensorFrame) NormalizedPlanes() [3][]float64 {
	var planes [3][]float64
	for c := 0; c < 3; c++ {
		planes[c] = make([]float64, len(f.Mosaic))
	}

	norm := f.NormalizedMosaic()
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			i := y*f.Width + x
			planes[f.CFA.At(x, y)][i] = norm[i]
		}
	}
	return planes
}
