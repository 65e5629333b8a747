// Package demosaic dispatches sensor mosaics to a demosaic algorithm.
// Algorithms register themselves against a CFA tile period (2 for
// Bayer, 6 for X-Trans style); the Bridge resolves the right one for
// a frame and invokes it behind a uniform signature. When no
// algorithm is registered for a pattern the Bridge reports
// ErrUnavailable rather than failing hard - the orchestrator falls
// back to an embedded preview in that case.
package demosaic

import (
	"errors"
	"fmt"

	"github.com/lightroast/rawdev/pkg/rawio"
)

// ErrUnavailable means no demosaic algorithm is registered for the
// frame's CFA pattern shape.
var ErrUnavailable = errors.New("demosaic: no algorithm for this CFA pattern")

// Input is the uniform argument block every Demosaicer receives.
// 2x2-pattern algorithms read Mosaic; 6x6-pattern algorithms read the
// three pre-demultiplexed Planes. All samples are normalized [0,1].
type Input struct {
	Width, Height int
	CFA           rawio.CFA
	Mosaic        []float64
	Planes        [3][]float64
}

// A Demosaicer reconstructs three full-resolution linear planes from
// a one-color-per-photosite input.
type Demosaicer interface {
	Demosaic(in Input) (r, g, b []float64, err error)
}

// A Bridge resolves Demosaicers by CFA period. Resolution happens
// once per pattern shape; the registry map is the cache.
type Bridge struct {
	byPeriod map[int]Demosaicer
}

// NewBridge returns a bridge with the built-in reference algorithms
// registered: bilinear for 2x2 patterns, weighted-neighborhood for
// 6x6 patterns.
func NewBridge() *Bridge {
	b := &Bridge{byPeriod: map[int]Demosaicer{}}
	b.Register(2, Bilinear{})
	b.Register(6, XTrans{})
	return b
}

// NewEmptyBridge returns a bridge with nothing registered; every
// Demosaic call reports ErrUnavailable. Useful for exercising the
// fallback path.
func NewEmptyBridge() *Bridge {
	return &Bridge{byPeriod: map[int]Demosaicer{}}
}

// Register installs (or replaces) the algorithm for a tile period.
func (b *Bridge) Register(period int, d Demosaicer) {
	b.byPeriod[period] = d
}

// Demosaic normalizes the frame and runs the registered algorithm
// for its pattern shape.
func (b *Bridge) Demosaic(f *rawio.SensorFrame) (r, g, bl []float64, err error) {
	d, ok := b.byPeriod[f.CFA.Period]
	if !ok {
		return nil, nil, nil, ErrUnavailable
	}

	in := Input{Width: f.Width, Height: f.Height, CFA: f.CFA}
	switch f.CFA.Period {
	case 2:
		in.Mosaic = f.NormalizedMosaic()
	case 6:
		in.Planes = f.NormalizedPlanes()
	default:
		return nil, nil, nil, ErrUnavailable
	}

	r, g, bl, err = d.Demosaic(in)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("demosaic %dx%d pattern: %v", f.CFA.Period, f.CFA.Period, err)
	}
	return r, g, bl, nil
}
