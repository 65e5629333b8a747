package demosaic

import "fmt"

// Bilinear is the 2x2-pattern reference algorithm: each missing color
// is the average of the same-color photosites in the surrounding 3x3
// neighborhood, with clamped (edge-replicated) lookups. It works for
// any 2x2 tile, not just RGGB.
type Bilinear struct{}

func (Bilinear) Demosaic(in Input) (r, g, b []float64, err error) {
	if in.Mosaic == nil {
		return nil, nil, nil, fmt.Errorf("bilinear: no mosaic plane")
	}
	w, h := in.Width, in.Height
	if len(in.Mosaic) != w*h {
		return nil, nil, nil, fmt.Errorf("bilinear: mosaic is %d samples, want %d", len(in.Mosaic), w*h)
	}

	out := [3][]float64{
		make([]float64, w*h),
		make([]float64, w*h),
		make([]float64, w*h),
	}

	px := func(x, y int) (float64, uint8) {
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return in.Mosaic[y*w+x], in.CFA.At(x, y)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			var sum [3]float64
			var n [3]int

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					v, c := px(x+dx, y+dy)
					sum[c] += v
					n[c]++
				}
			}

			// The photosite's own color is exact, not averaged.
			own := in.CFA.At(x, y)
			out[own][i] = in.Mosaic[i]
			for c := 0; c < 3; c++ {
				if uint8(c) == own {
					continue
				}
				if n[c] > 0 {
					out[c][i] = sum[c] / float64(n[c])
				}
			}
		}
	}

	return out[0], out[1], out[2], nil
}
