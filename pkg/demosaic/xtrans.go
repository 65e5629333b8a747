package demosaic

import "fmt"

// XTrans is the 6x6-pattern reference algorithm. The 6x6 tile spaces
// red and blue photosites further apart than Bayer does, so a 3x3
// neighborhood isn't guaranteed to see every color; this uses a 5x5
// window with inverse-distance weighting instead.
type XTrans struct{}

func (XTrans) Demosaic(in Input) (r, g, b []float64, err error) {
	for c := 0; c < 3; c++ {
		if in.Planes[c] == nil {
			return nil, nil, nil, fmt.Errorf("xtrans: missing plane %d", c)
		}
		if len(in.Planes[c]) != in.Width*in.Height {
			return nil, nil, nil, fmt.Errorf("xtrans: plane %d is %d samples, want %d",
				c, len(in.Planes[c]), in.Width*in.Height)
		}
	}

	w, h := in.Width, in.Height
	out := [3][]float64{
		make([]float64, w*h),
		make([]float64, w*h),
		make([]float64, w*h),
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			own := in.CFA.At(x, y)

			for c := uint8(0); c < 3; c++ {
				if c == own {
					out[c][i] = in.Planes[c][i]
					continue
				}

				var sum, weight float64
				for dy := -2; dy <= 2; dy++ {
					for dx := -2; dx <= 2; dx++ {
						sx, sy := clamp(x+dx, w), clamp(y+dy, h)
						if in.CFA.At(sx, sy) != c {
							continue
						}
						d2 := float64(dx*dx + dy*dy)
						if d2 == 0 {
							d2 = 1
						}
						sum += in.Planes[c][sy*w+sx] / d2
						weight += 1 / d2
					}
				}
				if weight > 0 {
					out[c][i] = sum / weight
				}
			}
		}
	}

	return out[0], out[1], out[2], nil
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
