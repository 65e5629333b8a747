package pmath

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// A Plane is a grid of floats, one value per pixel. The develop
// pipeline keeps one Plane per color channel, and the sharpen engine
// allocates a few more for its intermediate estimates.
type Plane struct {
	stride int
	values []float64
}

func NewPlane(w, h int) *Plane {
	return &Plane{
		stride: w,
		values: make([]float64, w*h),
	}
}

// WrapPlane makes a Plane over an existing slice, sharing storage.
func WrapPlane(w, h int, values []float64) *Plane {
	return &Plane{stride: w, values: values}
}

func (p *Plane) Set(x, y int, v float64) { p.values[p.stride*y+x] = v }
func (p *Plane) Get(x, y int) float64    { return p.values[p.stride*y+x] }
func (p *Plane) Dx() int                 { return p.stride }
func (p *Plane) Dy() int                 { return len(p.values) / p.stride }
func (p *Plane) Values() []float64       { return p.values }

func (p *Plane) Copy() *Plane {
	q := Plane{stride: p.stride, values: make([]float64, len(p.values))}
	copy(q.values, p.values)
	return &q
}

// BoxBlur3 runs three passes of a separable box blur of the given
// radius, a standard O(N) approximation of a Gaussian. Edge samples
// are replicated. A radius below 1 leaves the plane untouched.
func (p *Plane) BoxBlur3(radius int) {
	if radius < 1 {
		return
	}
	tmp := NewPlane(p.Dx(), p.Dy())
	for pass := 0; pass < 3; pass++ {
		p.boxBlurH(tmp, radius)
		tmp.boxBlurV(p, radius)
	}
}

// boxBlurH writes a horizontally blurred copy of p into dst, using a
// moving sum so cost is independent of radius.
func (p *Plane) boxBlurH(dst *Plane, radius int) {
	w, h := p.Dx(), p.Dy()
	norm := 1.0 / float64(2*radius+1)

	for y := 0; y < h; y++ {
		sum := float64(radius+1) * p.Get(0, y)
		for x := 1; x <= radius; x++ {
			sum += p.Get(clampi(x, w), y)
		}
		for x := 0; x < w; x++ {
			dst.Set(x, y, sum*norm)
			sum += p.Get(clampi(x+radius+1, w), y)
			sum -= p.Get(clampi(x-radius, w), y)
		}
	}
}

func (p *Plane) boxBlurV(dst *Plane, radius int) {
	w, h := p.Dx(), p.Dy()
	norm := 1.0 / float64(2*radius+1)

	for x := 0; x < w; x++ {
		sum := float64(radius+1) * p.Get(x, 0)
		for y := 1; y <= radius; y++ {
			sum += p.Get(x, clampi(y, h))
		}
		for y := 0; y < h; y++ {
			dst.Set(x, y, sum*norm)
			sum += p.Get(x, clampi(y+radius+1, h))
			sum -= p.Get(x, clampi(y-radius, h))
		}
	}
}

func clampi(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (p *Plane) Stats() string {
	min := math.MaxFloat64
	max := -1.0 * min

	for i := 0; i < len(p.values); i++ {
		if p.values[i] > max {
			max = p.values[i]
		}
		if p.values[i] < min {
			min = p.values[i]
		}
	}
	return fmt.Sprintf("plane[%dx%d, vals{%f,%f}]", p.Dx(), p.Dy(), min, max)
}

// ToImg saves a simple grayscale, based on the range of values in the plane,
// and gamma scaling the gray to look normal for human vision
func (p *Plane) ToImg(title, filename string) {
	min, max := 1000.0, -1000.0
	for i := 0; i < len(p.values); i++ {
		if p.values[i] > max {
			max = p.values[i]
		}
		if p.values[i] < min {
			min = p.values[i]
		}
	}
	if max <= min {
		max = min + 1
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{p.Dx(), p.Dy()}})
	for x := 0; x < p.Dx(); x++ {
		for y := 0; y < p.Dy(); y++ {
			gray := GammaExpand_F64((p.Get(x, y) - min) / (max - min))
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 50, 50)
	dc.SavePNG(filename)
}
