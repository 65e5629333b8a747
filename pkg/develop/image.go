// Package develop is the numeric develop pipeline: tone, sharpening,
// perceptual color edits, orientation, and the orchestration that
// turns one unpacked sensor frame into one finished 8-bit image.
package develop

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/lightroast/rawdev/pkg/pcolor"
	"github.com/lightroast/rawdev/pkg/pmath"
)

// A LinearImage is three float planes in [0,1] linear light. Exactly
// one is live per develop call; the tone and sharpen stages mutate it
// in place.
type LinearImage struct {
	Width, Height int
	R, G, B       []float64
}

func NewLinearImage(w, h int) *LinearImage {
	return &LinearImage{
		Width:  w,
		Height: h,
		R:      make([]float64, w*h),
		G:      make([]float64, w*h),
		B:      make([]float64, w*h),
	}
}

// Implement image.Image
func (im *LinearImage) ColorModel() color.Model { return hdrcolor.RGBModel }
func (im *LinearImage) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{im.Width, im.Height}}
}
func (im *LinearImage) At(x, y int) color.Color { return im.HDRAt(x, y) }

// Implement hdr.Image, so debug dumps can go straight to an .hdr file
func (im *LinearImage) HDRAt(x, y int) hdrcolor.Color {
	i := y*im.Width + x
	return hdrcolor.RGB{R: im.R[i], G: im.G[i], B: im.B[i]}
}
func (im *LinearImage) Size() int { return im.Width * im.Height }

// WriteHDR dumps the linear planes as a Radiance RGBE file, handy for
// eyeballing the pipeline state before the 8-bit pack.
func (im *LinearImage) WriteHDR(filename string) error {
	w, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("write hdr, open+w '%s': %v", filename, err)
	}
	defer w.Close()
	return rgbe.Encode(w, im)
}

// DownSample returns an image 1/4 the size, averaging 2x2 blocks.
func (im *LinearImage) DownSample() *LinearImage {
	w, h := im.Width/2, im.Height/2
	out := NewLinearImage(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i00 := (2*y)*im.Width + 2*x
			i01 := i00 + 1
			i10 := i00 + im.Width
			i11 := i10 + 1
			o := y*w + x
			out.R[o] = (im.R[i00] + im.R[i01] + im.R[i10] + im.R[i11]) / 4.0
			out.G[o] = (im.G[i00] + im.G[i01] + im.G[i10] + im.G[i11]) / 4.0
			out.B[o] = (im.B[i00] + im.B[i01] + im.B[i10] + im.B[i11]) / 4.0
		}
	}
	return out
}

// Pack sRGB-encodes the linear planes into a PackedImage. This
// happens once per develop call; everything after it works on 8-bit.
func (im *LinearImage) Pack() *PackedImage {
	p := NewPackedImage(im.Width, im.Height)
	for i := 0; i < im.Width*im.Height; i++ {
		p.Pix[4*i+0] = encode8(im.R[i])
		p.Pix[4*i+1] = encode8(im.G[i])
		p.Pix[4*i+2] = encode8(im.B[i])
		p.Pix[4*i+3] = 0xFF
	}
	return p
}

func encode8(v float64) uint8 {
	return uint8(pmath.Clamp(pcolor.LinearToSRGB(pmath.Clamp(v, 0, 1)), 0, 1)*255.0 + 0.5)
}

// A PackedImage is the terminal artifact: interleaved 8-bit sRGB
// RGBA, alpha constant 0xFF. The appearance and orientation stages
// mutate it in place.
type PackedImage struct {
	Width, Height int
	Pix           []uint8
}

func NewPackedImage(w, h int) *PackedImage {
	return &PackedImage{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
}

// Implement image.Image, so the standard encoders take it directly
func (p *PackedImage) ColorModel() color.Model { return color.NRGBAModel }
func (p *PackedImage) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{p.Width, p.Height}}
}
func (p *PackedImage) At(x, y int) color.Color {
	i := (y*p.Width + x) * 4
	return color.NRGBA{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: p.Pix[i+3]}
}
