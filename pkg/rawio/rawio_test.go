package rawio

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/lightroast/rawdev/pkg/pmath"
)

func TestCFAPeriodicity(t *testing.T) {
	cfa := NewBayerCFA([2][2]uint8{{Red, Green}, {Green, Blue}})

	cases := []struct {
		x, y int
		want uint8
	}{
		{0, 0, Red}, {1, 0, Green}, {0, 1, Green}, {1, 1, Blue},
		{2, 0, Red}, {0, 2, Red}, {3, 3, Blue}, {101, 100, Green},
	}
	for _, c := range cases {
		if got := cfa.At(c.x, c.y); got != c.want {
			t.Errorf("At(%d,%d) = %d, want %d", c.x, c.y, got, c.want)
		}
	}
}

func TestNormalizedMosaicBlackAndWhite(t *testing.T) {
	f := &SensorFrame{
		Width:  2,
		Height: 2,
		Mosaic: []float64{600, 600, 600, 600},
		CFA:    NewBayerCFA([2][2]uint8{{Red, Green}, {Green, Blue}}),
		Black:  [4]float64{100, 100, 100, 350},
		White:  1100,
	}

	norm := f.NormalizedMosaic()
	// Three sites share black 100: (600-100)/(1100-100) = 0.5.
	for _, i := range []int{0, 1, 3} {
		if math.Abs(norm[i]-0.5) > 1e-12 {
			t.Errorf("site %d: got %g, want 0.5", i, norm[i])
		}
	}
	// The second green (odd row) uses the fourth black level:
	// (600-350)/(1100-350) = 1/3.
	if math.Abs(norm[2]-250.0/750.0) > 1e-12 {
		t.Errorf("second green: got %g, want %g", norm[2], 250.0/750.0)
	}
}

func TestNormalizedPlanesAreSparse(t *testing.T) {
	f := &SensorFrame{
		Width:  2,
		Height: 2,
		Mosaic: []float64{1, 1, 1, 1},
		CFA:    NewBayerCFA([2][2]uint8{{Red, Green}, {Green, Blue}}),
		White:  1,
	}

	planes := f.NormalizedPlanes()
	if planes[Red][0] != 1 || planes[Red][1] != 0 || planes[Red][2] != 0 || planes[Red][3] != 0 {
		t.Errorf("red plane wrong: %v", planes[Red])
	}
	if planes[Green][1] != 1 || planes[Green][2] != 1 || planes[Green][0] != 0 {
		t.Errorf("green plane wrong: %v", planes[Green])
	}
	if planes[Blue][3] != 1 || planes[Blue][0] != 0 {
		t.Errorf("blue plane wrong: %v", planes[Blue])
	}
}

func writePGM(t *testing.T, dir string, w, h int, samples []uint16) string {
	t.Helper()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P5\n%d %d\n65535\n", w, h)
	for _, s := range samples {
		buf.WriteByte(byte(s >> 8))
		buf.WriteByte(byte(s))
	}
	path := filepath.Join(dir, "mosaic.pgm")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write pgm: %v", err)
	}
	return path
}

func TestPlainUnpackerRoundTrip(t *testing.T) {
	samples := []uint16{1000, 2000, 3000, 4000, 5000, 6000}
	path := writePGM(t, t.TempDir(), 3, 2, samples)

	sidecar := `
black: [64, 64, 64, 64]
white: 16383
cfa_period: 2
cfa:
  - [0, 1]
  - [1, 2]
white_balance: [2.1, 1.0, 1.5]
flip: 6
`
	if err := os.WriteFile(path+".yaml", []byte(sidecar), 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	f, err := PlainUnpacker{}.Unpack(path, false)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if f.Width != 3 || f.Height != 2 {
		t.Errorf("got %dx%d, want 3x2", f.Width, f.Height)
	}
	for i, s := range samples {
		if f.Mosaic[i] != float64(s) {
			t.Errorf("sample %d: got %g, want %d", i, f.Mosaic[i], s)
		}
	}
	if f.White != 16383 || f.Black[0] != 64 {
		t.Errorf("levels not carried: white %g, black %v", f.White, f.Black)
	}
	if f.CFA.At(1, 1) != Blue {
		t.Errorf("cfa not carried: At(1,1) = %d", f.CFA.At(1, 1))
	}
	if f.WhiteBalance[0] != 2.1 || f.Flip != 6 {
		t.Errorf("metadata not carried: wb %v, flip %d", f.WhiteBalance, f.Flip)
	}
}

func TestPlainUnpackerInvertsColorMatrix(t *testing.T) {
	path := writePGM(t, t.TempDir(), 2, 2, []uint16{100, 100, 100, 100})

	// Vendor metadata reports XYZ -> camera; the frame wants the
	// forward direction.
	sidecar := `
white: 65535
cfa_period: 2
cfa:
  - [0, 1]
  - [1, 2]
xyz_to_cam: [2, 0, 0, 0, 1, 0, 1, 0, 4]
`
	if err := os.WriteFile(path+".yaml", []byte(sidecar), 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	f, err := PlainUnpacker{}.Unpack(path, false)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}

	xyzToCam := pmath.Mat3{2, 0, 0, 0, 1, 0, 1, 0, 4}
	round := f.CamToXYZ.Mult(xyzToCam)
	want := pmath.Identity()
	for i := range round {
		if math.Abs(round[i]-want[i]) > 1e-12 {
			t.Fatalf("cam_to_xyz is not the inverse: got %v", f.CamToXYZ)
		}
	}
}

func TestPlainUnpackerRejectsSingularColorMatrix(t *testing.T) {
	path := writePGM(t, t.TempDir(), 2, 2, []uint16{100, 100, 100, 100})

	sidecar := `
cfa_period: 2
cfa:
  - [0, 1]
  - [1, 2]
xyz_to_cam: [1, 0, 0, 0, 1, 0, 1, 0, 0]
`
	if err := os.WriteFile(path+".yaml", []byte(sidecar), 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
	if _, err := (PlainUnpacker{}).Unpack(path, false); err == nil {
		t.Error("want an error for a singular xyz_to_cam")
	}
}

func TestPlainUnpackerDefaultsWithoutSidecar(t *testing.T) {
	path := writePGM(t, t.TempDir(), 2, 2, []uint16{65535, 65535, 65535, 65535})

	f, err := PlainUnpacker{}.Unpack(path, false)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if f.White != 65535 || f.CFA.Period != 2 {
		t.Errorf("defaults wrong: white %g, period %d", f.White, f.CFA.Period)
	}
	if f.WhiteBalance != (pmath.Vec3{1, 1, 1}) {
		t.Errorf("default white balance should be neutral, got %v", f.WhiteBalance)
	}
	if norm := f.NormalizedMosaic(); norm[0] != 1 {
		t.Errorf("full-scale sample should normalize to 1, got %g", norm[0])
	}
}

func TestPlainUnpackerRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pgm")
	if err := os.WriteFile(path, []byte("P6 not what you want"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := (PlainUnpacker{}).Unpack(path, false); err == nil {
		t.Error("want an error for a non-P5 file")
	}
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: 90, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestExtractLargestPreviewPicksBiggest(t *testing.T) {
	small := encodeJPEG(t, 8, 8)
	big := encodeJPEG(t, 32, 24)

	var container bytes.Buffer
	container.WriteString("RAWCONTAINERHEADER..")
	container.Write(small)
	container.WriteString("..gap..")
	container.Write(big)
	container.WriteString("..tail..")

	path := filepath.Join(t.TempDir(), "container.raw")
	if err := os.WriteFile(path, container.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	pv, err := ExtractLargestPreview(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	b := pv.Image.Bounds()
	if b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("got %dx%d, want the 32x24 stream", b.Dx(), b.Dy())
	}
	if pv.Orientation != 1 {
		t.Errorf("stream has no EXIF, orientation should read 1, got %d", pv.Orientation)
	}
}

func TestExtractLargestPreviewNoRaster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.raw")
	if err := os.WriteFile(path, []byte("nothing embedded here"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractLargestPreview(path); err == nil {
		t.Error("want an error when no stream exists")
	}
}
