package develop

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/lightroast/rawdev/pkg/demosaic"
	"github.com/lightroast/rawdev/pkg/pmath"
	"github.com/lightroast/rawdev/pkg/rawio"
)

type stubUnpacker struct {
	frame *rawio.SensorFrame
	err   error
	calls int
}

func (s *stubUnpacker) Unpack(path string, halfSize bool) (*rawio.SensorFrame, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.frame, nil
}

// flatFrame builds an RGGB frame whose every photosite reads v, with
// neutral metadata so the frame develops to flat gray v.
func flatFrame(w, h int, v float64) *rawio.SensorFrame {
	f := &rawio.SensorFrame{
		Width:        w,
		Height:       h,
		Mosaic:       make([]float64, w*h),
		CFA:          rawio.NewBayerCFA([2][2]uint8{{rawio.Red, rawio.Green}, {rawio.Green, rawio.Blue}}),
		White:        1.0,
		CamToXYZ:     pmath.Identity(),
		WhiteBalance: pmath.Vec3{1, 1, 1},
	}
	for i := range f.Mosaic {
		f.Mosaic[i] = v
	}
	return f
}

func newTestDeveloper(u rawio.Unpacker) *Developer {
	d := NewDeveloper(u)
	d.Config.Verbosity = 0
	return d
}

func TestPreviewIsHalfSize(t *testing.T) {
	u := &stubUnpacker{frame: flatFrame(8, 6, 0.5)}
	d := newTestDeveloper(u)

	out, err := d.Develop(Request{Path: "x.pgm", Mode: Preview, Job: "j1"})
	if err != nil {
		t.Fatalf("develop: %v", err)
	}
	if out.Width != 4 || out.Height != 3 {
		t.Errorf("preview of 8x6 should be 4x3, got %dx%d", out.Width, out.Height)
	}
}

func TestFullIsFullSize(t *testing.T) {
	u := &stubUnpacker{frame: flatFrame(8, 6, 0.5)}
	d := newTestDeveloper(u)

	out, err := d.Develop(Request{Path: "x.pgm", Mode: Full, Job: "j1"})
	if err != nil {
		t.Fatalf("develop: %v", err)
	}
	if out.Width != 8 || out.Height != 6 {
		t.Errorf("full render should keep 8x6, got %dx%d", out.Width, out.Height)
	}
}

func TestFullBakesFlipIntoDimensions(t *testing.T) {
	f := flatFrame(8, 6, 0.5)
	f.Flip = 6 // sensor says rotate 90 CW
	d := newTestDeveloper(&stubUnpacker{frame: f})

	out, err := d.Develop(Request{Path: "x.pgm", Mode: Full, Job: "j1"})
	if err != nil {
		t.Fatalf("develop: %v", err)
	}
	if out.Width != 6 || out.Height != 8 {
		t.Errorf("90-degree flip should swap dims, got %dx%d", out.Width, out.Height)
	}
}

func TestPreviewAutoExposureIsSticky(t *testing.T) {
	u := &stubUnpacker{frame: flatFrame(8, 6, 0.25)}
	d := newTestDeveloper(u)
	req := Request{Path: "x.pgm", Mode: Preview, Job: "j1"}

	first, err := d.Develop(req)
	if err != nil {
		t.Fatalf("develop: %v", err)
	}
	if _, ok := d.Session.Baseline(req.Path, req.Job); !ok {
		t.Fatal("first preview should cache an auto-exposure baseline")
	}
	// A dim frame gets lifted well past its raw brightness.
	if first.Pix[0] <= encode8(0.3) {
		t.Errorf("auto exposure should brighten a 0.25 frame, got %d", first.Pix[0])
	}

	// Force the cached baseline to zero; a re-render must honor the
	// cache instead of recomputing, so it comes out darker.
	d.Session.SetBaseline(req.Path, req.Job, 0)
	second, err := d.Develop(req)
	if err != nil {
		t.Fatalf("redevelop: %v", err)
	}
	if second.Pix[0] >= first.Pix[0] {
		t.Errorf("cached zero baseline should render darker: first %d, second %d",
			first.Pix[0], second.Pix[0])
	}
}

func TestFullHasNoAutoExposure(t *testing.T) {
	u := &stubUnpacker{frame: flatFrame(8, 6, 0.25)}
	d := newTestDeveloper(u)

	out, err := d.Develop(Request{Path: "x.pgm", Mode: Full, Job: "j1"})
	if err != nil {
		t.Fatalf("develop: %v", err)
	}
	want := encode8(0.25)
	if diff := int(out.Pix[0]) - int(want); diff < -1 || diff > 1 {
		t.Errorf("full render should stay at raw brightness %d, got %d", want, out.Pix[0])
	}
}

func xtransFrame(w, h int, v float64) *rawio.SensorFrame {
	tile := [6][6]uint8{
		{1, 2, 1, 1, 0, 1},
		{0, 1, 0, 2, 1, 2},
		{1, 2, 1, 1, 0, 1},
		{1, 0, 1, 1, 2, 1},
		{2, 1, 2, 0, 1, 0},
		{1, 0, 1, 1, 2, 1},
	}
	f := &rawio.SensorFrame{
		Width:        w,
		Height:       h,
		Mosaic:       make([]float64, w*h),
		CFA:          rawio.NewXTransCFA(tile),
		White:        1.0,
		CamToXYZ:     pmath.Identity(),
		WhiteBalance: pmath.Vec3{1, 1, 1},
	}
	for i := range f.Mosaic {
		f.Mosaic[i] = v
	}
	return f
}

func TestPreviewDemosaicsAndDownsamplesXTrans(t *testing.T) {
	u := &stubUnpacker{frame: xtransFrame(12, 12, 0.5)}
	d := newTestDeveloper(u)

	out, err := d.Develop(Request{Path: "x.pgm", Mode: Preview, Job: "j1"})
	if err != nil {
		t.Fatalf("develop: %v", err)
	}
	// 6x6 patterns go through the full demosaic, then a 2x2 downsample.
	if out.Width != 6 || out.Height != 6 {
		t.Errorf("preview of 12x12 should be 6x6, got %dx%d", out.Width, out.Height)
	}

	// Flat gray survives demosaic and downsample; auto exposure then
	// lifts it to the configured target.
	want := encode8(d.Config.AutoExposeTarget)
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			if diff := int(out.Pix[i+c]) - int(want); diff < -2 || diff > 2 {
				t.Fatalf("pixel %d channel %d: got %d, want about %d", i/4, c, out.Pix[i+c], want)
			}
		}
	}
}

// End-to-end through the concrete unpacker: a vendor-style XYZ->cam
// matrix in the sidecar must be inverted on the way in, and the
// composed color transform must keep camera white neutral.
func TestDevelopFullThroughPlainUnpacker(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P5\n4 4\n65535\n")
	for i := 0; i < 16; i++ {
		buf.WriteByte(0x80)
		buf.WriteByte(0x00)
	}
	path := filepath.Join(dir, "mosaic.pgm")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write pgm: %v", err)
	}

	sidecar := `
white: 65535
cfa_period: 2
cfa:
  - [0, 1]
  - [1, 2]
xyz_to_cam: [1.2, -0.2, 0, -0.1, 1.3, -0.2, 0.1, -0.3, 1.2]
white_balance: [1, 1, 1]
`
	if err := os.WriteFile(path+".yaml", []byte(sidecar), 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	d := newTestDeveloper(rawio.PlainUnpacker{})
	out, err := d.Develop(Request{Path: path, Mode: Full, Job: "j1"})
	if err != nil {
		t.Fatalf("develop: %v", err)
	}
	if out.Width != 4 || out.Height != 4 {
		t.Fatalf("got %dx%d, want 4x4", out.Width, out.Height)
	}

	// 0x8000/65535 of flat gray, and row normalization guarantees
	// R=G=B regardless of the matrix.
	want := encode8(float64(0x8000) / 65535.0)
	for i := 0; i < len(out.Pix); i += 4 {
		r, g, b := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
		if r != g || g != b {
			t.Fatalf("pixel %d not neutral: (%d,%d,%d)", i/4, r, g, b)
		}
		if diff := int(r) - int(want); diff < -1 || diff > 1 {
			t.Fatalf("pixel %d: got %d, want about %d", i/4, r, want)
		}
	}
}

// writeContainerWithJPEG writes a file that is garbage except for one
// embedded JPEG, the shape a RAW container takes when only its
// preview is recoverable.
func writeContainerWithJPEG(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), "container.raw")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer fh.Close()

	if _, err := fh.Write([]byte("not a decodable mosaic......")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := jpeg.Encode(fh, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := fh.Write([]byte("....trailer....")); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestUnpackFailureFallsBackToEmbeddedPreview(t *testing.T) {
	path := writeContainerWithJPEG(t, 16, 12)
	d := newTestDeveloper(&stubUnpacker{err: errors.New("vendor decoder exploded")})

	out, err := d.Develop(Request{Path: path, Mode: Full, Job: "j1"})
	if err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	if out.Width != 16 || out.Height != 12 {
		t.Errorf("full fallback keeps preview size, got %dx%d", out.Width, out.Height)
	}
}

func TestDemosaicFailureFallsBackToEmbeddedPreview(t *testing.T) {
	path := writeContainerWithJPEG(t, 16, 12)

	f := flatFrame(12, 12, 0.5)
	f.CFA = rawio.NewXTransCFA([6][6]uint8{}) // 6x6 period forces the bridge
	d := newTestDeveloper(&stubUnpacker{frame: f})
	d.Bridge = demosaic.NewEmptyBridge()

	out, err := d.Develop(Request{Path: path, Mode: Preview, Job: "j1"})
	if err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	if out.Width != 8 || out.Height != 6 {
		t.Errorf("preview fallback halves the preview, got %dx%d", out.Width, out.Height)
	}
}

func TestNoImageWhenNothingRecoverable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.raw")
	if err := os.WriteFile(path, []byte("no markers in here at all"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := newTestDeveloper(&stubUnpacker{err: errors.New("vendor decoder exploded")})
	_, err := d.Develop(Request{Path: path, Mode: Preview, Job: "j1"})
	if !errors.Is(err, ErrNoImage) {
		t.Errorf("want ErrNoImage, got %v", err)
	}
}

func TestProgressEventsCarryJobID(t *testing.T) {
	u := &stubUnpacker{frame: flatFrame(8, 6, 0.5)}
	d := newTestDeveloper(u)

	var events []Event
	d.Sink = SinkFunc(func(e Event) { events = append(events, e) })

	if _, err := d.Develop(Request{Path: "x.pgm", Mode: Preview, Job: "render-42"}); err != nil {
		t.Fatalf("develop: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected progress events")
	}
	if events[0].Phase != "unpack" {
		t.Errorf("first event should be the unpack phase, got %q", events[0].Phase)
	}
	for _, e := range events {
		if e.Job != "render-42" {
			t.Errorf("event %s/%s carries job %q", e.Phase, e.Step, e.Job)
		}
	}
}
