package develop

import (
	"errors"
	"fmt"
	"image"
	"log"

	xdraw "golang.org/x/image/draw"

	"github.com/lightroast/rawdev/pkg/demosaic"
	"github.com/lightroast/rawdev/pkg/pcolor"
	"github.com/lightroast/rawdev/pkg/pmath"
	"github.com/lightroast/rawdev/pkg/profile"
	"github.com/lightroast/rawdev/pkg/rawio"
)

// ErrNoImage means nothing could be rendered at all: the container
// was unreadable and no embedded preview was recoverable. It is the
// only hard failure a caller has to handle.
var ErrNoImage = errors.New("develop: no image could be rendered")

// Mode selects the render path.
type Mode int

const (
	Preview Mode = iota // half-resolution, auto-exposed, fast
	Full                // full-resolution, color managed, authoritative
)

// A Request is one develop call. Adjustments arrive fresh every time
// as settings text; nothing is persisted between calls except the
// session's auto-exposure baselines.
type Request struct {
	Path     string
	Settings string
	Mode     Mode
	Job      string // opaque, used only to tag progress events
}

// A Developer sequences the pipeline stages. It holds no per-request
// state and may be invoked concurrently from multiple workers for
// independent requests; the only cross-request state is the Session.
type Developer struct {
	Unpacker rawio.Unpacker
	Bridge   *demosaic.Bridge
	Config   Config
	Session  *Session
	Sink     Sink
}

func NewDeveloper(u rawio.Unpacker) *Developer {
	return &Developer{
		Unpacker: u,
		Bridge:   demosaic.NewBridge(),
		Config:   NewConfig(),
		Session:  NewSession(),
		Sink:     NopSink,
	}
}

func (d *Developer) report(job, phase, step string, iter, total int) {
	d.Sink.Report(Event{Job: job, Phase: phase, Step: step, Iteration: iter, Total: total})
}

// logPlaneStats prints per-plane ranges at high verbosity, the cheap
// way to see where a render went off the rails.
func (d *Developer) logPlaneStats(label string, im *LinearImage) {
	if d.Config.Verbosity < 2 {
		return
	}
	for _, pl := range []struct {
		name   string
		values []float64
	}{{"R", im.R}, {"G", im.G}, {"B", im.B}} {
		log.Printf("%s %s: %s", label, pl.name, pmath.WrapPlane(im.Width, im.Height, pl.values).Stats())
	}
}

// Develop runs one request to completion on the calling worker.
// There is no cancellation; a superseded request can only be ignored
// by its consumer via job-id filtering.
func (d *Developer) Develop(req Request) (*PackedImage, error) {
	adj := profile.Parse(req.Settings)

	d.report(req.Job, "unpack", "decode", 0, 0)
	frame, err := d.Unpacker.Unpack(req.Path, req.Mode == Preview)
	if err != nil {
		if d.Config.Verbosity > 0 {
			log.Printf("unpack %s failed (%v), trying embedded preview", req.Path, err)
		}
		return d.developFromPreview(req, adj)
	}

	switch req.Mode {
	case Preview:
		return d.developPreview(req, adj, frame)
	default:
		return d.developFull(req, adj, frame)
	}
}

// developPreview is the fast path: reduced-scale decode, sticky
// auto-exposure, scaled-radius sharpening. No camera color
// management - the full render is authoritative for color.
func (d *Developer) developPreview(req Request, adj profile.AdjustmentSet, frame *rawio.SensorFrame) (*PackedImage, error) {
	var im *LinearImage

	if frame.CFA.Period == 2 {
		// 2x2 tiles collapse straight to a half-size RGB image; no
		// demosaic needed.
		d.report(req.Job, "demosaic", "superpixel", 0, 0)
		im = superpixelHalf(frame)
	} else {
		d.report(req.Job, "demosaic", "interpolate", 0, 0)
		r, g, b, err := d.Bridge.Demosaic(frame)
		if err != nil {
			if d.Config.Verbosity > 0 {
				log.Printf("demosaic %s failed (%v), using embedded preview", req.Path, err)
			}
			return d.developFromPreview(req, adj)
		}
		im = &LinearImage{Width: frame.Width, Height: frame.Height, R: r, G: g, B: b}
		im = im.DownSample()
	}

	d.report(req.Job, "tone", "adjust", 0, 0)
	bias, ok := d.Session.Baseline(req.Path, req.Job)
	if !ok {
		bias = AutoExposureBias(im, d.Config)
		d.Session.SetBaseline(req.Path, req.Job, bias)
	}
	ApplyTone(im, adj, bias)
	d.logPlaneStats("toned", im)

	d.sharpen(req, adj, im, 0.5)

	return d.finish(req, adj, im, ExifFromFlip(frame.Flip))
}

// developFull is the authoritative path: full decode, white balance
// and camera matrix, no auto-exposure bias.
func (d *Developer) developFull(req Request, adj profile.AdjustmentSet, frame *rawio.SensorFrame) (*PackedImage, error) {
	d.report(req.Job, "demosaic", "interpolate", 0, 0)
	r, g, b, err := d.Bridge.Demosaic(frame)
	if err != nil {
		if d.Config.Verbosity > 0 {
			log.Printf("demosaic %s failed (%v), using embedded preview", req.Path, err)
		}
		return d.developFromPreview(req, adj)
	}
	im := &LinearImage{Width: frame.Width, Height: frame.Height, R: r, G: g, B: b}
	d.logPlaneStats("demosaiced", im)

	d.report(req.Job, "tone", "colormatrix", 0, 0)
	applyCameraColor(im, frame)
	d.logPlaneStats("color managed", im)

	d.sharpen(req, adj, im, 1.0)

	d.report(req.Job, "tone", "adjust", 0, 0)
	ApplyTone(im, adj, 0)

	return d.finish(req, adj, im, ExifFromFlip(frame.Flip))
}

// developFromPreview is the degraded path: when unpack or demosaic
// can't produce planes, develop the largest embedded raster instead.
// Some image always beats no image.
func (d *Developer) developFromPreview(req Request, adj profile.AdjustmentSet) (*PackedImage, error) {
	d.report(req.Job, "fallback", "extract", 0, 0)
	pv, err := rawio.ExtractLargestPreview(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}

	src := pv.Image
	if req.Mode == Preview {
		src = halfScale(src)
	}
	im := linearFromImage(src)

	d.report(req.Job, "tone", "adjust", 0, 0)
	var bias float64
	if req.Mode == Preview {
		var ok bool
		if bias, ok = d.Session.Baseline(req.Path, req.Job); !ok {
			bias = AutoExposureBias(im, d.Config)
			d.Session.SetBaseline(req.Path, req.Job, bias)
		}
	}
	ApplyTone(im, adj, bias)

	// The preview carries its own EXIF orientation, no flip mapping.
	return d.finish(req, adj, im, pv.Orientation)
}

// finish is the shared tail of every path: pack to 8-bit, appearance
// edits, orientation. Orientation is baked exactly once, here.
func (d *Developer) finish(req Request, adj profile.AdjustmentSet, im *LinearImage, exif int) (*PackedImage, error) {
	d.report(req.Job, "pack", "encode", 0, 0)
	packed := im.Pack()

	d.report(req.Job, "appearance", "lab", 0, 0)
	ApplyAppearance(packed, adj)

	d.report(req.Job, "orient", "normalize", 0, 0)
	Normalize(packed, exif, d.Config.Suppress180OnPortrait)

	return packed, nil
}

func (d *Developer) sharpen(req Request, adj profile.AdjustmentSet, im *LinearImage, radiusScale float64) {
	if !adj.Sharpen.Enabled {
		return
	}
	Sharpen(im, adj.Sharpen, radiusScale, func(iter, total int) {
		d.report(req.Job, "sharpen", "iterate", iter, total)
	})

	if d.Config.DumpPlanes {
		luma := pmath.NewPlane(im.Width, im.Height)
		lv := luma.Values()
		for i := range lv {
			lv[i] = 0.2126*im.R[i] + 0.7152*im.G[i] + 0.0722*im.B[i]
		}
		luma.ToImg("sharpened luminance", fmt.Sprintf("sharpen-%s.png", req.Job))
	}
}

// applyCameraColor white balances and color corrects camera-native
// planes into linear sRGB, the DNG way: per-channel multipliers, then
// the composed camera->sRGB matrix.
func applyCameraColor(im *LinearImage, frame *rawio.SensorFrame) {
	m := pcolor.CameraToSRGB(frame.CamToXYZ)
	for i := 0; i < im.Width*im.Height; i++ {
		v := pcolor.ApplyWhiteBalance(pmath.Vec3{im.R[i], im.G[i], im.B[i]}, frame.WhiteBalance)
		v = m.Apply(v)
		// Color matrices push near-black pixels slightly negative;
		// clip before they underflow into bright garbage downstream.
		v.FloorAt(0)
		v.CeilingAt(1)
		im.R[i], im.G[i], im.B[i] = v[0], v[1], v[2]
	}
}

// superpixelHalf collapses each 2x2 CFA tile into one RGB pixel,
// averaging where the tile has two sites of the same color.
func superpixelHalf(frame *rawio.SensorFrame) *LinearImage {
	norm := frame.NormalizedMosaic()
	w, h := frame.Width/2, frame.Height/2
	im := NewLinearImage(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [3]float64
			var n [3]int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					sx, sy := 2*x+dx, 2*y+dy
					c := frame.CFA.At(sx, sy)
					sum[c] += norm[sy*frame.Width+sx]
					n[c]++
				}
			}
			i := y*w + x
			if n[0] > 0 {
				im.R[i] = sum[0] / float64(n[0])
			}
			if n[1] > 0 {
				im.G[i] = sum[1] / float64(n[1])
			}
			if n[2] > 0 {
				im.B[i] = sum[2] / float64(n[2])
			}
		}
	}
	return im
}

// linearFromImage decodes an 8-bit sRGB image into linear planes.
func linearFromImage(src image.Image) *LinearImage {
	b := src.Bounds()
	im := NewLinearImage(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := src.At(x, y).RGBA()
			im.R[i] = pcolor.SRGBToLinear(float64(r) / 65535.0)
			im.G[i] = pcolor.SRGBToLinear(float64(g) / 65535.0)
			im.B[i] = pcolor.SRGBToLinear(float64(bb) / 65535.0)
			i++
		}
	}
	return im
}

// halfScale resamples an image to half size.
func halfScale(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx()/2, b.Dy()/2
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
