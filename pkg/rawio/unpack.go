package rawio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/lightroast/rawdev/pkg/pmath"
)

// An Unpacker turns a RAW container file into a SensorFrame. Vendor
// formats live behind this interface; the pipeline never looks inside
// a container itself. halfSize asks for a reduced-scale decode where
// the implementation supports one; implementations that don't may
// return the full mosaic.
type Unpacker interface {
	Unpack(path string, halfSize bool) (*SensorFrame, error)
}

// sidecar is the YAML metadata that rides alongside a plain mosaic
// file: everything a vendor container would normally carry. Camera
// color can arrive either way round: cam_to_xyz is the forward
// matrix, xyz_to_cam is the ColorMatrix as vendor metadata reports it
// (XYZ -> camera native) and gets inverted during unpack. When both
// are present, xyz_to_cam wins.
type sidecar struct {
	Black        [4]float64 `yaml:"black"`
	White        float64    `yaml:"white"`
	CFAPeriod    int        `yaml:"cfa_period"`
	CFA          [][]uint8  `yaml:"cfa"`
	CamToXYZ     [9]float64 `yaml:"cam_to_xyz"`
	XYZToCam     [9]float64 `yaml:"xyz_to_cam"`
	WhiteBalance [3]float64 `yaml:"white_balance"`
	Flip         int        `yaml:"flip"`
}

// PlainUnpacker reads a mosaic stored as a 16-bit binary PGM with a
// YAML sidecar (<path>.yaml) holding the camera metadata. It exists
// so the CLI and the tests have a concrete Unpacker without dragging
// a vendor RAW decoder into the module.
type PlainUnpacker struct{}

func (PlainUnpacker) Unpack(path string, halfSize bool) (*SensorFrame, error) {
	w, h, samples, err := readPGM16(path)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %v", path, err)
	}

	sc := sidecar{White: 65535, WhiteBalance: [3]float64{1, 1, 1}, CFAPeriod: 2}
	sc.CamToXYZ = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	if b, err := os.ReadFile(path + ".yaml"); err == nil {
		if err := yaml.Unmarshal(b, &sc); err != nil {
			return nil, fmt.Errorf("unpack %s: bad sidecar: %v", path, err)
		}
	}

	f := &SensorFrame{
		Width:  w,
		Height: h,
		Mosaic: make([]float64, len(samples)),
		Black:  sc.Black,
		White:  sc.White,
		Flip:   sc.Flip,
	}
	for i, s := range samples {
		f.Mosaic[i] = float64(s)
	}

	copy(f.CamToXYZ[:], sc.CamToXYZ[:])
	if sc.XYZToCam != ([9]float64{}) {
		var xyzToCam pmath.Mat3
		copy(xyzToCam[:], sc.XYZToCam[:])
		if f.CamToXYZ, err = xyzToCam.Inverse(); err != nil {
			return nil, fmt.Errorf("unpack %s: xyz_to_cam: %v", path, err)
		}
	}
	f.WhiteBalance = pmath.Vec3{sc.WhiteBalance[0], sc.WhiteBalance[1], sc.WhiteBalance[2]}

	f.CFA = CFA{Period: sc.CFAPeriod}
	if f.CFA.Period != 2 && f.CFA.Period != 6 {
		return nil, fmt.Errorf("unpack %s: cfa_period %d not supported", path, sc.CFAPeriod)
	}
	for y, row := range sc.CFA {
		for x, c := range row {
			if y < 6 && x < 6 {
				f.CFA.Colors[y][x] = c
			}
		}
	}

	// The plain format has no half-size decode of its own; the
	// orchestrator reduces scale downstream.
	_ = halfSize

	return f, nil
}

// readPGM16 reads a binary (P5) 16-bit-per-sample PGM file.
func readPGM16(path string) (int, int, []uint16, error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, err
	}
	defer fh.Close()

	r := bufio.NewReader(fh)

	var magic string
	var w, h, maxval int
	if _, err := fmt.Fscan(r, &magic, &w, &h, &maxval); err != nil {
		return 0, 0, nil, fmt.Errorf("pgm header: %v", err)
	}
	if magic != "P5" || maxval > 65535 {
		return 0, 0, nil, fmt.Errorf("not a 16-bit P5 pgm (magic %q, maxval %d)", magic, maxval)
	}
	if _, err := r.ReadByte(); err != nil { // single whitespace after header
		return 0, 0, nil, err
	}

	buf := make([]byte, w*h*2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, 0, nil, fmt.Errorf("pgm samples: %v", err)
	}

	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = uint16(buf[2*i])<<8 | uint16(buf[2*i+1]) // big-endian, per the PGM spec
	}
	return w, h, samples, nil
}
