package rawio

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// A Preview is a raster recovered from inside a RAW container, plus
// the EXIF orientation it claims for itself.
type Preview struct {
	Image       image.Image
	Orientation int // EXIF 1..8; 1 when unknown
}

// ExtractLargestPreview scans a container for embedded JPEG streams
// and decodes the one with the largest pixel area. RAW containers
// routinely carry two or three (thumbnail, screen-size, sometimes
// full-size); we always want the biggest. Returns an error only when
// no decodable raster exists at all.
func ExtractLargestPreview(path string) (*Preview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %v", path, err)
	}

	best := -1
	var bestSeg []byte

	for start := 0; start+4 < len(data); {
		i := indexSOI(data, start)
		if i < 0 {
			break
		}
		seg := data[i:]
		if end := indexEOI(seg); end > 0 {
			seg = seg[:end+2]
		}

		if cfg, err := jpeg.DecodeConfig(bytes.NewReader(seg)); err == nil {
			if area := cfg.Width * cfg.Height; area > best {
				best = area
				bestSeg = seg
			}
		}
		start = i + 2
	}

	if bestSeg == nil {
		return nil, fmt.Errorf("preview %s: no embedded raster found", path)
	}

	img, err := jpeg.Decode(bytes.NewReader(bestSeg))
	if err != nil {
		return nil, fmt.Errorf("preview %s: decode: %v", path, err)
	}

	return &Preview{Image: img, Orientation: readOrientation(bestSeg)}, nil
}

// indexSOI finds the next JPEG start-of-image marker at or after `from`.
func indexSOI(data []byte, from int) int {
	for i := from; i+3 < len(data); i++ {
		if data[i] == 0xFF && data[i+1] == 0xD8 && data[i+2] == 0xFF {
			return i
		}
	}
	return -1
}

// indexEOI finds the end-of-image marker within a candidate stream.
func indexEOI(seg []byte) int {
	for i := 2; i+1 < len(seg); i++ {
		if seg[i] == 0xFF && seg[i+1] == 0xD9 {
			return i
		}
	}
	return -1
}

// readOrientation pulls the EXIF orientation tag out of a JPEG
// stream. Anything that goes wrong reads as 1 (identity).
func readOrientation(seg []byte) int {
	x, err := exif.Decode(bytes.NewReader(seg))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}
