package develop

// Orientation normalization: map the sensor-reported flip code to a
// standard EXIF orientation, then bake the geometric transform into
// the packed buffer exactly once. Double application corrupts
// orientation, so only the orchestrator calls this, at the end of a
// develop call.

// flipToEXIF maps LibRaw-style flip codes (0..7) to EXIF orientation
// (1..8). The flip value is a bitfield - 1 mirrors, 2 flips
// vertically, 4 transposes - which lines up with EXIF like so:
var flipToEXIF = [8]int{1, 2, 4, 3, 5, 8, 6, 7}

// ExifFromFlip converts a sensor flip code; out-of-range codes read
// as identity.
func ExifFromFlip(flip int) int {
	if flip < 0 || flip > 7 {
		return 1
	}
	return flipToEXIF[flip]
}

// Normalize applies the EXIF orientation to the packed buffer,
// swapping width/height exactly when the code is a 90-degree-class
// transform (5..8).
//
// suppress180OnPortrait is the workaround for an upstream quirk:
// some sensors report a 180-degree rotation on frames that are
// already portrait, which would turn them upside down. When set,
// code 3 on a portrait buffer is treated as identity.
func Normalize(p *PackedImage, exif int, suppress180OnPortrait bool) {
	if exif <= 1 || exif > 8 {
		return
	}
	if exif == 3 && suppress180OnPortrait && p.Height > p.Width {
		return
	}

	w, h := p.Width, p.Height
	dstW, dstH := w, h
	if exif >= 5 {
		dstW, dstH = h, w
	}

	// src returns the source coordinates feeding destination (x, y).
	var src func(x, y int) (int, int)
	switch exif {
	case 2: // mirror horizontal
		src = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotate 180
		src = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // mirror vertical
		src = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transpose
		src = func(x, y int) (int, int) { return y, x }
	case 6: // rotate 90 CW
		src = func(x, y int) (int, int) { return y, h - 1 - x }
	case 7: // transverse
		src = func(x, y int) (int, int) { return w - 1 - y, h - 1 - x }
	case 8: // rotate 90 CCW
		src = func(x, y int) (int, int) { return w - 1 - y, x }
	}

	out := make([]uint8, len(p.Pix))
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			sx, sy := src(x, y)
			si := (sy*w + sx) * 4
			di := (y*dstW + x) * 4
			copy(out[di:di+4], p.Pix[si:si+4])
		}
	}

	p.Pix = out
	p.Width, p.Height = dstW, dstH
}
