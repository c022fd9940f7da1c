package lcdif

import "fmt"

// Region is a caller-supplied dirty rectangle in logical coordinates.
//
// Pix holds Height rows of Width pixels each, spaced Pitch pixels apart.
// len(Pix) is the declared buffer size and must be at least
// Height*Pitch*BytesPerPixel. The core never modifies Pix.
type Region struct {
	X, Y          int
	Width, Height int
	Pitch         int // In pixels; 0 means Width
	Pix           []byte

	// Addr is the bus address of Pix[0] when the pixels live in memory the
	// blit engine can read. Zero restricts the write to the CPU path.
	Addr uint32
}

// panel is the native geometry shared by both frame buffers.
type panel struct {
	w, h, bpp int
}

// validate checks r against the logical bounds ew×eh of the panel.
func (p panel) validate(r *Region, ew, eh int) error {
	if r.Pitch == 0 {
		r.Pitch = r.Width
	}
	switch {
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("lcdif: empty region %dx%d: %w", r.Width, r.Height, ErrInvalidArgument)
	case r.Pitch < r.Width:
		return fmt.Errorf("lcdif: pitch %d smaller than width %d: %w", r.Pitch, r.Width, ErrInvalidArgument)
	case r.X < 0 || r.Y < 0 || r.Width > ew-r.X || r.Height > eh-r.Y:
		return fmt.Errorf("lcdif: region %dx%d@%d,%d outside %dx%d: %w",
			r.Width, r.Height, r.X, r.Y, ew, eh, ErrInvalidArgument)
	case r.Pitch > len(r.Pix)/(r.Height*p.bpp):
		// Height is bounded by the panel here, so only Pitch can be huge.
		return fmt.Errorf("lcdif: input buffer too small: %d bytes for %d rows of pitch %d: %w",
			len(r.Pix), r.Height, r.Pitch, ErrInvalidArgument)
	}
	return nil
}

// fullFrame reports whether r covers the whole panel.
func (p panel) fullFrame(r *Region, o Orientation) bool {
	ew, eh := p.w, p.h
	if o.SwapsAxes() {
		ew, eh = eh, ew
	}
	return r.X == 0 && r.Y == 0 && r.Width == ew && r.Height == eh
}

// rotate copies the w×h block at region-local (i0, j0) of r into dst, a full
// panel buffer, under orientation o.
//
// The source is walked row-major. The destination index starts at the image
// of (i0, j0) and advances by the orientation's per-pixel and per-row steps,
// so at 90° and 270° a step along the source row moves one panel row.
func (p panel) rotate(dst []byte, o Orientation, r *Region, i0, j0, w, h int) {
	bpp := p.bpp
	col, row := o.MapPoint(r.X, r.Y, i0, j0, p.w, p.h)
	start := row*p.w + col
	srcStride := r.Pitch * bpp
	src := j0*srcStride + i0*bpp

	if o == Normal {
		n := w * bpp
		d := start * bpp
		for y := 0; y < h; y++ {
			copy(dst[d:d+n], r.Pix[src:src+n])
			src += srcStride
			d += p.w * bpp
		}
		return
	}

	stepPix, stepRow := o.steps(p.w)
	stepPix *= bpp
	for y := 0; y < h; y++ {
		d := (start + y*stepRow) * bpp
		s := src + y*srcStride
		for x := 0; x < w; x++ {
			copy(dst[d:d+bpp], r.Pix[s:s+bpp])
			d += stepPix
			s += bpp
		}
	}
}
