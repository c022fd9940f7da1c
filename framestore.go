package lcdif

import "fmt"

// FrameStore owns the two frame buffers and tracks which one is scanned out
// (Front) and which one is being composed (Back).
//
// Both buffers have the same fixed size for the lifetime of the store.
// Swap only exchanges roles; it never copies pixels.
type FrameStore struct {
	slots  [2]Buffer
	back   int
	width  int
	height int
	bpp    int
}

// NewFrameStore allocates two zeroed width×height buffers of bpp bytes per
// pixel. Slot 0 starts as Front.
//
// Failure to allocate either buffer is fatal for the device and is reported
// as ErrOutOfMemory.
func NewFrameStore(a Allocator, width, height, bpp int) (*FrameStore, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("lcdif: invalid frame size %dx%d: %w", width, height, ErrInvalidArgument)
	}
	if bpp < 2 || bpp > 4 {
		return nil, fmt.Errorf("lcdif: unsupported %d bytes per pixel: %w", bpp, ErrNotSupported)
	}
	s := &FrameStore{back: 1, width: width, height: height, bpp: bpp}
	n := s.Size()
	for i := range s.slots {
		b, err := a.Alloc(n)
		if err != nil {
			Logger().Error("lcdif: could not allocate frame buffer", "index", i, "bytes", n, "err", err)
			return nil, fmt.Errorf("lcdif: could not allocate frame buffer %d: %w", i, asOutOfMemory(err))
		}
		if len(b.Pix) < n {
			return nil, fmt.Errorf("lcdif: frame buffer %d is %d bytes, want %d: %w", i, len(b.Pix), n, ErrOutOfMemory)
		}
		b.Pix = b.Pix[:n]
		clear(b.Pix)
		s.slots[i] = b
	}
	return s, nil
}

// Front returns the buffer currently selected, or about to be selected, for
// scan-out.
func (s *FrameStore) Front() Buffer {
	return s.slots[1-s.back]
}

// Back returns the buffer being composed.
func (s *FrameStore) Back() Buffer {
	return s.slots[s.back]
}

// Swap exchanges the Front and Back roles.
func (s *FrameStore) Swap() {
	s.back = 1 - s.back
}

// Size returns the size of one frame buffer in bytes.
func (s *FrameStore) Size() int {
	return s.width * s.height * s.bpp
}

// Stride returns the size of one panel row in bytes.
func (s *FrameStore) Stride() int {
	return s.width * s.bpp
}
