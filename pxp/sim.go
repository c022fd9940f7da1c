package pxp

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/devices/v3/lcdif"
)

// Sim is an in-memory engine with the tile semantics of the PXP. It works on
// the CPU views of the surfaces, so it serves hosts without the hardware
// block and tests.
type Sim struct {
	// Latency is the number of Done polls reporting false after Start.
	Latency int
	// Stall keeps the operation from ever completing.
	Stall bool

	mu       sync.Mutex
	tile     int
	src, dst lcdif.Surface
	rot      lcdif.Orientation
	pending  int
	ops      int
}

var _ lcdif.Blitter = (*Sim)(nil)

// NewSim returns a simulated engine processing tile×tile blocks.
func NewSim(tile int) *Sim {
	return &Sim{tile: tile}
}

func (s *Sim) String() string {
	return fmt.Sprintf("pxp.Sim{%dx%d tiles}", s.tile, s.tile)
}

// Ops returns the number of completed operations.
func (s *Sim) Ops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops
}

// TileSize implements lcdif.Blitter.
func (s *Sim) TileSize() int {
	return s.tile
}

func (s *Sim) check(sf lcdif.Surface) error {
	if sf.Width <= 0 || sf.Height <= 0 || sf.Width%s.tile != 0 || sf.Height%s.tile != 0 {
		return fmt.Errorf("pxp: surface %dx%d is not a multiple of %d: %w",
			sf.Width, sf.Height, s.tile, lcdif.ErrInvalidArgument)
	}
	if bpp := sf.Format.BytesPerPixel(); bpp == 0 {
		return fmt.Errorf("pxp: pixel format %s: %w", sf.Format, lcdif.ErrNotSupported)
	}
	if need := (sf.Height-1)*sf.Pitch + sf.Width*sf.Format.BytesPerPixel(); len(sf.Pix) < need {
		return fmt.Errorf("pxp: surface view holds %d bytes, need %d: %w", len(sf.Pix), need, lcdif.ErrUnaddressable)
	}
	return nil
}

// SetSource implements lcdif.Blitter.
func (s *Sim) SetSource(sf lcdif.Surface) error {
	if err := s.check(sf); err != nil {
		return err
	}
	s.mu.Lock()
	s.src = sf
	s.mu.Unlock()
	return nil
}

// SetDest implements lcdif.Blitter.
func (s *Sim) SetDest(sf lcdif.Surface) error {
	if err := s.check(sf); err != nil {
		return err
	}
	s.mu.Lock()
	s.dst = sf
	s.mu.Unlock()
	return nil
}

// SetRotation implements lcdif.Blitter.
func (s *Sim) SetRotation(o lcdif.Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("pxp: orientation %s: %w", o, lcdif.ErrInvalidArgument)
	}
	s.mu.Lock()
	s.rot = o
	s.mu.Unlock()
	return nil
}

// Start implements lcdif.Blitter. The pixels are moved immediately; only the
// completion flag is delayed by Latency.
func (s *Sim) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dw, dh := s.src.Width, s.src.Height
	if s.rot.SwapsAxes() {
		dw, dh = dh, dw
	}
	if s.dst.Width != dw || s.dst.Height != dh {
		return fmt.Errorf("pxp: destination %dx%d does not match rotated source %dx%d",
			s.dst.Width, s.dst.Height, dw, dh)
	}
	if s.src.Pix == nil || s.dst.Pix == nil {
		return errors.New("pxp: surfaces not configured")
	}
	s.run()
	s.pending = s.Latency
	return nil
}

// run rotates the source into the destination tile by tile.
func (s *Sim) run() {
	src, dst, t := s.src, s.dst, s.tile
	sb, db := src.Format.BytesPerPixel(), dst.Format.BytesPerPixel()
	same := src.Format == dst.Format
	for ty := 0; ty < src.Height; ty += t {
		for tx := 0; tx < src.Width; tx += t {
			for j := ty; j < ty+t; j++ {
				for i := tx; i < tx+t; i++ {
					col, row := s.rot.MapPoint(0, 0, i, j, dst.Width, dst.Height)
					so := j*src.Pitch + i*sb
					do := row*dst.Pitch + col*db
					if same {
						copy(dst.Pix[do:do+db], src.Pix[so:so+sb])
					} else {
						dst.Format.Encode(dst.Pix[do:], src.Format.Decode(src.Pix[so:]))
					}
				}
			}
		}
	}
	s.ops++
}

// Done implements lcdif.Blitter.
func (s *Sim) Done() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Stall {
		return false, nil
	}
	if s.pending > 0 {
		s.pending--
		return false, nil
	}
	return true, nil
}

// ClearDone implements lcdif.Blitter.
func (s *Sim) ClearDone() error {
	return nil
}
