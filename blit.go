package lcdif

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/devices/v3/lcdif/imagergb"
)

// Surface describes one side of a blit engine operation.
type Surface struct {
	Format imagergb.Format
	Addr   uint32 // Bus address of the first pixel; 0 when not bus visible
	Pitch  int    // Bytes between rows
	Width  int    // Pixels
	Height int    // Rows

	// Pix is the CPU view of the surface starting at its first pixel.
	// Engines driving real hardware ignore it.
	Pix []byte
}

// Blitter is a block-oriented 2D rotate engine.
//
// The engine processes whole TileSize×TileSize tiles only. One operation is
// configured with SetSource, SetDest and SetRotation, started with Start,
// then polled with Done until it reports completion and acknowledged with
// ClearDone.
//
// SetSource and SetDest return an error wrapping ErrUnaddressable when the
// engine cannot reach the surface, or ErrNotSupported when it cannot handle
// its format; the compositor then rotates the block in software.
type Blitter interface {
	TileSize() int
	SetSource(s Surface) error
	SetDest(s Surface) error
	SetRotation(o Orientation) error
	Start() error
	Done() (bool, error)
	ClearDone() error
}

// transform maps r into dst. When an engine is present the tile-aligned part
// of r goes through it and the right and bottom remainder strips are rotated
// in software. The block and the two strips tile r exactly:
//
//	+-----------+---+
//	|  engine   | R |   R: width W mod T, height H - H mod T
//	|  aw x ah  |   |
//	+-----------+---+
//	|      bottom   |   bottom: full width, height H mod T
//	+---------------+
func (c *compositor) transform(ctx context.Context, dst Buffer, r *Region) error {
	if c.blitter == nil {
		c.panel.rotate(dst.Pix, c.orient, r, 0, 0, r.Width, r.Height)
		return nil
	}

	t := c.blitter.TileSize()
	aw, ah := r.Width-r.Width%t, r.Height-r.Height%t
	if aw > 0 && ah > 0 {
		err := c.blit(ctx, dst, r, aw, ah)
		if errors.Is(err, ErrUnaddressable) || errors.Is(err, ErrNotSupported) {
			Logger().Warn("lcdif: blit engine cannot take surface, rotating in software",
				"w", aw, "h", ah, "err", err)
			c.panel.rotate(dst.Pix, c.orient, r, 0, 0, aw, ah)
		} else if err != nil {
			return err
		}
	}
	if aw < r.Width && ah > 0 {
		c.panel.rotate(dst.Pix, c.orient, r, aw, 0, r.Width-aw, ah)
	}
	if ah < r.Height {
		c.panel.rotate(dst.Pix, c.orient, r, 0, ah, r.Width, r.Height-ah)
	}
	return nil
}

// blit submits the aw×ah block at the origin of r as one synchronous engine
// operation.
func (c *compositor) blit(ctx context.Context, dst Buffer, r *Region, aw, ah int) error {
	p := c.panel
	src := Surface{
		Format: c.format,
		Addr:   r.Addr,
		Pitch:  r.Pitch * p.bpp,
		Width:  aw,
		Height: ah,
		Pix:    r.Pix,
	}

	// The block's image is a rectangle; its top-left corner is the minimum
	// of the images of two opposite source corners.
	c0, r0 := c.orient.MapPoint(r.X, r.Y, 0, 0, p.w, p.h)
	c1, r1 := c.orient.MapPoint(r.X, r.Y, aw-1, ah-1, p.w, p.h)
	off := (min(r0, r1)*p.w + min(c0, c1)) * p.bpp
	dw, dh := aw, ah
	if c.orient.SwapsAxes() {
		dw, dh = ah, aw
	}
	var addr uint32
	if dst.Addr != 0 {
		addr = dst.Addr + uint32(off)
	}
	ds := Surface{
		Format: c.format,
		Addr:   addr,
		Pitch:  p.w * p.bpp,
		Width:  dw,
		Height: dh,
		Pix:    dst.Pix[off:],
	}

	if err := c.blitter.SetSource(src); err != nil {
		return fmt.Errorf("lcdif: blit source: %w", err)
	}
	if err := c.blitter.SetDest(ds); err != nil {
		return fmt.Errorf("lcdif: blit destination: %w", err)
	}
	if err := c.blitter.SetRotation(c.orient); err != nil {
		return fmt.Errorf("lcdif: blit rotation: %w", err)
	}
	Logger().Debug("lcdif: blit", "w", aw, "h", ah, "src", src.Addr, "dst", ds.Addr)
	if err := c.blitter.Start(); err != nil {
		return fmt.Errorf("lcdif: blit start: %w", err)
	}
	if err := c.waitBlit(ctx); err != nil {
		return err
	}
	if err := c.blitter.ClearDone(); err != nil {
		return fmt.Errorf("lcdif: blit clear: %w", err)
	}
	return nil
}

// waitBlit busy-polls the engine's completion flag. Without a BlitTimeout
// the poll is bounded only by the engine itself.
func (c *compositor) waitBlit(ctx context.Context) error {
	var deadline time.Time
	if c.blitTimeout > 0 {
		deadline = time.Now().Add(c.blitTimeout)
	}
	for {
		done, err := c.blitter.Done()
		if err != nil {
			return fmt.Errorf("lcdif: blit status: %w", err)
		}
		if done {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("lcdif: no blit completion within %v: %w", c.blitTimeout, ErrBlitTimeout)
		}
		if err := ctx.Err(); err != nil {
			// Abandoning the poll leaves the engine running into Back.
			return fmt.Errorf("lcdif: blit abandoned: %w: %w", ErrBlitTimeout, err)
		}
	}
}
