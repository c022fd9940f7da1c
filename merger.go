package lcdif

import (
	"context"
	"time"

	"periph.io/x/devices/v3/lcdif/imagergb"
)

// compositor merges one dirty region at a time into the Back buffer.
type compositor struct {
	panel       panel
	orient      Orientation
	format      imagergb.Format
	blitter     Blitter
	blitTimeout time.Duration
}

// needsSeed reports whether composing r must start from a copy of Front.
//
// Only an unrotated full-panel write replaces every Back pixel. Any other
// write leaves pixels outside the image of r, and their current, already
// rotated content exists only in Front.
func (c *compositor) needsSeed(r *Region) bool {
	return c.orient != Normal || !c.panel.fullFrame(r, c.orient)
}

// compose merges r into the Back buffer of s. Front is only read.
func (c *compositor) compose(ctx context.Context, s *FrameStore, r *Region) error {
	back := s.Back()
	if c.needsSeed(r) {
		copy(back.Pix, s.Front().Pix)
	}
	return c.transform(ctx, back, r)
}
