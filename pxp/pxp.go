// Package pxp drives the PiXel Pipeline, the block-oriented 2D engine found
// next to the eLCDIF controller, as an lcdif.Blitter.
//
// The engine rotates whole tiles only (8×8 or 16×16 pixels). lcdif submits
// the tile-aligned part of each write and finishes the remainder in
// software.
package pxp

import (
	"encoding/binary"
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/mmr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/lcdif"
	"periph.io/x/devices/v3/lcdif/imagergb"
)

// Register offsets. CTRL and STAT have SET/CLR aliases at +4/+8.
const (
	regCtrl     = 0x00
	regStat     = 0x10
	regOutCtrl  = 0x20
	regOutBuf   = 0x30
	regOutPitch = 0x50
	regOutLRC   = 0x60
	regOutPSULC = 0x70
	regOutPSLRC = 0x80
	regPSCtrl   = 0xB0
	regPSBuf    = 0xC0
	regPSPitch  = 0xF0

	setOffset = 0x4
	clrOffset = 0x8
)

const (
	ctrlEnable     = 1 << 0
	ctrlRotatePos  = 8
	ctrlRotateMask = 3 << ctrlRotatePos
	ctrlBlockSize  = 1 << 23 // 16x16 tiles when set, 8x8 otherwise

	statIRQ = 1 << 0
)

// Format codes shared by OUT_CTRL and PS_CTRL.
const (
	fmtARGB8888 = 0x0
	fmtRGB888   = 0x4
	fmtRGB888P  = 0x5
	fmtRGB565   = 0xE
)

// Opts is the configuration of the engine.
type Opts struct {
	TileSize int              // 8 or 16 (default: 16)
	Clock    physic.Frequency // Engine clock, reported by String
}

// Dev is a handle to the PXP register block.
type Dev struct {
	d     mmr.Dev16
	tile  int
	clock physic.Frequency
}

var _ lcdif.Blitter = (*Dev)(nil)

// New returns a handle on the engine reached through c, leaving it disabled.
//
// opts can be nil to use 16x16 tiles.
func New(c conn.Conn, opts *Opts) (*Dev, error) {
	o := Opts{TileSize: 16}
	if opts != nil {
		o = *opts
		if o.TileSize == 0 {
			o.TileSize = 16
		}
	}
	if o.TileSize != 8 && o.TileSize != 16 {
		return nil, errors.New("pxp: tile size must be 8 or 16")
	}
	p := &Dev{
		d:     mmr.Dev16{Conn: c, Order: binary.LittleEndian},
		tile:  o.TileSize,
		clock: o.Clock,
	}
	ctrl := uint32(0)
	if p.tile == 16 {
		ctrl |= ctrlBlockSize
	}
	if err := p.d.WriteUint32(regCtrl, ctrl); err != nil {
		return nil, fmt.Errorf("pxp: init: %w", err)
	}
	return p, nil
}

func (p *Dev) String() string {
	return fmt.Sprintf("pxp.Dev{%dx%d tiles @ %s}", p.tile, p.tile, p.clock)
}

// Halt disables the engine.
func (p *Dev) Halt() error {
	return p.d.WriteUint32(regCtrl+clrOffset, ctrlEnable)
}

// TileSize implements lcdif.Blitter.
func (p *Dev) TileSize() int {
	return p.tile
}

func formatCode(f imagergb.Format) (uint32, error) {
	switch f {
	case imagergb.RGB565:
		return fmtRGB565, nil
	case imagergb.RGB888:
		return fmtRGB888P, nil
	case imagergb.XRGB8888:
		return fmtRGB888, nil
	case imagergb.ARGB8888:
		return fmtARGB8888, nil
	}
	return 0, fmt.Errorf("pxp: pixel format %s: %w", f, lcdif.ErrNotSupported)
}

func (p *Dev) checkSurface(s lcdif.Surface) (uint32, error) {
	if s.Addr == 0 {
		return 0, fmt.Errorf("pxp: %w", lcdif.ErrUnaddressable)
	}
	if s.Width%p.tile != 0 || s.Height%p.tile != 0 {
		return 0, fmt.Errorf("pxp: surface %dx%d is not a multiple of %d: %w",
			s.Width, s.Height, p.tile, lcdif.ErrInvalidArgument)
	}
	return formatCode(s.Format)
}

// SetSource implements lcdif.Blitter.
func (p *Dev) SetSource(s lcdif.Surface) error {
	code, err := p.checkSurface(s)
	if err != nil {
		return err
	}
	if err := p.d.WriteUint32(regPSCtrl, code); err != nil {
		return err
	}
	if err := p.d.WriteUint32(regPSBuf, s.Addr); err != nil {
		return err
	}
	if err := p.d.WriteUint32(regPSPitch, uint32(s.Pitch)); err != nil {
		return err
	}
	if err := p.d.WriteUint32(regOutPSULC, 0); err != nil {
		return err
	}
	return p.d.WriteUint32(regOutPSLRC, lrc(s.Width, s.Height))
}

// SetDest implements lcdif.Blitter.
func (p *Dev) SetDest(s lcdif.Surface) error {
	code, err := p.checkSurface(s)
	if err != nil {
		return err
	}
	if err := p.d.WriteUint32(regOutCtrl, code); err != nil {
		return err
	}
	if err := p.d.WriteUint32(regOutBuf, s.Addr); err != nil {
		return err
	}
	if err := p.d.WriteUint32(regOutPitch, uint32(s.Pitch)); err != nil {
		return err
	}
	return p.d.WriteUint32(regOutLRC, lrc(s.Width, s.Height))
}

// lrc encodes the lower right corner of a w×h rectangle.
func lrc(w, h int) uint32 {
	return uint32(w-1)<<16 | uint32(h-1)&0xFFFF
}

// SetRotation implements lcdif.Blitter.
func (p *Dev) SetRotation(o lcdif.Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("pxp: orientation %s: %w", o, lcdif.ErrInvalidArgument)
	}
	v, err := p.d.ReadUint32(regCtrl)
	if err != nil {
		return err
	}
	v = v&^ctrlRotateMask | uint32(o)<<ctrlRotatePos
	return p.d.WriteUint32(regCtrl, v)
}

// Start implements lcdif.Blitter.
func (p *Dev) Start() error {
	return p.d.WriteUint32(regCtrl+setOffset, ctrlEnable)
}

// Done implements lcdif.Blitter.
func (p *Dev) Done() (bool, error) {
	v, err := p.d.ReadUint32(regStat)
	return v&statIRQ != 0, err
}

// ClearDone implements lcdif.Blitter.
func (p *Dev) ClearDone() error {
	if err := p.d.WriteUint32(regStat+clrOffset, statIRQ); err != nil {
		return err
	}
	return p.d.WriteUint32(regCtrl+clrOffset, ctrlEnable)
}
