package pxp

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/lcdif"
	"periph.io/x/devices/v3/lcdif/imagergb"
)

// w32 returns the bytes of a 32-bit register write.
func w32(reg uint16, v uint32) conntest.IO {
	return conntest.IO{W: []byte{byte(reg), byte(reg >> 8), byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}}
}

// r32 returns the bytes of a 32-bit register read yielding v.
func r32(reg uint16, v uint32) conntest.IO {
	return conntest.IO{W: []byte{byte(reg), byte(reg >> 8)}, R: []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		opts     *Opts
		wantCtrl uint32
		wantTile int
	}{
		{"defaults", nil, ctrlBlockSize, 16},
		{"zero tile size", &Opts{}, ctrlBlockSize, 16},
		{"8x8 tiles", &Opts{TileSize: 8}, 0, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &conntest.Playback{Ops: []conntest.IO{w32(regCtrl, tt.wantCtrl)}, D: conn.Half}
			p, err := New(c, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if p.TileSize() != tt.wantTile {
				t.Errorf("TileSize() = %d, want %d", p.TileSize(), tt.wantTile)
			}
			if err := c.Close(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestNewInvalidTileSize(t *testing.T) {
	if _, err := New(&conntest.Playback{D: conn.Half}, &Opts{TileSize: 12}); err == nil {
		t.Error("New() accepted 12x12 tiles")
	}
}

func TestOperation(t *testing.T) {
	src := lcdif.Surface{Format: imagergb.RGB565, Addr: 0x80000000, Pitch: 64, Width: 16, Height: 32}
	dst := lcdif.Surface{Format: imagergb.RGB565, Addr: 0x80100000, Pitch: 960, Width: 32, Height: 16}
	c := &conntest.Playback{
		Ops: []conntest.IO{
			w32(regCtrl, ctrlBlockSize),
			// SetSource
			w32(regPSCtrl, fmtRGB565),
			w32(regPSBuf, 0x80000000),
			w32(regPSPitch, 64),
			w32(regOutPSULC, 0),
			w32(regOutPSLRC, 15<<16|31),
			// SetDest
			w32(regOutCtrl, fmtRGB565),
			w32(regOutBuf, 0x80100000),
			w32(regOutPitch, 960),
			w32(regOutLRC, 31<<16|15),
			// SetRotation
			r32(regCtrl, ctrlBlockSize),
			w32(regCtrl, ctrlBlockSize|1<<ctrlRotatePos),
			// Start, Done, ClearDone
			w32(regCtrl+setOffset, ctrlEnable),
			r32(regStat, 0),
			r32(regStat, statIRQ),
			w32(regStat+clrOffset, statIRQ),
			w32(regCtrl+clrOffset, ctrlEnable),
		},
		D: conn.Half,
	}
	p, err := New(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetSource(src); err != nil {
		t.Fatal(err)
	}
	if err := p.SetDest(dst); err != nil {
		t.Fatal(err)
	}
	if err := p.SetRotation(lcdif.Rotated90); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []bool{false, true} {
		done, err := p.Done()
		if err != nil {
			t.Fatal(err)
		}
		if done != want {
			t.Errorf("Done() = %v, want %v", done, want)
		}
	}
	if err := p.ClearDone(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSurfaceRejected(t *testing.T) {
	tests := []struct {
		name string
		s    lcdif.Surface
		want error
	}{
		{"no bus address", lcdif.Surface{Format: imagergb.RGB565, Width: 16, Height: 16, Pitch: 32}, lcdif.ErrUnaddressable},
		{"partial tile", lcdif.Surface{Format: imagergb.RGB565, Addr: 0x1000, Width: 24, Height: 16, Pitch: 48}, lcdif.ErrInvalidArgument},
		{"bgr", lcdif.Surface{Format: imagergb.BGR565, Addr: 0x1000, Width: 16, Height: 16, Pitch: 32}, lcdif.ErrNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &conntest.Playback{Ops: []conntest.IO{w32(regCtrl, ctrlBlockSize)}, D: conn.Half}
			p, err := New(c, nil)
			if err != nil {
				t.Fatal(err)
			}
			if err := p.SetSource(tt.s); !errors.Is(err, tt.want) {
				t.Errorf("SetSource() error = %v, want %v", err, tt.want)
			}
			if err := p.SetDest(tt.s); !errors.Is(err, tt.want) {
				t.Errorf("SetDest() error = %v, want %v", err, tt.want)
			}
			// Nothing was written for a rejected surface.
			if err := c.Close(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestHalt(t *testing.T) {
	c := &conntest.Playback{
		Ops: []conntest.IO{w32(regCtrl, 0), w32(regCtrl+clrOffset, ctrlEnable)},
		D:   conn.Half,
	}
	p, err := New(c, &Opts{TileSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestString(t *testing.T) {
	p := &Dev{tile: 16, clock: 132 * physic.MegaHertz}
	if got, want := p.String(), "pxp.Dev{16x16 tiles @ 132MHz}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
