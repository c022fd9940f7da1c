package lcdif

import (
	"errors"
	"testing"
)

func TestArenaAlignment(t *testing.T) {
	a := NewArena(0x1000, 1024)
	for _, n := range []int{1, 63, 64, 100} {
		b, err := a.Alloc(n)
		if err != nil {
			t.Fatalf("Alloc(%d) error = %v", n, err)
		}
		if b.Addr%arenaAlign != 0 {
			t.Errorf("Alloc(%d) address %#x not aligned to %d", n, b.Addr, arenaAlign)
		}
		if len(b.Pix) != n || cap(b.Pix) != n {
			t.Errorf("Alloc(%d) len/cap = %d/%d", n, len(b.Pix), cap(b.Pix))
		}
	}
	if got, want := a.Available(), 1024-(3*64+100); got != want {
		t.Errorf("Available() = %d, want %d", got, want)
	}
}

func TestArenaExhausted(t *testing.T) {
	a := NewArena(0, 128)
	if _, err := a.Alloc(100); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Alloc(64); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("Alloc() error = %v, want ErrOutOfMemory", err)
	}
	if _, err := a.Alloc(0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Alloc(0) error = %v, want ErrInvalidArgument", err)
	}
}

func TestArenaSlice(t *testing.T) {
	mem := make([]byte, 256)
	a := NewArenaOver(0x8000, mem)
	b, err := a.Alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	copy(c.Pix, "abcdefgh")
	got, err := a.Slice(c.Addr, 8)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abcdefgh" {
		t.Errorf("Slice() = %q, want %q", got, "abcdefgh")
	}
	if c.Addr-b.Addr != arenaAlign {
		t.Errorf("second block at %#x, want %#x", c.Addr, b.Addr+arenaAlign)
	}
	if &mem[64] != &c.Pix[0] {
		t.Error("block does not alias the backing memory")
	}

	for _, tt := range []struct {
		addr uint32
		n    int
	}{
		{0x7FFF, 1},
		{0x8000, 257},
		{0x80FF, 2},
		{0x8000, -1},
	} {
		if _, err := a.Slice(tt.addr, tt.n); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Slice(%#x, %d) error = %v, want ErrInvalidArgument", tt.addr, tt.n, err)
		}
	}
}

func TestArenaZeroes(t *testing.T) {
	mem := make([]byte, 64)
	for i := range mem {
		mem[i] = 0xFF
	}
	b, err := NewArenaOver(0, mem).Alloc(64)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range b.Pix {
		if v != 0 {
			t.Fatalf("Pix[%d] = %#x, want 0", i, v)
		}
	}
}
