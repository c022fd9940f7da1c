package lcdif

import (
	"image"
	"image/color"
	"testing"
)

func TestCanvasSize(t *testing.T) {
	d, _, _ := newTestDev(t, &Opts{W: 8, H: 4, Orientation: Rotated90})
	c := NewCanvas(d)
	if w, h := c.Size(); w != 4 || h != 8 {
		t.Errorf("Size() = %d, %d, want 4, 8", w, h)
	}
}

func TestCanvasDisplayDirty(t *testing.T) {
	d, ctrl, a := newTestDev(t, &Opts{W: 8, H: 4, Orientation: Rotated270})
	c := NewCanvas(d)
	if err := c.Display(); err != nil {
		t.Fatal(err)
	}
	if ctrl.count() != 1 {
		t.Fatal("Display() without changes published a frame")
	}

	white := color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	c.SetPixel(1, 2, white)
	c.SetPixel(2, 5, white)
	c.SetPixel(100, 100, white)
	if got, want := c.Dirty(), image.Rect(1, 2, 3, 6); got != want {
		t.Errorf("Dirty() = %v, want %v", got, want)
	}
	if err := c.Display(); err != nil {
		t.Fatal(err)
	}
	if !c.Dirty().Empty() {
		t.Errorf("Dirty() = %v after Display, want empty", c.Dirty())
	}

	b := scanOut(t, d, ctrl, a)
	for _, p := range []image.Point{{1, 2}, {2, 5}} {
		col, row := Rotated270.MapPoint(p.X, p.Y, 0, 0, 8, 4)
		if got := px16(b, 8, col, row); got != 0xFFFF {
			t.Errorf("logical %v at panel (%d,%d) = %#x, want 0xffff", p, col, row, got)
		}
	}
	col, row := Rotated270.MapPoint(2, 2, 0, 0, 8, 4)
	if got := px16(b, 8, col, row); got != 0 {
		t.Errorf("untouched logical (2,2) = %#x, want 0", got)
	}
}

func TestCanvasFill(t *testing.T) {
	d, ctrl, a := newTestDev(t, &Opts{W: 8, H: 4})
	c := NewCanvas(d)
	c.Fill(color.RGBA{B: 0xFF, A: 0xFF})
	if c.Dirty() != d.Bounds() {
		t.Errorf("Dirty() = %v, want %v", c.Dirty(), d.Bounds())
	}
	if err := c.Display(); err != nil {
		t.Fatal(err)
	}
	b := scanOut(t, d, ctrl, a)
	for row := 0; row < 4; row++ {
		for col := 0; col < 8; col++ {
			if got := px16(b, 8, col, row); got != 0x001F {
				t.Fatalf("panel (%d,%d) = %#x, want 0x1f", col, row, got)
			}
		}
	}
}

func TestCanvasDisplayError(t *testing.T) {
	d, _, _ := newTestDev(t, &Opts{W: 8, H: 4})
	c := NewCanvas(d)
	c.SetPixel(0, 0, color.RGBA{R: 0xFF, A: 0xFF})
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := c.Display(); err == nil {
		t.Fatal("Display() succeeded on a halted device")
	}
	if c.Dirty().Empty() {
		t.Error("failed Display() dropped the dirty area")
	}
}
