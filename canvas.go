package lcdif

import (
	"image"
	"image/color"

	"periph.io/x/devices/v3/lcdif/imagergb"
	"tinygo.org/x/drivers"
)

// Canvas is a drivers.Displayer drawing into a staging image in logical
// coordinates. Display writes the bounding box of the pixels changed since
// the previous Display, so tinyfont can draw onto a Dev.
type Canvas struct {
	d     *Dev
	img   *imagergb.Image
	dirty image.Rectangle
}

var _ drivers.Displayer = (*Canvas)(nil)

// NewCanvas returns a blank canvas covering the whole of d.
func NewCanvas(d *Dev) *Canvas {
	return &Canvas{
		d:   d,
		img: imagergb.NewImage(d.Bounds(), d.comp.format),
	}
}

// Size implements drivers.Displayer.
func (c *Canvas) Size() (x, y int16) {
	b := c.img.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

// SetPixel implements drivers.Displayer.
func (c *Canvas) SetPixel(x, y int16, col color.RGBA) {
	p := image.Pt(int(x), int(y))
	if !p.In(c.img.Rect) {
		return
	}
	c.img.Set(p.X, p.Y, col)
	c.dirty = c.dirty.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
}

// Fill paints the whole canvas with col.
func (c *Canvas) Fill(col color.Color) {
	bpp := c.img.Format.BytesPerPixel()
	c.img.Format.Encode(c.img.Pix, col)
	for i := bpp; i < len(c.img.Pix); i *= 2 {
		copy(c.img.Pix[i:], c.img.Pix[:i])
	}
	c.dirty = c.img.Rect
}

// Dirty returns the area changed since the last successful Display.
func (c *Canvas) Dirty() image.Rectangle {
	return c.dirty
}

// Display implements drivers.Displayer.
func (c *Canvas) Display() error {
	if c.dirty.Empty() {
		return nil
	}
	if err := c.d.Write(c.extractRegion(c.dirty)); err != nil {
		return err
	}
	c.dirty = image.Rectangle{}
	return nil
}

// extractRegion copies r out of the staging image into a tightly packed
// region.
func (c *Canvas) extractRegion(r image.Rectangle) Region {
	bpp := c.img.Format.BytesPerPixel()
	rowBytes := r.Dx() * bpp
	pix := make([]byte, rowBytes*r.Dy())
	dst := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := c.img.PixOffset(r.Min.X, y)
		copy(pix[dst:dst+rowBytes], c.img.Pix[src:src+rowBytes])
		dst += rowBytes
	}
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy(), Pitch: r.Dx(), Pix: pix}
}
