// Package imagergb provides the packed RGB pixel formats used by the eLCDIF controller.
package imagergb

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Format is a packed pixel format as laid out in panel memory.
type Format uint8

// Supported pixel formats.
const (
	Invalid  Format = iota
	RGB565          // 16 bits, R in the top 5 bits
	BGR565          // 16 bits, B in the top 5 bits
	RGB888          // 24 bits, stored B, G, R
	XRGB8888        // 32 bits, stored B, G, R, unused
	ARGB8888        // 32 bits, stored B, G, R, non-premultiplied alpha
)

var formatNames = [...]string{
	Invalid:  "Invalid",
	RGB565:   "RGB565",
	BGR565:   "BGR565",
	RGB888:   "RGB888",
	XRGB8888: "XRGB8888",
	ARGB8888: "ARGB8888",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat returns the Format named s, ignoring case.
func ParseFormat(s string) (Format, error) {
	for i, n := range formatNames {
		if i != int(Invalid) && strings.EqualFold(n, s) {
			return Format(i), nil
		}
	}
	return Invalid, fmt.Errorf("imagergb: unknown pixel format %q", s)
}

// BytesPerPixel returns the storage size of one pixel, or 0 for an unknown format.
func (f Format) BytesPerPixel() int {
	switch f {
	case RGB565, BGR565:
		return 2
	case RGB888:
		return 3
	case XRGB8888, ARGB8888:
		return 4
	}
	return 0
}

// Encode stores c into b, which must hold at least BytesPerPixel bytes.
func (f Format) Encode(b []byte, c color.Color) {
	switch f {
	case RGB565, BGR565:
		r, g, bl, _ := c.RGBA()
		hi, lo := r>>11, bl>>11
		if f == BGR565 {
			hi, lo = lo, hi
		}
		v := uint16(hi<<11 | (g>>10)<<5 | lo)
		b[0] = byte(v)
		b[1] = byte(v >> 8)
	case RGB888:
		r, g, bl, _ := c.RGBA()
		b[0] = byte(bl >> 8)
		b[1] = byte(g >> 8)
		b[2] = byte(r >> 8)
	case XRGB8888:
		r, g, bl, _ := c.RGBA()
		b[0] = byte(bl >> 8)
		b[1] = byte(g >> 8)
		b[2] = byte(r >> 8)
		b[3] = 0xFF
	case ARGB8888:
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		b[0] = n.B
		b[1] = n.G
		b[2] = n.R
		b[3] = n.A
	}
}

// Decode returns the color stored in b.
func (f Format) Decode(b []byte) color.Color {
	switch f {
	case RGB565, BGR565:
		v := uint16(b[0]) | uint16(b[1])<<8
		hi, g, lo := uint8(v>>11), uint8(v>>5)&0x3F, uint8(v)&0x1F
		if f == BGR565 {
			hi, lo = lo, hi
		}
		// Replicate the top bits into the low bits so 0x1F maps to 0xFF.
		return color.RGBA{R: hi<<3 | hi>>2, G: g<<2 | g>>4, B: lo<<3 | lo>>2, A: 0xFF}
	case RGB888, XRGB8888:
		return color.RGBA{R: b[2], G: b[1], B: b[0], A: 0xFF}
	case ARGB8888:
		return color.NRGBA{R: b[2], G: b[1], B: b[0], A: b[3]}
	}
	return color.RGBA{}
}

var models [len(formatNames)]color.Model

func init() {
	for i := range models {
		f := Format(i)
		models[i] = color.ModelFunc(func(c color.Color) color.Color {
			var b [4]byte
			f.Encode(b[:], c)
			return f.Decode(b[:])
		})
	}
}

// Model returns the color model that quantizes colors to f.
func (f Format) Model() color.Model {
	if int(f) < len(models) {
		return models[f]
	}
	return models[Invalid]
}

// Image is an image.Image over raw pixels in one of the packed formats.
type Image struct {
	Pix    []byte          // Pixel data, Format.BytesPerPixel bytes per pixel
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
	Format Format
}

// NewImage creates a new Image with the specified bounds and format.
func NewImage(r image.Rectangle, f Format) *Image {
	bpp := f.BytesPerPixel()
	if bpp == 0 {
		panic("imagergb: unsupported format " + f.String())
	}
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &Image{Rect: r, Format: f}
	}
	return &Image{
		Pix:    make([]byte, w*h*bpp),
		Stride: w * bpp,
		Rect:   r,
		Format: f,
	}
}

// ColorModel returns the color model of the image.
func (p *Image) ColorModel() color.Model {
	return p.Format.Model()
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At returns the color of the pixel at (x, y).
func (p *Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	return p.Format.Decode(p.Pix[i:])
}

// Set sets the color of the pixel at (x, y).
func (p *Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	p.Format.Encode(p.Pix[i:], c)
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*p.Format.BytesPerPixel()
}

// SubImage returns an image sharing pixels with p, restricted to r.
func (p *Image) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &Image{Format: p.Format}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &Image{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
		Format: p.Format,
	}
}
