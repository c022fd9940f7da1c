package lcdif

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/lcdif/imagergb"
)

var (
	// ErrOutOfMemory means a frame buffer could not be allocated. The device
	// cannot start.
	ErrOutOfMemory = errors.New("lcdif: out of memory")
	// ErrInvalidArgument means a region or option violated its contract.
	// No pixel was changed.
	ErrInvalidArgument = errors.New("lcdif: invalid argument")
	// ErrNotSupported means the operation is not implemented by this
	// controller. No state was changed.
	ErrNotSupported = errors.New("lcdif: not supported")
	// ErrFaulted means a bounded wait expired and the device stopped
	// accepting writes.
	ErrFaulted = errors.New("lcdif: device faulted")
	// ErrBlitTimeout means the blit engine did not complete in time.
	ErrBlitTimeout = errors.New("lcdif: blit timeout")
	// ErrUnaddressable is returned by a Blitter that cannot reach a surface.
	ErrUnaddressable = errors.New("lcdif: surface not bus addressable")
	// ErrHalted means Halt was called.
	ErrHalted = errors.New("lcdif: halted")
)

// asOutOfMemory makes sure err matches ErrOutOfMemory.
func asOutOfMemory(err error) error {
	if errors.Is(err, ErrOutOfMemory) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrOutOfMemory, err)
}

// DefaultTiming is the timing of the 480×272 panel shipped with the i.MX RT
// evaluation kits.
var DefaultTiming = Timing{
	HSW: 41, HFP: 4, HBP: 8,
	VSW: 10, VFP: 4, VBP: 2,
	PixelClock: 9300 * physic.KiloHertz,
}

// Opts is the configuration for the controller and the compositor.
type Opts struct {
	// Native panel dimensions in pixels (default: 480x272)
	W int
	H int

	Format      imagergb.Format // Pixel format of both frame buffers (default: RGB565)
	Orientation Orientation     // Fixed for the lifetime of the device

	// Panel wiring
	DataBus  DataBus
	Timing   Timing // Zero value selects DefaultTiming
	Polarity Polarity

	// Blitter, when set, rotates the tile-aligned part of each write.
	Blitter Blitter
	// Flusher, when set, is called on each composed buffer before it is
	// published.
	Flusher Flusher

	// FrameTimeout bounds the wait for the previous frame's completion.
	// Zero waits forever. On expiry the device becomes Faulted.
	FrameTimeout time.Duration
	// BlitTimeout bounds the poll for blit completion. Zero polls forever.
	// On expiry the device becomes Faulted.
	BlitTimeout time.Duration
}

func (o *Opts) withDefaults() Opts {
	var out Opts
	if o != nil {
		out = *o
	}
	if out.W == 0 && out.H == 0 {
		out.W, out.H = 480, 272
	}
	if out.Format == imagergb.Invalid {
		out.Format = imagergb.RGB565
	}
	if out.Timing == (Timing{}) {
		out.Timing = DefaultTiming
	}
	return out
}

func (o *Opts) validate() error {
	if o.W <= 0 || o.H <= 0 || o.W > 0xFFFF || o.H > 0xFFFF {
		return fmt.Errorf("lcdif: panel size %dx%d out of range: %w", o.W, o.H, ErrInvalidArgument)
	}
	if bpp := o.Format.BytesPerPixel(); bpp < 2 || bpp > 4 {
		return fmt.Errorf("lcdif: pixel format %s: %w", o.Format, ErrNotSupported)
	}
	if !o.Orientation.Valid() {
		return fmt.Errorf("lcdif: orientation %s: %w", o.Orientation, ErrInvalidArgument)
	}
	if o.Blitter != nil && o.Blitter.TileSize() <= 0 {
		return fmt.Errorf("lcdif: blit tile size %d: %w", o.Blitter.TileSize(), ErrInvalidArgument)
	}
	return nil
}

// Capabilities describes the device as seen by applications.
type Capabilities struct {
	Width            int // Logical width; panel height at 90° and 270°
	Height           int // Logical height; panel width at 90° and 270°
	SupportedFormats []imagergb.Format
	CurrentFormat    imagergb.Format
	Orientation      Orientation
	FrameRate        physic.Frequency
}

// Dev is a handle to the compositor and its panel controller.
type Dev struct {
	ctrl   Controller
	store  *FrameStore
	swap   *swapController
	comp   compositor
	timing Timing

	mu     sync.Mutex
	state  State
	halted bool
}

var _ display.Drawer = (*Dev)(nil)

// New initializes the eLCDIF block reached through c, allocates both frame
// buffers from a and starts scan-out of the first one.
//
// opts can be nil to use defaults (480x272 RGB565, no rotation).
func New(c conn.Conn, a Allocator, opts *Opts) (*Dev, error) {
	o := opts.withDefaults()
	regs := NewRegs(c)
	d, err := newDev(regs, a, &o)
	if err != nil {
		return nil, err
	}
	if err := regs.Init(&RGBMode{
		Width:      o.W,
		Height:     o.H,
		Format:     o.Format,
		DataBus:    o.DataBus,
		Timing:     o.Timing,
		Polarity:   o.Polarity,
		BufferAddr: d.store.Front().Addr,
	}); err != nil {
		return nil, fmt.Errorf("lcdif: init: %w", err)
	}
	return d, nil
}

// NewWithController creates a device publishing through ctrl. The controller
// must already be configured for the panel; only the first buffer address is
// programmed.
func NewWithController(ctrl Controller, a Allocator, opts *Opts) (*Dev, error) {
	o := opts.withDefaults()
	d, err := newDev(ctrl, a, &o)
	if err != nil {
		return nil, err
	}
	if err := ctrl.SetNextBufferAddr(d.store.Front().Addr); err != nil {
		return nil, fmt.Errorf("lcdif: init: %w", err)
	}
	return d, nil
}

func newDev(ctrl Controller, a Allocator, o *Opts) (*Dev, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	bpp := o.Format.BytesPerPixel()
	store, err := NewFrameStore(a, o.W, o.H, bpp)
	if err != nil {
		return nil, err
	}
	return &Dev{
		ctrl:  ctrl,
		store: store,
		swap:  newSwapController(ctrl, o.Flusher, o.FrameTimeout),
		comp: compositor{
			panel:       panel{w: o.W, h: o.H, bpp: bpp},
			orient:      o.Orientation,
			format:      o.Format,
			blitter:     o.Blitter,
			blitTimeout: o.BlitTimeout,
		},
		timing: o.Timing,
	}, nil
}

// logicalSize returns the panel size in application coordinates.
func (d *Dev) logicalSize() (w, h int) {
	p := d.comp.panel
	if d.comp.orient.SwapsAxes() {
		return p.h, p.w
	}
	return p.w, p.h
}

// Capabilities returns the fixed properties of the device.
func (d *Dev) Capabilities() Capabilities {
	w, h := d.logicalSize()
	p := d.comp.panel
	return Capabilities{
		Width:            w,
		Height:           h,
		SupportedFormats: []imagergb.Format{d.comp.format},
		CurrentFormat:    d.comp.format,
		Orientation:      d.comp.orient,
		FrameRate:        d.timing.FrameRate(p.w, p.h),
	}
}

// State returns the current position in the compose/publish cycle.
func (d *Dev) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dev) setState(s State) {
	d.mu.Lock()
	if d.state != Faulted {
		d.state = s
	}
	d.mu.Unlock()
}

func (d *Dev) fault(err error) {
	d.mu.Lock()
	d.state = Faulted
	d.mu.Unlock()
	Logger().Error("lcdif: device faulted", "err", err)
}

// usable returns the error a write must fail with, if any.
func (d *Dev) usable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return ErrHalted
	}
	if d.state == Faulted {
		return ErrFaulted
	}
	return nil
}

// Write composes r into the next frame and publishes it. It blocks while the
// previous frame is in flight.
func (d *Dev) Write(r Region) error {
	return d.WriteContext(context.Background(), r)
}

// WriteContext is Write with a context bounding the wait for the previous
// frame and the blit poll. A write that returns an error published nothing.
func (d *Dev) WriteContext(ctx context.Context, r Region) error {
	if err := d.usable(); err != nil {
		return err
	}
	ew, eh := d.logicalSize()
	if err := d.comp.panel.validate(&r, ew, eh); err != nil {
		return err
	}
	Logger().Debug("lcdif: write", "w", r.Width, "h", r.Height, "x", r.X, "y", r.Y)

	if err := d.swap.acquire(ctx); err != nil {
		if errors.Is(err, ErrFaulted) {
			d.fault(err)
		}
		return err
	}
	// The device may have been halted or faulted while waiting.
	if err := d.usable(); err != nil {
		d.swap.release()
		return err
	}
	d.setState(Composing)

	if err := d.comp.compose(ctx, d.store, &r); err != nil {
		if errors.Is(err, ErrBlitTimeout) {
			// The engine may still be writing into Back; keep the token.
			d.fault(err)
			return fmt.Errorf("%w: %w", ErrFaulted, err)
		}
		d.setState(Idle)
		d.swap.release()
		return err
	}

	// The composed buffer becomes the scan target and the old Front becomes
	// Back. Roles must be swapped before the address is handed over: the
	// completion signal may admit the next write immediately after.
	d.store.Swap()
	if err := d.publish(d.store.Front()); err != nil {
		d.store.Swap()
		d.setState(Idle)
		d.swap.release()
		return fmt.Errorf("lcdif: publish: %w", err)
	}
	return nil
}

// Draw implements display.Drawer. src is converted to the panel format and
// composed like any other region.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if err := d.usable(); err != nil {
		return err
	}
	clipped := dst.Intersect(d.Bounds())
	if clipped.Empty() {
		return nil
	}
	sp = sp.Add(clipped.Min.Sub(dst.Min))
	dst = clipped
	w, h := dst.Dx(), dst.Dy()

	// Fast path: src already holds panel-format pixels.
	if img, ok := src.(*imagergb.Image); ok && img.Format == d.comp.format {
		bpp := d.comp.panel.bpp
		r := image.Rectangle{Min: sp, Max: sp.Add(image.Pt(w, h))}
		if img.Stride%bpp == 0 && r.In(img.Rect) {
			off := img.PixOffset(sp.X, sp.Y)
			if h*img.Stride <= len(img.Pix)-off {
				return d.Write(Region{
					X: dst.Min.X, Y: dst.Min.Y, Width: w, Height: h,
					Pitch: img.Stride / bpp,
					Pix:   img.Pix[off:],
				})
			}
		}
	}

	buf := imagergb.NewImage(image.Rect(0, 0, w, h), d.comp.format)
	draw.Draw(buf, buf.Bounds(), src, sp, draw.Src)
	return d.Write(Region{X: dst.Min.X, Y: dst.Min.Y, Width: w, Height: h, Pix: buf.Pix})
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return d.comp.format.Model()
}

// Bounds implements display.Drawer. It is expressed in logical coordinates.
func (d *Dev) Bounds() image.Rectangle {
	w, h := d.logicalSize()
	return image.Rect(0, 0, w, h)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	w, h := d.logicalSize()
	return fmt.Sprintf("lcdif.Dev{%dx%d %s %s}", w, h, d.comp.format, d.comp.orient)
}

// Halt stops scan-out when the controller supports it. Subsequent writes
// fail with ErrHalted.
func (d *Dev) Halt() error {
	d.mu.Lock()
	d.halted = true
	d.mu.Unlock()
	if s, ok := d.ctrl.(stopper); ok {
		return s.Stop()
	}
	return nil
}

// Read is not supported: the frame buffers cannot be read back.
func (d *Dev) Read(r Region) error {
	Logger().Error("lcdif: read not implemented")
	return ErrNotSupported
}

// Framebuffer is not supported: direct frame buffer access would bypass the
// swap protocol.
func (d *Dev) Framebuffer() ([]byte, error) {
	Logger().Error("lcdif: direct framebuffer access not implemented")
	return nil, ErrNotSupported
}

// BlankingOn is not supported.
func (d *Dev) BlankingOn() error {
	Logger().Error("lcdif: display blanking control not implemented")
	return ErrNotSupported
}

// BlankingOff is not supported.
func (d *Dev) BlankingOff() error {
	Logger().Error("lcdif: display blanking control not implemented")
	return ErrNotSupported
}

// SetBrightness is not supported.
func (d *Dev) SetBrightness(uint8) error {
	Logger().Warn("lcdif: set brightness not implemented")
	return ErrNotSupported
}

// SetContrast is not supported.
func (d *Dev) SetContrast(uint8) error {
	Logger().Error("lcdif: set contrast not implemented")
	return ErrNotSupported
}

// SetPixelFormat succeeds only when f is already the current format.
func (d *Dev) SetPixelFormat(f imagergb.Format) error {
	if f == d.comp.format {
		return nil
	}
	Logger().Error("lcdif: pixel format change not implemented", "from", d.comp.format, "to", f)
	return ErrNotSupported
}

// SetOrientation succeeds only when o is already the current orientation.
func (d *Dev) SetOrientation(o Orientation) error {
	if o == d.comp.orient {
		return nil
	}
	Logger().Error("lcdif: changing display orientation not implemented", "from", d.comp.orient, "to", o)
	return ErrNotSupported
}
