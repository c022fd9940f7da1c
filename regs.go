package lcdif

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/mmr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/lcdif/imagergb"
)

// Register offsets of the eLCDIF block. Registers with SET/CLR aliases
// accept a mask at +4 (set) and +8 (clear).
const (
	regCtrl          = 0x00
	regCtrl1         = 0x10
	regTransferCount = 0x30
	regCurBuf        = 0x40
	regNextBuf       = 0x50
	regVDCtrl0       = 0x70
	regVDCtrl1       = 0x80
	regVDCtrl2       = 0x90
	regVDCtrl3       = 0xA0
	regVDCtrl4       = 0xB0

	setOffset = 0x4
	clrOffset = 0x8
)

// CTRL fields.
const (
	ctrlRun            = 1 << 0
	ctrlMaster         = 1 << 5
	ctrlWordLengthPos  = 8
	ctrlWordLengthMask = 3 << ctrlWordLengthPos
	ctrlDataBusPos     = 10
	ctrlDataBusMask    = 3 << ctrlDataBusPos
	ctrlDotclkMode     = 1 << 17
	ctrlBypassCount    = 1 << 19
)

// CTRL1 fields.
const (
	ctrl1IRQMask         = 0xF << 8
	ctrl1IRQEnablePos    = 4 // enable bit = status bit << 4
	ctrl1BytePackingPos  = 16
	ctrl1BytePackingMask = 0xF << ctrl1BytePackingPos
)

// VDCTRL0 fields.
const (
	vdctrl0PulseWidthUnit = 1 << 20
	vdctrl0PeriodUnit     = 1 << 21
	vdctrl0EnablePol      = 1 << 24
	vdctrl0DotclkPol      = 1 << 25
	vdctrl0HsyncPol       = 1 << 26
	vdctrl0VsyncPol       = 1 << 27
	vdctrl0EnablePresent  = 1 << 28
	vdctrl0PolarityMask   = vdctrl0EnablePol | vdctrl0DotclkPol | vdctrl0HsyncPol | vdctrl0VsyncPol
	vdctrl4SyncSignalsOn  = 1 << 18
)

// Interrupt status bits, as returned by InterruptStatus.
const (
	IRQVsyncEdge    uint32 = 1 << 8
	IRQCurFrameDone uint32 = 1 << 9
	IRQUnderflow    uint32 = 1 << 10
	IRQOverflow     uint32 = 1 << 11
)

// DataBus is the width of the panel data bus.
type DataBus uint8

// Data bus widths, encoded as in CTRL.LCD_DATABUS_WIDTH.
const (
	DataBus16Bit DataBus = 0
	DataBus8Bit  DataBus = 1
	DataBus18Bit DataBus = 2
	DataBus24Bit DataBus = 3
)

func (b DataBus) String() string {
	switch b {
	case DataBus16Bit:
		return "16bit"
	case DataBus8Bit:
		return "8bit"
	case DataBus18Bit:
		return "18bit"
	case DataBus24Bit:
		return "24bit"
	}
	return fmt.Sprintf("DataBus(%d)", uint8(b))
}

// Polarity selects the active level of the panel control signals. The zero
// value drives every signal active low and data on the falling clock edge.
type Polarity uint8

// Polarity flags.
const (
	DataEnableActiveHigh Polarity = 1 << iota
	VsyncActiveHigh
	HsyncActiveHigh
	DriveDataOnRisingClkEdge
)

// Timing is the panel's sync timing. Horizontal values are in pixel clocks,
// vertical values in lines.
type Timing struct {
	HSW, HFP, HBP int
	VSW, VFP, VBP int

	// PixelClock is generated outside the eLCDIF block; it is only used to
	// report the refresh rate.
	PixelClock physic.Frequency
}

// FrameRate returns the refresh rate of a width×height panel driven with t.
func (t Timing) FrameRate(width, height int) physic.Frequency {
	total := (t.HSW + t.HBP + width + t.HFP) * (t.VSW + t.VBP + height + t.VFP)
	if total <= 0 {
		return 0
	}
	return t.PixelClock / physic.Frequency(total)
}

// RGBMode is the complete controller configuration for DOTCLK (RGB) mode.
type RGBMode struct {
	Width, Height int
	Format        imagergb.Format
	DataBus       DataBus
	Timing        Timing
	Polarity      Polarity
	BufferAddr    uint32
}

// Regs is a handle on the eLCDIF register block. Each configuration field
// has its own getter and setter; multi-field registers are updated with
// read-modify-write.
type Regs struct {
	d mmr.Dev16
}

// NewRegs returns a register handle talking over c. c is usually an MMIO
// window; any conn.Conn speaking 16-bit address, 32-bit little-endian data
// register transactions works.
func NewRegs(c conn.Conn) *Regs {
	return &Regs{d: mmr.Dev16{Conn: c, Order: binary.LittleEndian}}
}

func (r *Regs) String() string {
	return fmt.Sprintf("lcdif.Regs{%s}", r.d.Conn)
}

func (r *Regs) read(reg uint16) (uint32, error) {
	v, err := r.d.ReadUint32(reg)
	if err != nil {
		return 0, fmt.Errorf("lcdif: read reg %#02x: %w", reg, err)
	}
	return v, nil
}

func (r *Regs) write(reg uint16, v uint32) error {
	if err := r.d.WriteUint32(reg, v); err != nil {
		return fmt.Errorf("lcdif: write reg %#02x: %w", reg, err)
	}
	return nil
}

// update replaces the bits of reg selected by mask with v.
func (r *Regs) update(reg uint16, mask, v uint32) error {
	cur, err := r.read(reg)
	if err != nil {
		return err
	}
	return r.write(reg, cur&^mask|v&mask)
}

// SetNextBufferAddr programs the buffer the controller switches to at the
// next frame boundary.
func (r *Regs) SetNextBufferAddr(addr uint32) error {
	return r.write(regNextBuf, addr)
}

// NextBufferAddr returns the pending scan-out address.
func (r *Regs) NextBufferAddr() (uint32, error) {
	return r.read(regNextBuf)
}

// SetCurrentBufferAddr programs the buffer scanned out by the current frame.
// It is only meaningful while the controller is stopped.
func (r *Regs) SetCurrentBufferAddr(addr uint32) error {
	return r.write(regCurBuf, addr)
}

// CurrentBufferAddr returns the address being scanned out.
func (r *Regs) CurrentBufferAddr() (uint32, error) {
	return r.read(regCurBuf)
}

// InterruptStatus returns the pending IRQ* bits.
func (r *Regs) InterruptStatus() (uint32, error) {
	v, err := r.read(regCtrl1)
	return v & ctrl1IRQMask, err
}

// ClearInterruptStatus acknowledges the IRQ* bits in mask.
func (r *Regs) ClearInterruptStatus(mask uint32) error {
	return r.write(regCtrl1+clrOffset, mask&ctrl1IRQMask)
}

// EnableInterrupts unmasks the IRQ* bits in mask.
func (r *Regs) EnableInterrupts(mask uint32) error {
	return r.write(regCtrl1+setOffset, (mask&ctrl1IRQMask)<<ctrl1IRQEnablePos)
}

// DisableInterrupts masks the IRQ* bits in mask.
func (r *Regs) DisableInterrupts(mask uint32) error {
	return r.write(regCtrl1+clrOffset, (mask&ctrl1IRQMask)<<ctrl1IRQEnablePos)
}

// SetDataBus sets the panel data bus width.
func (r *Regs) SetDataBus(b DataBus) error {
	return r.update(regCtrl, ctrlDataBusMask, uint32(b)<<ctrlDataBusPos)
}

// DataBus returns the panel data bus width.
func (r *Regs) DataBus() (DataBus, error) {
	v, err := r.read(regCtrl)
	return DataBus((v & ctrlDataBusMask) >> ctrlDataBusPos), err
}

// SetWordLength sets the input word length field: 0 for 16 bits, 1 for 8,
// 2 for 18 and 3 for 24.
func (r *Regs) SetWordLength(n uint8) error {
	return r.update(regCtrl, ctrlWordLengthMask, uint32(n)<<ctrlWordLengthPos)
}

// WordLength returns the input word length field.
func (r *Regs) WordLength() (uint8, error) {
	v, err := r.read(regCtrl)
	return uint8((v & ctrlWordLengthMask) >> ctrlWordLengthPos), err
}

// SetBytePacking sets which bytes of each fetched 32-bit word are valid.
func (r *Regs) SetBytePacking(mask uint8) error {
	return r.update(regCtrl1, ctrl1BytePackingMask, uint32(mask&0xF)<<ctrl1BytePackingPos)
}

// BytePacking returns the valid-byte mask.
func (r *Regs) BytePacking() (uint8, error) {
	v, err := r.read(regCtrl1)
	return uint8((v & ctrl1BytePackingMask) >> ctrl1BytePackingPos), err
}

// formatFields returns the word length and byte packing for f.
func formatFields(f imagergb.Format) (wordLength, packing uint8, err error) {
	switch f {
	case imagergb.RGB565, imagergb.BGR565:
		return 0, 0xF, nil
	case imagergb.RGB888:
		return 3, 0xF, nil
	case imagergb.XRGB8888, imagergb.ARGB8888:
		return 3, 0x7, nil
	}
	return 0, 0, fmt.Errorf("lcdif: pixel format %s: %w", f, ErrNotSupported)
}

// SetPixelFormat programs the word length and byte packing for f.
func (r *Regs) SetPixelFormat(f imagergb.Format) error {
	wl, pk, err := formatFields(f)
	if err != nil {
		return err
	}
	if err := r.SetWordLength(wl); err != nil {
		return err
	}
	return r.SetBytePacking(pk)
}

// SetPolarity sets the active level of the control signals.
func (r *Regs) SetPolarity(p Polarity) error {
	var v uint32
	if p&DataEnableActiveHigh != 0 {
		v |= vdctrl0EnablePol
	}
	if p&VsyncActiveHigh != 0 {
		v |= vdctrl0VsyncPol
	}
	if p&HsyncActiveHigh != 0 {
		v |= vdctrl0HsyncPol
	}
	if p&DriveDataOnRisingClkEdge != 0 {
		v |= vdctrl0DotclkPol
	}
	return r.update(regVDCtrl0, vdctrl0PolarityMask, v)
}

// Polarity returns the active level of the control signals.
func (r *Regs) Polarity() (Polarity, error) {
	v, err := r.read(regVDCtrl0)
	var p Polarity
	if v&vdctrl0EnablePol != 0 {
		p |= DataEnableActiveHigh
	}
	if v&vdctrl0VsyncPol != 0 {
		p |= VsyncActiveHigh
	}
	if v&vdctrl0HsyncPol != 0 {
		p |= HsyncActiveHigh
	}
	if v&vdctrl0DotclkPol != 0 {
		p |= DriveDataOnRisingClkEdge
	}
	return p, err
}

// SetTransferCount sets the active area in pixels and lines.
func (r *Regs) SetTransferCount(width, height int) error {
	return r.write(regTransferCount, uint32(height)<<16|uint32(width)&0xFFFF)
}

// TransferCount returns the active area in pixels and lines.
func (r *Regs) TransferCount() (width, height int, err error) {
	v, err := r.read(regTransferCount)
	return int(v & 0xFFFF), int(v >> 16), err
}

// SetTiming programs the sync timing of a panel whose active width is width
// pixels and height lines. Polarity bits are preserved.
func (r *Regs) SetTiming(width, height int, t Timing) error {
	if err := r.update(regVDCtrl0, ^uint32(vdctrl0PolarityMask),
		vdctrl0EnablePresent|vdctrl0PulseWidthUnit|vdctrl0PeriodUnit|uint32(t.VSW)&0x3FFFF); err != nil {
		return err
	}
	if err := r.write(regVDCtrl1, uint32(t.VSW+t.VBP+height+t.VFP)); err != nil {
		return err
	}
	if err := r.write(regVDCtrl2, uint32(t.HSW)<<18|uint32(t.HSW+t.HBP+width+t.HFP)&0x3FFFF); err != nil {
		return err
	}
	if err := r.write(regVDCtrl3, uint32(t.HSW+t.HBP)<<16|uint32(t.VSW+t.VBP)&0xFFFF); err != nil {
		return err
	}
	return r.write(regVDCtrl4, vdctrl4SyncSignalsOn|uint32(width)&0x3FFFF)
}

// Timing reads the sync timing back. PixelClock is not held by the block
// and is left zero.
func (r *Regs) Timing() (Timing, error) {
	var v [5]uint32
	for i, reg := range []uint16{regVDCtrl0, regVDCtrl1, regVDCtrl2, regVDCtrl3, regVDCtrl4} {
		x, err := r.read(reg)
		if err != nil {
			return Timing{}, err
		}
		v[i] = x
	}
	vsw := int(v[0] & 0x3FFFF)
	vperiod := int(v[1])
	hsw := int(v[2] >> 18)
	hperiod := int(v[2] & 0x3FFFF)
	hwait := int(v[3] >> 16 & 0xFFF)
	vwait := int(v[3] & 0xFFFF)
	width := int(v[4] & 0x3FFFF)
	_, height, err := r.TransferCount()
	if err != nil {
		return Timing{}, err
	}
	return Timing{
		HSW: hsw,
		HBP: hwait - hsw,
		HFP: hperiod - hwait - width,
		VSW: vsw,
		VBP: vwait - vsw,
		VFP: vperiod - vwait - height,
	}, nil
}

// Start begins scanning out.
func (r *Regs) Start() error {
	return r.update(regCtrl, ctrlRun, ctrlRun)
}

// Stop halts scan-out at the end of the current frame.
func (r *Regs) Stop() error {
	return r.update(regCtrl, ctrlRun, 0)
}

// Running reports whether scan-out is enabled.
func (r *Regs) Running() (bool, error) {
	v, err := r.read(regCtrl)
	return v&ctrlRun != 0, err
}

// Init programs m into a stopped controller, enables the frame-done
// interrupt and starts scan-out from m.BufferAddr.
func (r *Regs) Init(m *RGBMode) error {
	wl, pk, err := formatFields(m.Format)
	if err != nil {
		return err
	}
	if err := r.Stop(); err != nil {
		return err
	}
	ctrl := uint32(ctrlMaster | ctrlDotclkMode | ctrlBypassCount)
	ctrl |= uint32(wl) << ctrlWordLengthPos
	ctrl |= uint32(m.DataBus) << ctrlDataBusPos
	if err := r.write(regCtrl, ctrl); err != nil {
		return err
	}
	if err := r.write(regCtrl1, uint32(pk)<<ctrl1BytePackingPos); err != nil {
		return err
	}
	if err := r.SetTransferCount(m.Width, m.Height); err != nil {
		return err
	}
	if err := r.write(regVDCtrl0, 0); err != nil {
		return err
	}
	if err := r.SetTiming(m.Width, m.Height, m.Timing); err != nil {
		return err
	}
	if err := r.SetPolarity(m.Polarity); err != nil {
		return err
	}
	if err := r.SetCurrentBufferAddr(m.BufferAddr); err != nil {
		return err
	}
	if err := r.SetNextBufferAddr(m.BufferAddr); err != nil {
		return err
	}
	if err := r.EnableInterrupts(IRQCurFrameDone); err != nil {
		return err
	}
	return r.Start()
}
