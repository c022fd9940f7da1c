package lcdif

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/devices/v3/lcdif/imagergb"
)

// regWindow returns a register file covering the eLCDIF block.
func regWindow() ([]uint32, *Regs) {
	words := make([]uint32, 0x100/4)
	return words, NewRegs(NewMMIO("lcdif-test", words))
}

func TestRegsInit(t *testing.T) {
	words, r := regWindow()
	err := r.Init(&RGBMode{
		Width:      480,
		Height:     272,
		Format:     imagergb.RGB565,
		DataBus:    DataBus16Bit,
		Timing:     DefaultTiming,
		Polarity:   DataEnableActiveHigh,
		BufferAddr: 0x80000000,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	tests := []struct {
		name string
		reg  int
		want uint32
	}{
		{"CTRL", regCtrl, ctrlRun | ctrlMaster | ctrlDotclkMode | ctrlBypassCount},
		{"CTRL1", regCtrl1, 0xF << ctrl1BytePackingPos},
		{"CTRL1_SET", regCtrl1 + setOffset, IRQCurFrameDone << ctrl1IRQEnablePos},
		{"TRANSFER_COUNT", regTransferCount, 272<<16 | 480},
		{"CUR_BUF", regCurBuf, 0x80000000},
		{"NEXT_BUF", regNextBuf, 0x80000000},
		{"VDCTRL1", regVDCtrl1, 10 + 2 + 272 + 4},
		{"VDCTRL2", regVDCtrl2, 41<<18 | (41 + 8 + 480 + 4)},
		{"VDCTRL3", regVDCtrl3, (41+8)<<16 | (10 + 2)},
		{"VDCTRL4", regVDCtrl4, vdctrl4SyncSignalsOn | 480},
	}
	for _, tt := range tests {
		if got := words[tt.reg/4]; got != tt.want {
			t.Errorf("%s = %#08x, want %#08x", tt.name, got, tt.want)
		}
	}

	want := DefaultTiming
	want.PixelClock = 0
	if got, err := r.Timing(); err != nil || got != want {
		t.Errorf("Timing() = %+v, %v, want %+v", got, err, want)
	}
	if p, err := r.Polarity(); err != nil || p != DataEnableActiveHigh {
		t.Errorf("Polarity() = %d, %v, want DataEnableActiveHigh", p, err)
	}
	if ok, err := r.Running(); err != nil || !ok {
		t.Errorf("Running() = %v, %v, want true", ok, err)
	}
	if w, h, err := r.TransferCount(); err != nil || w != 480 || h != 272 {
		t.Errorf("TransferCount() = %d, %d, %v, want 480, 272", w, h, err)
	}
}

func TestRegsInitUnsupportedFormat(t *testing.T) {
	words, r := regWindow()
	if err := r.Init(&RGBMode{Width: 8, Height: 4, Format: imagergb.Invalid}); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Init() error = %v, want ErrNotSupported", err)
	}
	for i, w := range words {
		if w != 0 {
			t.Errorf("register %#02x written to %#x", i*4, w)
		}
	}
}

func TestRegsPixelFormat(t *testing.T) {
	tests := []struct {
		f       imagergb.Format
		wl      uint8
		packing uint8
	}{
		{imagergb.RGB565, 0, 0xF},
		{imagergb.BGR565, 0, 0xF},
		{imagergb.RGB888, 3, 0xF},
		{imagergb.XRGB8888, 3, 0x7},
		{imagergb.ARGB8888, 3, 0x7},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			_, r := regWindow()
			if err := r.SetDataBus(DataBus24Bit); err != nil {
				t.Fatal(err)
			}
			if err := r.SetPixelFormat(tt.f); err != nil {
				t.Fatal(err)
			}
			if wl, _ := r.WordLength(); wl != tt.wl {
				t.Errorf("WordLength() = %d, want %d", wl, tt.wl)
			}
			if pk, _ := r.BytePacking(); pk != tt.packing {
				t.Errorf("BytePacking() = %#x, want %#x", pk, tt.packing)
			}
			// Neighbouring fields are preserved.
			if b, _ := r.DataBus(); b != DataBus24Bit {
				t.Errorf("DataBus() = %s, want 24bit", b)
			}
		})
	}
}

func TestRegsInterrupts(t *testing.T) {
	words, r := regWindow()
	words[regCtrl1/4] = IRQCurFrameDone | IRQUnderflow | 0x7<<ctrl1BytePackingPos
	st, err := r.InterruptStatus()
	if err != nil {
		t.Fatal(err)
	}
	if st != IRQCurFrameDone|IRQUnderflow {
		t.Errorf("InterruptStatus() = %#x, want %#x", st, IRQCurFrameDone|IRQUnderflow)
	}
	if err := r.ClearInterruptStatus(st | 1); err != nil {
		t.Fatal(err)
	}
	if got := words[(regCtrl1+clrOffset)/4]; got != st {
		t.Errorf("CTRL1_CLR = %#x, want %#x", got, st)
	}
	if err := r.DisableInterrupts(IRQOverflow); err != nil {
		t.Fatal(err)
	}
	if got, want := words[(regCtrl1+clrOffset)/4], IRQOverflow<<ctrl1IRQEnablePos; got != want {
		t.Errorf("CTRL1_CLR = %#x, want %#x", got, want)
	}
}

func TestRegsStartStop(t *testing.T) {
	words, r := regWindow()
	words[regCtrl/4] = ctrlMaster
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if words[regCtrl/4] != ctrlMaster|ctrlRun {
		t.Errorf("CTRL = %#x after Start", words[regCtrl/4])
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
	if words[regCtrl/4] != ctrlMaster {
		t.Errorf("CTRL = %#x after Stop", words[regCtrl/4])
	}
}

func TestRegsBufferAddrPlayback(t *testing.T) {
	c := &conntest.Playback{
		Ops: []conntest.IO{
			{W: []byte{0x50, 0x00, 0x00, 0x10, 0x00, 0x80}},
			{W: []byte{0x50, 0x00}, R: []byte{0x00, 0x10, 0x00, 0x80}},
			{W: []byte{0x40, 0x00}, R: []byte{0x00, 0x00, 0x00, 0x80}},
		},
		D: conn.Half,
	}
	r := NewRegs(c)
	if err := r.SetNextBufferAddr(0x80001000); err != nil {
		t.Fatal(err)
	}
	if got, err := r.NextBufferAddr(); err != nil || got != 0x80001000 {
		t.Errorf("NextBufferAddr() = %#x, %v", got, err)
	}
	if got, err := r.CurrentBufferAddr(); err != nil || got != 0x80000000 {
		t.Errorf("CurrentBufferAddr() = %#x, %v", got, err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestTimingFrameRate(t *testing.T) {
	if got := (Timing{}).FrameRate(0, 0); got != 0 {
		t.Errorf("FrameRate() of empty timing = %s, want 0", got)
	}
	tm := Timing{PixelClock: DefaultTiming.PixelClock}
	if got, want := tm.FrameRate(10, 10), DefaultTiming.PixelClock/100; got != want {
		t.Errorf("FrameRate() = %s, want %s", got, want)
	}
}

func TestNewProgramsController(t *testing.T) {
	words := make([]uint32, 0x100/4)
	a := NewArena(0x80000000, 1<<12)
	d, err := New(NewMMIO("lcdif-test", words), a, &Opts{W: 8, H: 4})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := words[regNextBuf/4]; got != d.store.Front().Addr {
		t.Errorf("NEXT_BUF = %#x, want Front %#x", got, d.store.Front().Addr)
	}
	if words[regCtrl/4]&ctrlRun == 0 {
		t.Error("controller not started")
	}
	if err := d.Write(pattern(0, 0, 8, 4, 1)); err != nil {
		t.Fatal(err)
	}
	if got := words[regNextBuf/4]; got != d.store.Front().Addr {
		t.Errorf("NEXT_BUF = %#x after write, want %#x", got, d.store.Front().Addr)
	}
	words[regCtrl1/4] |= IRQCurFrameDone
	if err := d.HandleIRQ(); err != nil {
		t.Fatal(err)
	}
	if got := words[(regCtrl1+clrOffset)/4]; got != IRQCurFrameDone {
		t.Errorf("CTRL1_CLR = %#x, want %#x", got, IRQCurFrameDone)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if words[regCtrl/4]&ctrlRun != 0 {
		t.Error("Halt() did not stop the controller")
	}
}
