package lcdif

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"periph.io/x/conn/v3"
	"periph.io/x/host/v3/pmem"
)

// MMIO exposes a memory-mapped register window as a conn.Conn speaking the
// framing of mmr.Dev16 with little-endian order: a write carries a 16-bit
// register offset followed by a 32-bit value, a read carries the offset and
// expects 4 bytes back.
//
// Only aligned 32-bit accesses are supported. Each access is a single atomic
// load or store so it is never merged or elided.
type MMIO struct {
	name  string
	words []uint32
	mem   io.Closer
}

// OpenMMIO maps size bytes of physical memory at base. It requires access to
// /dev/mem.
func OpenMMIO(base uint64, size int) (*MMIO, error) {
	v, err := pmem.Map(base, size)
	if err != nil {
		return nil, fmt.Errorf("lcdif: map %#x: %w", base, err)
	}
	return &MMIO{
		name:  fmt.Sprintf("mmio(%#x)", base),
		words: v.Uint32(),
		mem:   v,
	}, nil
}

// NewMMIO wraps an already mapped register window.
func NewMMIO(name string, words []uint32) *MMIO {
	return &MMIO{name: name, words: words}
}

func (m *MMIO) String() string {
	return m.name
}

// Duplex implements conn.Conn.
func (m *MMIO) Duplex() conn.Duplex {
	return conn.Half
}

// Tx implements conn.Conn.
func (m *MMIO) Tx(w, r []byte) error {
	if len(w) < 2 {
		return errors.New("lcdif: mmio: missing register offset")
	}
	off := binary.LittleEndian.Uint16(w)
	if off%4 != 0 {
		return fmt.Errorf("lcdif: mmio: unaligned register %#x", off)
	}
	i := int(off / 4)
	if i >= len(m.words) {
		return fmt.Errorf("lcdif: mmio: register %#x outside %d byte window", off, len(m.words)*4)
	}
	data := w[2:]
	switch {
	case len(data) == 4 && len(r) == 0:
		atomic.StoreUint32(&m.words[i], binary.LittleEndian.Uint32(data))
	case len(data) == 0 && len(r) == 4:
		binary.LittleEndian.PutUint32(r, atomic.LoadUint32(&m.words[i]))
	default:
		return fmt.Errorf("lcdif: mmio: only 32-bit accesses are supported (w=%d, r=%d)", len(data), len(r))
	}
	return nil
}

// Close unmaps the window.
func (m *MMIO) Close() error {
	if m.mem == nil {
		return nil
	}
	return m.mem.Close()
}
