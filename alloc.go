package lcdif

import (
	"fmt"
	"math"
	"sync"

	"periph.io/x/host/v3/pmem"
)

// Buffer is a block of memory visible to both the CPU and the bus masters
// (panel controller, blit engine).
type Buffer struct {
	Pix  []byte // CPU view
	Addr uint32 // Bus address of Pix[0]; 0 when unknown
}

// Allocator supplies the frame buffers.
//
// The allocator is owned by whoever creates the Dev and injected into New;
// lcdif keeps no global pool.
type Allocator interface {
	Alloc(n int) (Buffer, error)
}

// arenaAlign keeps every block on its own cache line so cache maintenance on
// one buffer never touches its neighbour.
const arenaAlign = 64

// Arena is a fixed-size bump allocator over a single memory region whose bus
// address is known. Blocks are never freed.
type Arena struct {
	mu   sync.Mutex
	base uint32
	mem  []byte
	next int
}

// NewArena returns an Arena of size bytes based at bus address base.
func NewArena(base uint32, size int) *Arena {
	return NewArenaOver(base, make([]byte, size))
}

// NewArenaOver returns an Arena carving blocks out of mem, whose first byte
// sits at bus address base.
func NewArenaOver(base uint32, mem []byte) *Arena {
	return &Arena{base: base, mem: mem}
}

// Alloc returns a zeroed block of n bytes.
func (a *Arena) Alloc(n int) (Buffer, error) {
	if n <= 0 {
		return Buffer{}, fmt.Errorf("lcdif: invalid allocation size %d: %w", n, ErrInvalidArgument)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	off := (a.next + arenaAlign - 1) &^ (arenaAlign - 1)
	if off+n > len(a.mem) || off+n < off {
		return Buffer{}, fmt.Errorf("lcdif: arena exhausted (%d of %d bytes used, %d requested): %w",
			a.next, len(a.mem), n, ErrOutOfMemory)
	}
	a.next = off + n
	pix := a.mem[off : off+n : off+n]
	clear(pix)
	return Buffer{Pix: pix, Addr: a.base + uint32(off)}, nil
}

// Slice resolves the bus address range [addr, addr+n) back to its CPU view.
func (a *Arena) Slice(addr uint32, n int) ([]byte, error) {
	if addr < a.base || n < 0 {
		return nil, fmt.Errorf("lcdif: address %#x outside arena: %w", addr, ErrInvalidArgument)
	}
	off := int(addr - a.base)
	if off+n > len(a.mem) {
		return nil, fmt.Errorf("lcdif: range %#x+%d outside arena: %w", addr, n, ErrInvalidArgument)
	}
	return a.mem[off : off+n], nil
}

// Available returns the number of bytes not yet handed out.
func (a *Arena) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mem) - a.next
}

// PhysAllocator allocates physically contiguous, locked memory through the
// host's pmem driver. It only works on Linux with sufficient privileges.
type PhysAllocator struct {
	mu     sync.Mutex
	allocs []*pmem.MemAlloc
}

// Alloc returns n bytes of physically contiguous memory rounded up to a page.
func (p *PhysAllocator) Alloc(n int) (Buffer, error) {
	if n <= 0 {
		return Buffer{}, fmt.Errorf("lcdif: invalid allocation size %d: %w", n, ErrInvalidArgument)
	}
	m, err := pmem.Alloc((n + 0xFFF) &^ 0xFFF)
	if err != nil {
		return Buffer{}, fmt.Errorf("lcdif: pmem: %v: %w", err, ErrOutOfMemory)
	}
	phys := m.PhysAddr()
	if phys > math.MaxUint32 {
		_ = m.Close()
		return Buffer{}, fmt.Errorf("lcdif: pmem block at %#x is above the 32-bit bus: %w", phys, ErrOutOfMemory)
	}
	p.mu.Lock()
	p.allocs = append(p.allocs, m)
	p.mu.Unlock()

	pix := m.Bytes()[:n]
	clear(pix)
	return Buffer{Pix: pix, Addr: uint32(phys)}, nil
}

// Close releases every block handed out so far.
func (p *PhysAllocator) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	for _, m := range p.allocs {
		if err := m.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.allocs = nil
	return first
}
