package mem

import "fmt"

// Arena is the simulated physical RAM backing store. Real hardware simply
// has bytes at addresses; here those bytes live in a Go slice, and every
// other package reaches physical memory only through Arena.Bytes so that
// the rest of the kernel never depends on host pointer arithmetic.
type Arena struct {
	base  PhysAddr
	bytes []byte
}

// NewArena allocates an arena of size bytes, addressed starting at base.
// size must be a multiple of PGSIZE.
func NewArena(base PhysAddr, size int) *Arena {
	if size%PGSIZE != 0 {
		panic("mem: arena size must be page aligned")
	}
	return &Arena{base: base, bytes: make([]byte, size)}
}

// Base returns the lowest physical address this arena covers.
func (a *Arena) Base() PhysAddr { return a.base }

// Size returns the number of bytes this arena covers.
func (a *Arena) Size() int { return len(a.bytes) }

// End returns the first physical address past this arena.
func (a *Arena) End() PhysAddr { return a.base + PhysAddr(len(a.bytes)) }

// Contains reports whether p lies within this arena.
func (a *Arena) Contains(p PhysAddr) bool {
	return p >= a.base && p < a.End()
}

// Bytes returns a slice view of n bytes at physical address p. It panics
// if the requested range is not fully contained in the arena — a
// MappingFailure-class programmer error, not a runtime condition this
// module recovers from.
func (a *Arena) Bytes(p PhysAddr, n int) []byte {
	if !a.Contains(p) || !a.Contains(p+PhysAddr(n)-1) {
		panic(fmt.Sprintf("mem: address range [%#x,%#x) outside arena [%#x,%#x)",
			p, p+PhysAddr(n), a.base, a.End()))
	}
	off := int(p - a.base)
	return a.bytes[off : off+n]
}

// Page returns the PGSIZE-byte slice backing the frame at physical
// address p. p must be page aligned.
func (a *Arena) Page(p PhysAddr) []byte {
	if p%PGSIZE != 0 {
		panic("mem: Page: unaligned physical address")
	}
	return a.Bytes(p, PGSIZE)
}

// ZeroPage zeroes the frame at physical address p.
func (a *Arena) ZeroPage(p PhysAddr) {
	pg := a.Page(p)
	for i := range pg {
		pg[i] = 0
	}
}
