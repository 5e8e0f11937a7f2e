// Package mem models physical RAM and the bookkeeping around it: a
// simulated byte-addressable arena standing in for DRAM, a chunked-bitmap
// frame allocator over that arena, and the phys<->virt translation helpers
// (vmem) the 4-level mapper relies on.
package mem

import "math"

// PhysAddr is a physical address, never owning the memory it names — the
// hardware (or, here, the simulated Arena) holds the only real reference.
type PhysAddr uintptr

// VirtAddr is a virtual address.
type VirtAddr uintptr

const (
	PGSHIFT  = 12
	PGSIZE   = 1 << PGSHIFT
	PGOFFSET = PGSIZE - 1
	PGMASK   = ^uintptr(PGOFFSET)

	PTE_P   = 1 << 0
	PTE_W   = 1 << 1
	PTE_U   = 1 << 2
	PTE_PS  = 1 << 7
	PTE_G   = 1 << 8
	PTE_NX  = 1 << 63
	PTE_ADDR = PhysAddr(0x000ffffffffff000)
)

// BadPhys32/BadPhys64 are the vmem error sentinels: phys_to_virt /
// virt_to_phys return these on failed translation instead of an error
// value, following the UINT32_MAX/UINT64_MAX convention.
const (
	BadPhys32 = VirtAddr(math.MaxUint32)
	BadPhys64 = VirtAddr(math.MaxUint64)
)

// PageRound rounds a byte count up to a whole number of pages.
func PageRound(n uintptr) uintptr {
	return (n + PGOFFSET) &^ PGOFFSET
}

// PageAlignDown rounds a virtual or physical address down to its page.
func PageAlignDown[T ~uintptr](a T) T {
	return a &^ T(PGOFFSET)
}

// PageAlignUp rounds a virtual or physical address up to its page.
func PageAlignUp[T ~uintptr](a T) T {
	return (a + T(PGOFFSET)) &^ T(PGOFFSET)
}
