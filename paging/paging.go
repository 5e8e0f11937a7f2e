// Package paging implements the 4-level x86-64 page mapper: PML4 → PDPT →
// PD → PT, each a 512-entry table occupying one physical frame. Tables
// are modeled as ordinary frames drawn from a mem.Allocator and read or
// written through mem.Arena, never through a host pointer.
package paging

import (
	"errors"
	"sync"

	"github.com/nekogakure/litecore/mem"
)

const entriesPerTable = 512

var (
	// ErrMapping is the MappingFailure-class error: an intermediate table
	// could not be allocated. The ELF loader aborts task creation on this.
	ErrMapping = errors.New("paging: intermediate table allocation failed")
)

// Mapper owns the frame allocator and arena backing every page table it
// creates or walks.
type Mapper struct {
	mu    sync.Mutex
	arena *mem.Arena
	alloc *mem.Allocator
}

// New creates a Mapper over the given arena and frame allocator.
func New(arena *mem.Arena, alloc *mem.Allocator) *Mapper {
	return &Mapper{arena: arena, alloc: alloc}
}

func pageIndex(va mem.VirtAddr, shift uint) int {
	return int((uintptr(va) >> shift) & 0x1ff)
}

func pml4i(va mem.VirtAddr) int { return pageIndex(va, 39) }
func pdpti(va mem.VirtAddr) int { return pageIndex(va, 30) }
func pdi(va mem.VirtAddr) int   { return pageIndex(va, 21) }
func pti(va mem.VirtAddr) int   { return pageIndex(va, 12) }

func (m *Mapper) readEntry(table mem.PhysAddr, idx int) uint64 {
	pg := m.arena.Page(table)
	off := idx * 8
	return uint64(pg[off]) | uint64(pg[off+1])<<8 | uint64(pg[off+2])<<16 |
		uint64(pg[off+3])<<24 | uint64(pg[off+4])<<32 | uint64(pg[off+5])<<40 |
		uint64(pg[off+6])<<48 | uint64(pg[off+7])<<56
}

func (m *Mapper) writeEntry(table mem.PhysAddr, idx int, val uint64) {
	pg := m.arena.Page(table)
	off := idx * 8
	pg[off] = byte(val)
	pg[off+1] = byte(val >> 8)
	pg[off+2] = byte(val >> 16)
	pg[off+3] = byte(val >> 24)
	pg[off+4] = byte(val >> 32)
	pg[off+5] = byte(val >> 40)
	pg[off+6] = byte(val >> 48)
	pg[off+7] = byte(val >> 56)
}

// invlpg is the Go stand-in for the x86 INVLPG instruction: there is no
// real TLB to invalidate in a hosted process, so this only exists as a
// named call site documenting where hardware invalidation would occur.
func (m *Mapper) invlpg(va mem.VirtAddr) {}

// AllocTable allocates and zeroes a fresh page-table frame.
func (m *Mapper) AllocTable() (mem.PhysAddr, bool) {
	p, ok := m.alloc.AllocFrame()
	return p, ok
}

// NewPML4 allocates a zeroed top-level table, used to build the initial
// kernel PML4 at boot (cloned from the UEFI-supplied one) as well as
// for CreateUserPML4.
func (m *Mapper) NewPML4() (mem.PhysAddr, error) {
	p, ok := m.AllocTable()
	if !ok {
		return 0, ErrMapping
	}
	return p, nil
}

// getOrCreate returns the next-level table physical address referenced
// by entry idx of table, allocating and installing one on demand with
// PRESENT|RW|USER flags (NX cleared) if absent.
func (m *Mapper) getOrCreate(table mem.PhysAddr, idx int) (mem.PhysAddr, error) {
	e := m.readEntry(table, idx)
	if e&mem.PTE_P != 0 {
		return mem.PhysAddr(e) & mem.PTE_ADDR, nil
	}
	next, ok := m.AllocTable()
	if !ok {
		return 0, ErrMapping
	}
	m.writeEntry(table, idx, uint64(next)|mem.PTE_P|mem.PTE_W|mem.PTE_U)
	return next, nil
}

// MapPage64 maps a single 4 KiB page: phys -> virt within the address
// space rooted at pml4Phys, with the given low-12-bit flags (NX is
// always cleared). Intermediate tables are allocated on demand. If the
// PD entry currently holds a 2 MiB large page, it is split into a fresh
// PT replicating the original mapping before the new PTE is installed.
func (m *Mapper) MapPage64(pml4Phys mem.PhysAddr, phys mem.PhysAddr, virt mem.VirtAddr, flags uintptr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pdpt, err := m.getOrCreate(pml4Phys, pml4i(virt))
	if err != nil {
		return err
	}
	pd, err := m.getOrCreate(pdpt, pdpti(virt))
	if err != nil {
		return err
	}

	pdEntry := m.readEntry(pd, pdi(virt))
	var pt mem.PhysAddr
	if pdEntry&mem.PTE_P != 0 && pdEntry&mem.PTE_PS != 0 {
		pt, err = m.splitLargePage(pd, pdi(virt), pdEntry)
		if err != nil {
			return err
		}
		m.invlpg(mem.VirtAddr(mem.PageAlignDown(uintptr(virt)) &^ (1<<21 - 1)))
	} else {
		pt, err = m.getOrCreate(pd, pdi(virt))
		if err != nil {
			return err
		}
	}

	pte := uint64(phys)&uint64(mem.PTE_ADDR) | (uint64(flags) & 0xfff)
	pte &^= mem.PTE_NX
	m.writeEntry(pt, pti(virt), pte)
	m.invlpg(virt)
	return nil
}

// splitLargePage replaces a 2 MiB PD entry with a freshly allocated PT
// whose 512 4 KiB entries replicate the original mapping (base address
// plus per-entry offset, flags preserved, PS bit cleared).
func (m *Mapper) splitLargePage(pd mem.PhysAddr, idx int, pdEntry uint64) (mem.PhysAddr, error) {
	pt, ok := m.AllocTable()
	if !ok {
		return 0, ErrMapping
	}
	base := mem.PhysAddr(pdEntry) & mem.PTE_ADDR
	flags := (pdEntry &^ uint64(mem.PTE_ADDR)) &^ mem.PTE_PS
	for i := 0; i < entriesPerTable; i++ {
		entryPhys := base + mem.PhysAddr(i)*mem.PGSIZE
		m.writeEntry(pt, i, uint64(entryPhys)|flags)
	}
	m.writeEntry(pd, idx, uint64(pt)|mem.PTE_P|mem.PTE_W|mem.PTE_U)
	return pt, nil
}

// CreateUserPML4 allocates a zeroed PML4 for a new task: kernel entries
// [256..512) are copied from the kernel PML4, entry [0] is cloned too (so
// the identity low-4GiB map stays visible), and [1..255) are left zeroed
// for the task's own user-space mappings.
func (m *Mapper) CreateUserPML4(kernelPML4 mem.PhysAddr) (mem.PhysAddr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.AllocTable()
	if !ok {
		return 0, ErrMapping
	}
	for i := 256; i < entriesPerTable; i++ {
		m.writeEntry(p, i, m.readEntry(kernelPML4, i))
	}
	m.writeEntry(p, 0, m.readEntry(kernelPML4, 0))
	return p, nil
}

// Unmap clears the PTE for virt in the given address space, if present.
// It does not free intermediate tables: task exit discards the whole
// address space at once, so per-page teardown isn't needed here.
func (m *Mapper) Unmap(pml4Phys mem.PhysAddr, virt mem.VirtAddr) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.readEntry(pml4Phys, pml4i(virt))
	if e&mem.PTE_P == 0 {
		return
	}
	pdpt := mem.PhysAddr(e) & mem.PTE_ADDR
	e = m.readEntry(pdpt, pdpti(virt))
	if e&mem.PTE_P == 0 {
		return
	}
	pd := mem.PhysAddr(e) & mem.PTE_ADDR
	e = m.readEntry(pd, pdi(virt))
	if e&mem.PTE_P == 0 || e&mem.PTE_PS != 0 {
		return
	}
	pt := mem.PhysAddr(e) & mem.PTE_ADDR
	m.writeEntry(pt, pti(virt), 0)
	m.invlpg(virt)
}

// Walk implements mem.Walker: it resolves virt to its containing frame's
// physical address (honoring 1 GiB/2 MiB large pages) and the flags of
// the matching entry. ok is false if any level along the path is absent.
func (m *Mapper) Walk(pml4Phys mem.PhysAddr, virt mem.VirtAddr) (mem.PhysAddr, uintptr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.readEntry(pml4Phys, pml4i(virt))
	if e&mem.PTE_P == 0 {
		return 0, 0, false
	}
	pdpt := mem.PhysAddr(e) & mem.PTE_ADDR

	e = m.readEntry(pdpt, pdpti(virt))
	if e&mem.PTE_P == 0 {
		return 0, 0, false
	}
	if e&mem.PTE_PS != 0 {
		base := mem.PhysAddr(e) & mem.PTE_ADDR
		off := uintptr(virt) & (1<<30 - 1)
		return mem.PageAlignDown(base + mem.PhysAddr(off)), uintptr(e) & 0xfff, true
	}
	pd := mem.PhysAddr(e) & mem.PTE_ADDR

	e = m.readEntry(pd, pdi(virt))
	if e&mem.PTE_P == 0 {
		return 0, 0, false
	}
	if e&mem.PTE_PS != 0 {
		base := mem.PhysAddr(e) & mem.PTE_ADDR
		off := uintptr(virt) & (1<<21 - 1)
		return mem.PageAlignDown(base + mem.PhysAddr(off)), uintptr(e) & 0xfff, true
	}
	pt := mem.PhysAddr(e) & mem.PTE_ADDR

	e = m.readEntry(pt, pti(virt))
	if e&mem.PTE_P == 0 {
		return 0, 0, false
	}
	return mem.PhysAddr(e) & mem.PTE_ADDR, uintptr(e) & 0xfff, true
}
