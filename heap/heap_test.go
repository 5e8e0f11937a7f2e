package heap

import "testing"

// TestHeapCoalescing checks that after any kmalloc/kfree sequence
// that ends with everything freed, each region's free list has exactly
// one block covering it.
func TestHeapCoalescing(t *testing.T) {
	h := New(64*1024, nil)
	var ptrs []Ptr
	sizes := []int{100, 200, 4096, 64, 1024}
	for _, sz := range sizes {
		p := h.Kmalloc(sz)
		if !p.Valid() {
			t.Fatalf("Kmalloc(%d) failed", sz)
		}
		ptrs = append(ptrs, p)
	}
	for i, p := range ptrs {
		h.Kfree(p, sizes[i])
	}
	if got := h.FreeListLen(); got != h.Regions() {
		t.Fatalf("FreeListLen = %d, want %d (one free block per region)", got, h.Regions())
	}
}

func TestHeapCoalescingOutOfOrder(t *testing.T) {
	h := New(64*1024, nil)
	sizes := []int{128, 256, 512, 1024}
	var ptrs []Ptr
	for _, sz := range sizes {
		ptrs = append(ptrs, h.Kmalloc(sz))
	}
	// free out of address order: middle first, then ends, then remainder
	order := []int{1, 3, 0, 2}
	for _, i := range order {
		h.Kfree(ptrs[i], sizes[i])
	}
	if got := h.FreeListLen(); got != h.Regions() {
		t.Fatalf("FreeListLen = %d, want %d", got, h.Regions())
	}
}

// TestHeapCanaryMismatch checks that writing past the requested
// payload is detected as a canary mismatch on free (logged, non-fatal:
// Kfree must not panic and must still release the block).
func TestHeapCanaryMismatch(t *testing.T) {
	h := New(64*1024, nil)
	p := h.Kmalloc(16)
	buf := h.Bytes(p, 16+8) // deliberately overrun into the canary
	for i := range buf {
		buf[i] = 0xAA
	}
	before := h.CanaryBad.Get()
	h.Kfree(p, 16)
	if h.CanaryBad.Get() != before+1 {
		t.Fatal("expected canary mismatch to be recorded")
	}
}

func TestHeapCanaryIntact(t *testing.T) {
	h := New(64*1024, nil)
	p := h.Kmalloc(16)
	buf := h.Bytes(p, 16)
	for i := range buf {
		buf[i] = 0x42
	}
	before := h.CanaryBad.Get()
	h.Kfree(p, 16)
	if h.CanaryBad.Get() != before {
		t.Fatal("expected no canary mismatch for well-behaved write")
	}
}

// TestHeapExpansion checks that starting from a fresh 2 MiB heap,
// allocating 32 blocks of 64 KiB, the 33rd triggers an expansion of at
// least 1 MiB and succeeds.
func TestHeapExpansion(t *testing.T) {
	h := New(2<<20, nil)
	blockSize := 64 * 1024
	for i := 0; i < 32; i++ {
		if p := h.Kmalloc(blockSize); !p.Valid() {
			t.Fatalf("allocation %d failed", i)
		}
	}
	before := h.Regions()
	p := h.Kmalloc(blockSize)
	if !p.Valid() {
		t.Fatal("33rd allocation should have triggered expansion and succeeded")
	}
	if h.Regions() <= before {
		t.Fatal("expected heap to have grown a new region")
	}
}

func TestHasSpace(t *testing.T) {
	h := New(4096, nil)
	if !h.HasSpace(100) {
		t.Fatal("expected space for a small allocation in a fresh heap")
	}
}

func TestKmallocSplitsLargeBlock(t *testing.T) {
	h := New(64*1024, nil)
	p1 := h.Kmalloc(100)
	p2 := h.Kmalloc(100)
	if p1.region != p2.region {
		t.Fatal("expected both small allocations in the same region")
	}
	if p1.off == p2.off {
		t.Fatal("expected distinct offsets for split allocations")
	}
}
