package mem

import "testing"

func TestTranslatorIdentity(t *testing.T) {
	tr := &Translator{Mode: ModeIdentity}
	if tr.VirtToPhys(0x1000) != 0x1000 {
		t.Fatal("identity VirtToPhys mismatch")
	}
	if tr.PhysToVirt(0x1000) != 0x1000 {
		t.Fatal("identity PhysToVirt mismatch")
	}
}

func TestTranslatorOffset(t *testing.T) {
	tr := &Translator{Mode: ModeOffset, Offset: 0xffff800000000000}
	v := tr.PhysToVirt(0x2000)
	if v != VirtAddr(0xffff800000002000) {
		t.Fatalf("offset PhysToVirt = %#x", v)
	}
	if tr.VirtToPhys(v) != 0x2000 {
		t.Fatal("offset round trip failed")
	}
}

type fakeWalker struct {
	pa PhysAddr
	ok bool
}

func (w fakeWalker) Walk(pml4 PhysAddr, va VirtAddr) (PhysAddr, uintptr, bool) {
	return w.pa, PTE_P | PTE_W, w.ok
}

func TestTranslatorWalkFailureSentinel(t *testing.T) {
	tr := &Translator{Mode: ModeWalk, Walker: fakeWalker{ok: false}}
	if tr.VirtToPhys(0x1000) != BadPhys64 {
		t.Fatal("expected BadPhys64 sentinel on failed walk")
	}
}

func TestTranslatorWalkSuccess(t *testing.T) {
	tr := &Translator{Mode: ModeWalk, Walker: fakeWalker{pa: 0x5000, ok: true}}
	got := tr.VirtToPhys(0x1234)
	want := VirtAddr(0x5000 + 0x234)
	if got != want {
		t.Fatalf("VirtToPhys via walk = %#x, want %#x", got, want)
	}
}
