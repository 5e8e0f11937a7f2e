package vecalloc

import "testing"

func TestAllocFreeRoundTrip(t *testing.T) {
	a := New()
	total := a.Available()
	v, ok := a.Alloc()
	if !ok {
		t.Fatal("expected an available vector")
	}
	if a.Available() != total-1 {
		t.Fatal("expected available count to drop by one")
	}
	a.Free(v)
	if a.Available() != total {
		t.Fatal("expected available count to be restored after free")
	}
}

func TestAllocExhaustion(t *testing.T) {
	a := New()
	n := a.Available()
	for i := 0; i < n; i++ {
		if _, ok := a.Alloc(); !ok {
			t.Fatalf("alloc %d unexpectedly failed", i)
		}
	}
	if _, ok := a.Alloc(); ok {
		t.Fatal("expected exhaustion")
	}
}

func TestDoubleFreePanics(t *testing.T) {
	a := New()
	v, _ := a.Alloc()
	a.Free(v)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on double free")
		}
	}()
	a.Free(v)
}
