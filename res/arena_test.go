package res

import "testing"

func TestArenaAllocGetFree(t *testing.T) {
	a := New[string](0)
	i1, ok := a.Alloc("first")
	if !ok {
		t.Fatal("alloc failed")
	}
	i2, ok := a.Alloc("second")
	if !ok {
		t.Fatal("alloc failed")
	}
	if i1 == i2 {
		t.Fatal("expected distinct indices")
	}
	v, ok := a.Get(i1)
	if !ok || *v != "first" {
		t.Fatalf("Get(%d) = %v, %v", i1, v, ok)
	}
	a.Free(i1)
	if _, ok := a.Get(i1); ok {
		t.Fatal("expected freed slot to be absent")
	}
}

func TestArenaRecyclesFreedIndex(t *testing.T) {
	a := New[int](0)
	i1, _ := a.Alloc(1)
	a.Free(i1)
	i2, _ := a.Alloc(2)
	if i2 != i1 {
		t.Fatalf("expected recycled index %d, got %d", i1, i2)
	}
}

func TestArenaCapacity(t *testing.T) {
	a := New[int](2)
	if _, ok := a.Alloc(1); !ok {
		t.Fatal("alloc 1 failed")
	}
	if _, ok := a.Alloc(2); !ok {
		t.Fatal("alloc 2 failed")
	}
	if _, ok := a.Alloc(3); ok {
		t.Fatal("expected capacity exhaustion")
	}
}

func TestArenaEach(t *testing.T) {
	a := New[int](0)
	a.Alloc(10)
	a.Alloc(20)
	sum := 0
	a.Each(func(idx int, v *int) { sum += *v })
	if sum != 30 {
		t.Fatalf("sum = %d, want 30", sum)
	}
}
