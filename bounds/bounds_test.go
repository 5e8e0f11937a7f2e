package bounds

import "testing"

type sample struct {
	A uint64
	B uint64
	C uint32
	D uint32
}

func TestAssertLayoutPasses(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	AssertLayout(sample{}, 24, []string{"A", "B", "C", "D"})
}

func TestAssertLayoutCatchesSizeMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on size mismatch")
		}
	}()
	AssertLayout(sample{}, 16, []string{"A", "B", "C", "D"})
}

func TestAssertLayoutCatchesFieldOrder(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on field order mismatch")
		}
	}()
	AssertLayout(sample{}, 24, []string{"B", "A", "C", "D"})
}
