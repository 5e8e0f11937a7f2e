// Package res implements a generic freelist-backed slot arena: entries
// are addressed by an integer index rather than a pointer, so cyclic or
// back-referencing structures (a ready-queue link, a task's owning
// handle-table index) can be expressed as a plain int instead of a raw
// pointer. Backs proc's TCB table and vfs's global handle table.
package res

import "sync"

// Arena owns a slice of optional T slots, indexed by int. A freed slot's
// index is recycled by the next Alloc.
type Arena[T any] struct {
	mu    sync.Mutex
	slots []*T
	free  []int
	cap   int
}

// New creates an arena that will refuse to grow past capacity slots.
// capacity <= 0 means unbounded.
func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{cap: capacity}
}

// Alloc stores v in a free slot (recycled if one exists, else appended)
// and returns its index. ok is false if the arena is at capacity.
func (a *Arena[T]) Alloc(v T) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = &v
		return idx, true
	}
	if a.cap > 0 && len(a.slots) >= a.cap {
		return 0, false
	}
	a.slots = append(a.slots, &v)
	return len(a.slots) - 1, true
}

// Get returns the value at idx and whether that slot is occupied.
func (a *Arena[T]) Get(idx int) (*T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if idx < 0 || idx >= len(a.slots) || a.slots[idx] == nil {
		return nil, false
	}
	return a.slots[idx], true
}

// Free releases the slot at idx, making its index eligible for reuse by
// a later Alloc. Freeing an already-free or out-of-range slot is a no-op.
func (a *Arena[T]) Free(idx int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if idx < 0 || idx >= len(a.slots) || a.slots[idx] == nil {
		return
	}
	a.slots[idx] = nil
	a.free = append(a.free, idx)
}

// Len returns the number of occupied slots.
func (a *Arena[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, s := range a.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Each calls f for every occupied slot's index and value, in index order.
// f must not call back into the arena (Alloc/Free/Get) — Each holds the
// arena's lock for its duration.
func (a *Arena[T]) Each(f func(idx int, v *T)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, s := range a.slots {
		if s != nil {
			f(i, s)
		}
	}
}
