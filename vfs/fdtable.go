package vfs

import (
	"sync"

	"github.com/nekogakure/litecore/defs"
)

// NumFds is the per-task descriptor table size; fds 0-2 are reserved
// for stdin/stdout/stderr and are never handed out by Alloc.
const NumFds = 32

const (
	slotFree     = -1
	slotReserved = -2
)

// FDTable is a task's private view onto the global handle table: each
// slot holds an index into FS.handles, or one of the sentinels above.
// Adapted from fd.Cwd_t's per-task bookkeeping, split out from the
// working-directory concern which now lives in WorkingDir.
type FDTable struct {
	mu    sync.Mutex
	slots [NumFds]int
}

// NewFDTable returns a table with fds 0-2 reserved and the rest free.
func NewFDTable() *FDTable {
	t := &FDTable{}
	for i := range t.slots {
		if i < 3 {
			t.slots[i] = slotReserved
		} else {
			t.slots[i] = slotFree
		}
	}
	return t
}

// BindReserved assigns a handle index directly to a reserved fd (0-2),
// used once at boot to hook up console input/output/error.
func (t *FDTable) BindReserved(fd, handleIdx int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= 3 {
		return defs.EINVAL
	}
	t.slots[fd] = handleIdx
	return nil
}

// Alloc claims the lowest free fd at or above 3 and binds it to
// handleIdx, returning the new fd.
func (t *FDTable) Alloc(handleIdx int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 3; i < NumFds; i++ {
		if t.slots[i] == slotFree {
			t.slots[i] = handleIdx
			return i, nil
		}
	}
	return 0, defs.EMFILE
}

// Get returns the handle index bound to fd.
func (t *FDTable) Get(fd int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= NumFds {
		return 0, false
	}
	s := t.slots[fd]
	if s == slotFree || s == slotReserved {
		return 0, false
	}
	return s, true
}

// Free releases fd, returning the handle index it held so the caller
// can drop the handle's refcount.
func (t *FDTable) Free(fd int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 3 || fd >= NumFds {
		return 0, defs.EBADF
	}
	handleIdx := t.slots[fd]
	if handleIdx == slotFree {
		return 0, defs.EBADF
	}
	t.slots[fd] = slotFree
	return handleIdx, nil
}

// Dup copies oldfd's binding into the lowest free slot at or above 3.
func (t *FDTable) Dup(oldfd int) (int, error) {
	if oldfd < 0 || oldfd >= NumFds {
		return 0, defs.EBADF
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	handleIdx := t.slots[oldfd]
	if handleIdx == slotFree {
		return 0, defs.EBADF
	}
	for i := 3; i < NumFds; i++ {
		if t.slots[i] == slotFree {
			t.slots[i] = handleIdx
			return i, nil
		}
	}
	return 0, defs.EMFILE
}
