package vfs

import (
	"sync"

	"github.com/nekogakure/litecore/fdops"
	"github.com/nekogakure/litecore/ustr"
)

// GlobalHandle is an open file description shared by every fd that
// refers to the same open() call's result (dup'd descriptors included).
// Where an Fd_t-style design wraps a single fdops.Fdops_i per
// descriptor, GlobalHandle lives once in FS.handles and descriptors
// reference it by index, splitting the global handle table from each
// task's own fd table.
type GlobalHandle struct {
	mu      sync.Mutex
	backend fdops.Backend
	path    ustr.Ustr
	offset  int
	refs    int
	isDir   bool
}

func (h *GlobalHandle) Path() ustr.Ustr { return h.path }
