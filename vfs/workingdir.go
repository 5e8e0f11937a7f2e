package vfs

import (
	"sync"

	"github.com/nekogakure/litecore/bpath"
	"github.com/nekogakure/litecore/ustr"
)

// WorkingDir tracks a task's current directory, adapted from
// fd.Cwd_t — stripped of the fd reference since this module resolves
// paths directly against a backend rather than holding an inode handle
// open for the duration.
type WorkingDir struct {
	mu   sync.Mutex
	path ustr.Ustr
}

// NewRootWorkingDir returns a WorkingDir rooted at "/".
func NewRootWorkingDir() *WorkingDir {
	return &WorkingDir{path: ustr.MkUstrRoot()}
}

// Fullpath joins p onto cwd if p is not already absolute.
func (w *WorkingDir) Fullpath(p ustr.Ustr) ustr.Ustr {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p.IsAbsolute() {
		return p
	}
	return w.path.Extend(p)
}

// Canonicalpath resolves p (absolute or cwd-relative) to a canonical
// absolute path with "." and ".." components removed.
func (w *WorkingDir) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	return bpath.Canonicalize(w.Fullpath(p))
}

// Chdir updates cwd to the canonicalized form of p.
func (w *WorkingDir) Chdir(p ustr.Ustr) {
	np := w.Canonicalpath(p)
	w.mu.Lock()
	w.path = np
	w.mu.Unlock()
}

// Path returns the current working directory.
func (w *WorkingDir) Path() ustr.Ustr {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}
