// Package vfs is a thin multiplexer: it owns the global handle table
// and per-task fd tables, and dispatches every actual I/O operation
// through a registered fdops.Backend. Reworked from a Ufs_t-style
// high-level operation set (MkFile/Update/Read/Ls become
// Open/Write/Read/ListDir here) and an Fd_t-style descriptor shape.
package vfs

import (
	"github.com/nekogakure/litecore/bpath"
	"github.com/nekogakure/litecore/defs"
	"github.com/nekogakure/litecore/fdops"
	"github.com/nekogakure/litecore/res"
	"github.com/nekogakure/litecore/ustr"
)

// FS is the mounted virtual filesystem: one backend, one global handle
// table, and a path-resolution cache shared by every task's FDTable.
type FS struct {
	backend fdops.Backend
	handles *res.Arena[GlobalHandle]
	cache   *PathCache
}

// NewFS mounts backend as the sole filesystem, with a global handle
// table of maxHandles entries.
func NewFS(backend fdops.Backend, maxHandles int) *FS {
	return &FS{
		backend: backend,
		handles: res.New[GlobalHandle](maxHandles),
		cache:   NewPathCache(64),
	}
}

// Open resolves path (already canonical/absolute) and returns a handle
// index for the caller to bind into a task's FDTable. A path already
// open elsewhere shares its existing GlobalHandle (bumping its
// refcount) rather than re-scanning the backend, via PathCache.
func (fs *FS) Open(path ustr.Ustr) (int, error) {
	if idx, ok := fs.cache.Get(path); ok {
		if err := fs.Dup(idx); err == nil {
			return idx, nil
		}
	}
	if !fs.backend.Exists(path) {
		return 0, defs.ENOENT
	}
	h := GlobalHandle{backend: fs.backend, path: path, refs: 1, isDir: fs.backend.IsDir(path)}
	idx, ok := fs.handles.Alloc(h)
	if !ok {
		return 0, defs.EMFILE
	}
	fs.cache.Set(path, idx)
	return idx, nil
}

// Create opens path, creating it as an empty file via the backend if it
// does not already exist.
func (fs *FS) Create(path ustr.Ustr) (int, error) {
	if !fs.backend.Exists(path) {
		if _, err := fs.backend.WriteFile(path, nil, 0); err != nil {
			return 0, err
		}
	}
	return fs.Open(path)
}

func (fs *FS) get(handleIdx int) (*GlobalHandle, error) {
	h, ok := fs.handles.Get(handleIdx)
	if !ok {
		return nil, defs.EBADF
	}
	return h, nil
}

// Dup increments a handle's reference count, used when a task's
// FDTable.Dup binds a second fd to the same open file.
func (fs *FS) Dup(handleIdx int) error {
	h, err := fs.get(handleIdx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
	return nil
}

// Close drops a reference to handleIdx, freeing the handle and its
// path-cache entry once the last reference is gone.
func (fs *FS) Close(handleIdx int) error {
	h, err := fs.get(handleIdx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.refs--
	done := h.refs <= 0
	path := h.path
	h.mu.Unlock()
	if done {
		fs.cache.Del(path)
		fs.handles.Free(handleIdx)
	}
	return nil
}

// Read reads from handleIdx's current offset, advancing it by the
// number of bytes actually read.
func (fs *FS) Read(handleIdx int, buf []byte) (int, error) {
	h, err := fs.get(handleIdx)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.isDir {
		return 0, defs.EISDIR
	}
	n, err := h.backend.ReadFile(h.path, buf, h.offset)
	h.offset += n
	return n, err
}

// Write writes to handleIdx's current offset, advancing it by the
// number of bytes actually written.
func (fs *FS) Write(handleIdx int, buf []byte) (int, error) {
	h, err := fs.get(handleIdx)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.isDir {
		return 0, defs.EISDIR
	}
	n, err := h.backend.WriteFile(h.path, buf, h.offset)
	h.offset += n
	return n, err
}

// Seek whence values, matching lseek(2).
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Seek repositions handleIdx's offset and returns the new offset.
func (fs *FS) Seek(handleIdx int, off int, whence int) (int, error) {
	h, err := fs.get(handleIdx)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	switch whence {
	case SeekSet:
		h.offset = off
	case SeekCur:
		h.offset += off
	case SeekEnd:
		size, err := h.backend.FileSize(h.path)
		if err != nil {
			return 0, err
		}
		h.offset = size + off
	default:
		return 0, defs.EINVAL
	}
	if h.offset < 0 {
		h.offset = 0
		return 0, defs.EINVAL
	}
	return h.offset, nil
}

// FileSize returns the size of the file behind handleIdx.
func (fs *FS) FileSize(handleIdx int) (int, error) {
	h, err := fs.get(handleIdx)
	if err != nil {
		return 0, err
	}
	return h.backend.FileSize(h.path)
}

// ListDir returns path's immediate children, canonicalized against cwd
// by the caller before this is invoked.
func (fs *FS) ListDir(path ustr.Ustr) ([]ustr.Ustr, error) {
	return fs.backend.ListDir(path)
}

// Resolve canonicalizes p against cwd. It does not fill the path
// cache; Open does that when it allocates a handle.
func (fs *FS) Resolve(cwd *WorkingDir, p ustr.Ustr) ustr.Ustr {
	full := cwd.Canonicalpath(p)
	if _, ok := fs.cache.Get(full); ok {
		return full
	}
	return full
}

// Join is a convenience re-export so callers need not import bpath
// directly just to build a child path under a resolved directory.
func Join(parts []ustr.Ustr) ustr.Ustr { return bpath.Join(parts) }
