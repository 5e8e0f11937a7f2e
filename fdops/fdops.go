// Package fdops defines the function-pointer interface a filesystem
// backend registers with vfs. The VFS itself stays a thin multiplexer:
// it owns the global handle table and per-task fd tables, but every
// actual I/O operation is dispatched through a Backend.
package fdops

import "github.com/nekogakure/litecore/ustr"

// Backend is the set of operations a mounted filesystem exposes to vfs.
// A backend need not implement every method meaningfully — e.g. a
// read-only backend's WriteFile can simply return an error — but every
// method must be present to satisfy the interface.
type Backend interface {
	// Name identifies the backend for diagnostics and device listing.
	Name() string

	// ReadFile reads up to len(buf) bytes starting at offset off into
	// buf, returning the number of bytes read. Reading at or past the
	// file's size returns (0, nil): that is end-of-file, not an error.
	ReadFile(path ustr.Ustr, buf []byte, off int) (int, error)

	// WriteFile writes buf starting at offset off and returns the number
	// of bytes written. It is a truncating overwrite: the file's new size
	// is off+len(buf).
	WriteFile(path ustr.Ustr, buf []byte, off int) (int, error)

	// FileSize returns a file's current size in bytes.
	FileSize(path ustr.Ustr) (int, error)

	// ListDir returns the names of a directory's immediate children.
	ListDir(path ustr.Ustr) ([]ustr.Ustr, error)

	// IsDir reports whether path names a directory.
	IsDir(path ustr.Ustr) bool

	// Exists reports whether path names any entry at all.
	Exists(path ustr.Ustr) bool
}
