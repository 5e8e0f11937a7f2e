// Package tinfo tracks per-task kill/doom bookkeeping: killed and
// doomed flags, an error code, and a Killch channel that Kill signals.
// Nothing in this module waits on Killch or acts on the doomed mark.
// The runtime.Gptr/Setgptr current-thread hook (a modified-runtime
// hack for stashing a pointer per goroutine) is replaced here with a
// package-level pointer guarded by a mutex, since this module has no
// modified runtime to lean on and the kernel this package models is
// single-processor regardless.
package tinfo

import (
	"sync"

	"github.com/nekogakure/litecore/defs"
)

// Tnote_t stores per-task kill/doom state, installed on proc.Task.
type Tnote_t struct {
	Alive    bool
	Killed   bool
	Isdoomed bool

	mu       sync.Mutex
	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Errno
	}
}

// MkTnote returns a live, non-killed, non-doomed note.
func MkTnote() *Tnote_t {
	t := &Tnote_t{Alive: true}
	t.Killnaps.Killch = make(chan bool, 1)
	return t
}

// Doomed reports whether the task is marked as doomed.
func (t *Tnote_t) Doomed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Isdoomed
}

// Doom marks the task doomed; Doomed reports the mark.
func (t *Tnote_t) Doom() {
	t.mu.Lock()
	t.Isdoomed = true
	t.mu.Unlock()
}

// Kill marks the task killed, records err, and signals Killnaps.Killch
// (dropping the signal if one is already pending). Killnaps.Cond is not
// signalled.
func (t *Tnote_t) Kill(err defs.Errno) {
	t.mu.Lock()
	t.Killed = true
	t.Killnaps.Kerr = err
	t.mu.Unlock()
	select {
	case t.Killnaps.Killch <- true:
	default:
	}
}

// IsKilled reports whether Kill has been called.
func (t *Tnote_t) IsKilled() (bool, defs.Errno) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Killed, t.Killnaps.Kerr
}

var (
	mu      sync.Mutex
	current *Tnote_t
)

// Current returns the task note most recently installed by SetCurrent,
// the same for every goroutine. It panics if none is installed.
func Current() *Tnote_t {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		panic("tinfo: no current task note installed")
	}
	return current
}

// SetCurrent installs p as the current task note, replacing the
// scheduler's previous choice. A single-processor kernel has at most
// one logical "current" task at a time, so this is a plain package
// variable rather than a per-goroutine slot.
func SetCurrent(p *Tnote_t) {
	if p == nil {
		panic("tinfo: SetCurrent(nil)")
	}
	mu.Lock()
	current = p
	mu.Unlock()
}

// ClearCurrent removes the current task note, e.g. when switching to
// the idle task which carries none.
func ClearCurrent() {
	mu.Lock()
	current = nil
	mu.Unlock()
}
