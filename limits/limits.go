// Package limits tracks this kernel's fixed resource bounds: the maximum
// number of tasks, the size of the global file-handle table, the per-task
// fd table width, and the heap's region-growth budget.
package limits

import "unsafe"
import "sync/atomic"

// Lhits counts how many times a caller has hit a configured limit.
// Exposed for tests and for the profiling device to report.
var Lhits int

// Sysatomic_t is a numeric limit that can be atomically taken and given
// back, used for limits multiple tasks contend on concurrently.
type Sysatomic_t int64

// Syslimit_t holds the kernel-wide resource limits.
type Syslimit_t struct {
	// maximum live tasks in proc's TCB arena
	MaxTasks int
	// width of proc.Task's per-task fd table (fds 0..2 reserved)
	FdsPerTask int
	// size of the vfs global file-handle table
	MaxHandles Sysatomic_t
	// maximum resident block-cache entries
	CacheBlocks int
	// maximum heap growth regions before ENOMEM is reported upward
	MaxHeapRegions Sysatomic_t
	// maximum bytes a single read/write syscall will copy per call
	MaxIOChunk int
}

// Syslimit holds the configured system-wide limits.
var Syslimit *Syslimit_t = MkSysLimit()

// MkSysLimit returns a pointer to the default set of limits.
func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		MaxTasks:       1024,
		FdsPerTask:     32,
		MaxHandles:     2048,
		CacheBlocks:    512,
		MaxHeapRegions: 256,
		MaxIOChunk:     1 << 20,
	}
}

func (s *Sysatomic_t) _aptr() *int64 {
	return (*int64)(unsafe.Pointer(s))
}

// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(_n uint) {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	atomic.AddInt64(s._aptr(), n)
}

// Taken tries to decrement the limit by the provided amount.
// It returns true on success and false (unchanged) if it would go negative.
func (s *Sysatomic_t) Taken(_n uint) bool {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	g := atomic.AddInt64(s._aptr(), -n)
	if g >= 0 {
		return true
	}
	atomic.AddInt64(s._aptr(), n)
	Lhits++
	return false
}

// Take decrements the limit by one and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

// Give increments the limit by one.
func (s *Sysatomic_t) Give() {
	s.Given(1)
}
