// Package accnt tracks per-task CPU accounting: accumulated user and
// system time in nanoseconds, reported to userspace as an rusage
// structure and consumed by profctl for the profiling device.
package accnt

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nekogakure/litecore/util"
)

// Accnt_t accumulates one task's CPU usage. The embedded mutex lets
// callers take a consistent snapshot of both fields when exporting
// usage data; the per-field adds use atomics so the common update path
// needs no locking.
type Accnt_t struct {
	Userns int64 // nanoseconds of user time consumed
	Sysns  int64 // nanoseconds of system time consumed
	sync.Mutex
}

// Utadd adds delta nanoseconds to the user-time counter.
func (a *Accnt_t) Utadd(delta int) {
	atomic.AddInt64(&a.Userns, int64(delta))
}

// Systadd adds delta nanoseconds to the system-time counter.
func (a *Accnt_t) Systadd(delta int) {
	atomic.AddInt64(&a.Sysns, int64(delta))
}

// Now returns the current time in nanoseconds since the Unix epoch.
func (a *Accnt_t) Now() int {
	return int(time.Now().UnixNano())
}

// IOTime removes time spent waiting for I/O from system time; since is
// the timestamp (in nanoseconds) when the wait began.
func (a *Accnt_t) IOTime(since int) {
	d := a.Now() - since
	a.Systadd(-d)
}

// SleepTime removes time spent sleeping from system time; since is the
// timestamp (in nanoseconds) when the sleep began.
func (a *Accnt_t) SleepTime(since int) {
	d := a.Now() - since
	a.Systadd(-d)
}

// Finish adds the time elapsed since inttime to system time, closing
// out a syscall's accounting window.
func (a *Accnt_t) Finish(inttime int) {
	a.Systadd(a.Now() - inttime)
}

// Add merges n's counters into a, taking a's lock for the duration.
func (a *Accnt_t) Add(n *Accnt_t) {
	a.Lock()
	a.Userns += n.Userns
	a.Sysns += n.Sysns
	a.Unlock()
}

// Fetch returns a consistent snapshot of a's counters encoded as an
// rusage structure.
func (a *Accnt_t) Fetch() []uint8 {
	a.Lock()
	ru := a.ToRusage()
	a.Unlock()
	return ru
}

// ToRusage encodes Userns/Sysns as the two timeval pairs (ru_utime,
// ru_stime) a hosted libc's struct rusage expects, ready to copy to
// userspace.
func (a *Accnt_t) ToRusage() []uint8 {
	const words = 4
	ret := make([]uint8, words*8)
	totv := func(nano int64) (int, int) {
		secs := int(nano / 1e9)
		usecs := int((nano % 1e9) / 1000)
		return secs, usecs
	}
	off := 0
	s, us := totv(a.Userns)
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	off += 8
	s, us = totv(a.Sysns)
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	off += 8
	return ret
}
