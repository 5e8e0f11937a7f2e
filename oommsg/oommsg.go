// Package oommsg carries out-of-memory notifications from the heap's
// allocation-failure path to a diagnostic consumer (cmd/kernel's boot
// loop), mirroring how the heap component reports AllocationFailure
// upward rather than panicking.
package oommsg

// OomCh is sent a message whenever the heap cannot satisfy an allocation
// even after expansion. Buffered by one so the reporting side never
// blocks if nobody is listening yet.
var OomCh = make(chan Request, 1)

// Request describes one allocation that failed.
type Request struct {
	Need   int
	Resume chan bool
}

// Report sends need on OomCh without blocking if the channel is full —
// diagnostics must never become another way for the kernel to wedge.
func Report(need int) {
	select {
	case OomCh <- Request{Need: need}:
	default:
	}
}
