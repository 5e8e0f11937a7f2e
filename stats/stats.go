// Package stats holds the kernel's lightweight counters: allocation and
// cache-hit tallies, IRQ counts, and the reflect-based dump used by the
// stats/profiling devices (defs.D_STAT, defs.D_PROF).
package stats

import (
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unsafe"
)

// Enabled toggles whether Counter_t/Cycles_t actually accumulate. The
// teaching OS this descends from gated counters behind a build-time
// const so a production kernel paid no overhead; here it is a runtime
// switch (tests and the profiling device want it on), defaulting on.
var Enabled = true

// Nirqs counts interrupts delivered per vector; Irqs is the running total.
var Nirqs [256]int
var Irqs int64

// Tick is the kernel's stand-in for rdtsc: a monotonic counter used to
// order events and measure elapsed "cycles" without a real TSC read.
// There is no hardware cycle counter available to a hosted Go process in
// the way the kernel's assembly stub would read one, so wall-clock
// nanoseconds serve the same ordering purpose for Cycles_t accounting.
func Tick() uint64 {
	return uint64(time.Now().UnixNano())
}

// Counter_t is a statistical counter.
type Counter_t int64

// Cycles_t holds an elapsed-time accumulator in Tick units.
type Cycles_t int64

// Inc increments the counter by one.
func (c *Counter_t) Inc() {
	if !Enabled {
		return
	}
	atomic.AddInt64((*int64)(unsafe.Pointer(c)), 1)
}

// Add adds n to the counter.
func (c *Counter_t) Add(n int64) {
	if !Enabled {
		return
	}
	atomic.AddInt64((*int64)(unsafe.Pointer(c)), n)
}

// Get returns the current value.
func (c *Counter_t) Get() int64 {
	return atomic.LoadInt64((*int64)(unsafe.Pointer(c)))
}

// Elapsed adds the ticks elapsed since start.
func (c *Cycles_t) Elapsed(start uint64) {
	if !Enabled {
		return
	}
	atomic.AddInt64((*int64)(unsafe.Pointer(c)), int64(Tick()-start))
}

// IRQ records delivery of the given vector.
func IRQ(vector int) {
	if vector >= 0 && vector < len(Nirqs) {
		Nirqs[vector]++
	}
	atomic.AddInt64(&Irqs, 1)
}

// Stats2String converts a struct of Counter_t/Cycles_t fields into a
// printable diagnostic dump, used by the D_STAT device.
func Stats2String(st interface{}) string {
	v := reflect.ValueOf(st)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		switch {
		case strings.HasSuffix(t, "Counter_t"):
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		case strings.HasSuffix(t, "Cycles_t"):
			n := v.Field(i).Interface().(Cycles_t)
			s += "\n\t" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
	}
	return s + "\n"
}
