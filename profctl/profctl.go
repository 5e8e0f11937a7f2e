// Package profctl serves the profiling device (defs.D_PROF): a snapshot
// of every live task's accumulated user/system time, encoded as a
// pprof profile.proto sample set instead of a bespoke text dump.
package profctl

import (
	"io"
	"time"

	"github.com/google/pprof/profile"

	"github.com/nekogakure/litecore/proc"
)

// TaskSource is the subset of *proc.Scheduler profctl needs: anything
// that can walk its live tasks and report a name and accounting record
// for each one. proc.Scheduler satisfies this directly through
// EachTask.
type TaskSource interface {
	EachTask(f func(tid int, t *proc.Task))
}

var (
	sampleTypeUser = &profile.ValueType{Type: "user", Unit: "nanoseconds"}
	sampleTypeSys  = &profile.ValueType{Type: "sys", Unit: "nanoseconds"}
)

// Snapshot builds a profile.Profile with one Sample per live task,
// labeled by task name and tid, carrying that task's accumulated
// Userns/Sysns counters as its two sample values.
func Snapshot(sched TaskSource) *profile.Profile {
	p := &profile.Profile{
		SampleType:    []*profile.ValueType{sampleTypeUser, sampleTypeSys},
		TimeNanos:     0,
		DurationNanos: 0,
	}

	sched.EachTask(func(tid int, t *proc.Task) {
		t.Accnt.Lock()
		userns := t.Accnt.Userns
		sysns := t.Accnt.Sysns
		t.Accnt.Unlock()

		p.Sample = append(p.Sample, &profile.Sample{
			Value: []int64{userns, sysns},
			Label: map[string][]string{
				"task": {t.NameString()},
			},
			NumLabel: map[string][]int64{
				"tid": {int64(tid)},
			},
		})
	})
	return p
}

// Dump writes a freshly taken snapshot to w in profile.proto's gzip
// wire format, the same encoding `go tool pprof` reads directly.
func Dump(sched TaskSource, w io.Writer) error {
	p := Snapshot(sched)
	return p.Write(w)
}

// StampTimeNanos fills in when a snapshot was taken. Snapshot itself
// never calls time.Now so its output stays reproducible in tests;
// callers with a real wall-clock reading call this afterward.
func StampTimeNanos(p *profile.Profile, t time.Time) {
	p.TimeNanos = t.UnixNano()
}
