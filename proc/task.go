// Package proc implements the cooperative-plus-timer-preemptive
// round-robin scheduler: the task control block table, the FIFO ready
// queue, and task lifecycle (create/ready/schedule/yield/exit).
//
// The TCB table is a res.Arena: raw-pointer TCB links become an arena
// of Option<TaskId>-style int indices rather than pointers, and the
// ready queue is an arena-index intrusive list, guarded by a single
// mutex standing in for the IRQ-off discipline.
package proc

import (
	"github.com/nekogakure/litecore/accnt"
	"github.com/nekogakure/litecore/mem"
	"github.com/nekogakure/litecore/tinfo"
	"github.com/nekogakure/litecore/trap"
	"github.com/nekogakure/litecore/vfs"
)

// State is a TCB's lifecycle state.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Dead
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// IdleTid is the fixed index/tid of the dedicated idle task, always
// created first by NewScheduler so it occupies arena slot 0.
const IdleTid = 0

// Task is the Task Control Block: register context, address-space
// root, stack pointers, the brk region, per-task fd table and
// accounting, plus the ready-queue intrusive link.
type Task struct {
	Tid        int
	Name       [32]byte
	State      State
	KernelMode bool

	Regs trap.Frame
	PML4 mem.PhysAddr

	KernelStackTop mem.VirtAddr
	UserStackTop   mem.VirtAddr

	UserBrkBase mem.VirtAddr
	UserBrkSize uintptr

	// FSBase backs arch_prctl(ARCH_SET_FS/GET_FS): the per-task TLS
	// base a hosted libc expects to load into the FS segment register.
	// There is no real MSR here, so it is just task-local state.
	FSBase uint64

	Accnt accnt.Accnt_t
	Fds   *vfs.FDTable
	Cwd   *vfs.WorkingDir
	Note  *tinfo.Tnote_t

	next int // ready-queue link; -1 if not queued
}

func mkName(name string) [32]byte {
	var out [32]byte
	copy(out[:], name)
	return out
}

func (t *Task) NameString() string {
	end := 0
	for end < len(t.Name) && t.Name[end] != 0 {
		end++
	}
	return string(t.Name[:end])
}
