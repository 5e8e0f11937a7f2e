// Package dispatch implements syscall delivery: both the `int 0x80`
// trap gate and the `syscall`-instruction entry point build the same
// canonical register frame and funnel through one table here.
package dispatch

import (
	"github.com/nekogakure/litecore/console"
	"github.com/nekogakure/litecore/defs"
	"github.com/nekogakure/litecore/mem"
	"github.com/nekogakure/litecore/paging"
	"github.com/nekogakure/litecore/proc"
	"github.com/nekogakure/litecore/trap"
	"github.com/nekogakure/litecore/vfs"
)

// Entry identifies which trap vector produced a call into Dispatch.
// Both entry points share the same handler table; this only matters
// for diagnostics.
type Entry int

const (
	EntryInt0x80 Entry = iota
	EntrySyscallInsn
)

func (e Entry) String() string {
	if e == EntrySyscallInsn {
		return "syscall"
	}
	return "int 0x80"
}

type handlerFunc func(d *Dispatcher, task *proc.Task, f *trap.Frame) int64

// Dispatcher owns every resource a syscall handler needs: the
// scheduler for task lifecycle calls, the mounted filesystem, the
// physical memory arena and pager for validated user copies, and the
// console backing fds 0-2.
type Dispatcher struct {
	Sched   *proc.Scheduler
	VFS     *vfs.FS
	Arena   *mem.Arena
	Frames  *mem.Allocator
	Pager   *paging.Mapper
	Console *console.Console

	table map[int]handlerFunc
}

// New builds a dispatcher wired to the given kernel subsystems.
func New(sched *proc.Scheduler, fs *vfs.FS, arena *mem.Arena, frames *mem.Allocator, pager *paging.Mapper, con *console.Console) *Dispatcher {
	d := &Dispatcher{Sched: sched, VFS: fs, Arena: arena, Frames: frames, Pager: pager, Console: con}
	d.table = map[int]handlerFunc{
		defs.SYS_READ:       sysRead,
		defs.SYS_WRITE:      sysWrite,
		defs.SYS_OPEN:       sysOpen,
		defs.SYS_CLOSE:      sysClose,
		defs.SYS_LSEEK:      sysLseek,
		defs.SYS_FSTAT:      sysFstat,
		defs.SYS_ISATTY:     sysIsatty,
		defs.SYS_EXIT:       sysExit,
		defs.SYS_SBRK:       sysSbrk,
		defs.SYS_GETPID:     sysGetpid,
		defs.SYS_KILL:       sysKill,
		defs.SYS_GET_REENT:  sysGetReent,
		defs.SYS_ARCH_PRCTL: sysArchPrctl,
	}
	return d
}

// Dispatch runs the syscall numbered in f.RAX on behalf of task and
// returns the value to place back in RAX: a non-negative result, or
// -errno on failure.
func (d *Dispatcher) Dispatch(entry Entry, task *proc.Task, f *trap.Frame) int64 {
	h, ok := d.table[int(f.RAX)]
	if !ok {
		return int64(defs.ENOSYS.Rc())
	}
	return h(d, task, f)
}
