// Command kernel wires every subsystem package together into the
// bootable whole: frame allocator, pager, scheduler, block cache,
// FAT16 filesystem, VFS, console and syscall dispatcher. It has no real
// UEFI entry point to call into; Boot is what a loader would invoke
// once trap.BootInfo is in hand.
package main

import (
	"fmt"
	"io"

	"github.com/nekogakure/litecore/blkcache"
	"github.com/nekogakure/litecore/console"
	"github.com/nekogakure/litecore/defs"
	"github.com/nekogakure/litecore/dispatch"
	"github.com/nekogakure/litecore/elfload"
	"github.com/nekogakure/litecore/fat16"
	"github.com/nekogakure/litecore/heap"
	"github.com/nekogakure/litecore/limits"
	"github.com/nekogakure/litecore/mem"
	"github.com/nekogakure/litecore/oommsg"
	"github.com/nekogakure/litecore/paging"
	"github.com/nekogakure/litecore/pci"
	"github.com/nekogakure/litecore/proc"
	"github.com/nekogakure/litecore/trap"
	"github.com/nekogakure/litecore/ustr"
	"github.com/nekogakure/litecore/vecalloc"
	"github.com/nekogakure/litecore/vfs"
)

// Machine is every subsystem a running kernel instance needs, threaded
// through explicitly rather than reached via package-level globals (the
// scheduler's tinfo.current aside, which is inherently global state this
// module has no multi-instance need to fix).
type Machine struct {
	Boot trap.BootInfo

	Arena      *mem.Arena
	Frames     *mem.Allocator
	Pager      *paging.Mapper
	KernelPML4 mem.PhysAddr

	Sched    *proc.Scheduler
	Cache    *blkcache.Cache
	FAT      *fat16.FS
	VFS      *vfs.FS
	Console  *console.Console
	Dispatch *dispatch.Dispatcher
	Heap     *heap.Heap

	// Limits is the configured set of system-wide resource bounds this
	// Machine was built against; TaskCreate/Alloc callers don't consult
	// it directly yet, but it is what a future admission check (refusing
	// a TaskCreate past MaxTasks, an Open past MaxHandles) would read.
	Limits *limits.Syslimit_t
	// Vectors hands out secondary IDT vectors for devices enumerated
	// after boot, beyond the fixed timer/syscall/exception vectors trap
	// wires up directly.
	Vectors *vecalloc.Allocator
}

// Config bundles Boot's tunables: arena size, block cache geometry and
// the disk the block cache wraps.
type Config struct {
	BootInfo    trap.BootInfo
	ArenaBytes  int
	MaxTasks    int
	MaxHandles  int
	SectorSize  int
	CacheBlocks int
	Disk        pci.SectorDevice
	ConsoleOut  io.Writer
	HeapBytes   int
}

// Boot brings up a Machine from an already-formatted disk image: frame
// allocator, pager and kernel PML4, the scheduler's idle task, the
// block cache and FAT16 mount, the VFS multiplexer, the console, the
// syscall dispatcher, and the kernel heap with its OOM reporter
// draining oommsg.OomCh.
func Boot(cfg Config) (*Machine, error) {
	lim := limits.MkSysLimit()
	if cfg.MaxTasks > 0 {
		lim.MaxTasks = cfg.MaxTasks
	}
	if cfg.CacheBlocks > 0 {
		lim.CacheBlocks = cfg.CacheBlocks
	}
	if cfg.MaxHandles > 0 {
		lim.MaxHandles = limits.Sysatomic_t(cfg.MaxHandles)
	}

	arena := mem.NewArena(0, cfg.ArenaBytes)
	frames := mem.NewAllocator(arena)
	pager := paging.New(arena, frames)
	kernelPML4, err := pager.NewPML4()
	if err != nil {
		return nil, fmt.Errorf("kernel: NewPML4: %w", err)
	}
	sched := proc.NewScheduler(frames, pager, kernelPML4, cfg.MaxTasks)

	cache := blkcache.Init(cfg.Disk, cfg.SectorSize, cfg.CacheBlocks)
	fs, err := fat16.Mount(cache)
	if err != nil {
		return nil, fmt.Errorf("kernel: Mount: %w", err)
	}
	fsys := vfs.NewFS(fs, cfg.MaxHandles)

	con := console.New(256, cfg.ConsoleOut)
	d := dispatch.New(sched, fsys, arena, frames, pager, con)

	h := heap.New(cfg.HeapBytes, nil)
	go drainOOM(cfg.ConsoleOut)

	return &Machine{
		Boot:       cfg.BootInfo,
		Arena:      arena,
		Frames:     frames,
		Pager:      pager,
		KernelPML4: kernelPML4,
		Sched:      sched,
		Cache:      cache,
		FAT:        fs,
		VFS:        fsys,
		Console:    con,
		Dispatch:   d,
		Heap:       h,
		Limits:     lim,
		Vectors:    vecalloc.New(),
	}, nil
}

// drainOOM logs every out-of-memory report the heap sends, the
// diagnostic consumer oommsg.OomCh exists for.
func drainOOM(out io.Writer) {
	for req := range oommsg.OomCh {
		fmt.Fprintf(out, "kernel: heap allocation of %d bytes failed\n", req.Need)
	}
}

// SpawnELF creates a new user task, loads path into it via elfload, and
// readies it for scheduling.
func (m *Machine) SpawnELF(name string, path ustr.Ustr) (int, error) {
	tid, err := m.Sched.TaskCreate(name, false, 0)
	if err != nil {
		return 0, err
	}
	task, _ := m.Sched.Get(tid)
	if err := elfload.Load(m.VFS, path, task, m.Pager, m.Frames, m.Arena); err != nil {
		return 0, err
	}
	if err := m.Sched.TaskReady(tid); err != nil {
		return 0, err
	}
	return tid, nil
}

// Syscall builds a minimal trap.Frame for syscall num with up to six
// argument registers and runs it through the dispatcher on behalf of
// tid, the way a test driving the kernel without a real CPU does.
func (m *Machine) Syscall(tid int, num int, args ...uint64) int64 {
	task, ok := m.Sched.Get(tid)
	if !ok {
		return int64(defs.EINVAL.Rc())
	}
	f := &trap.Frame{RAX: uint64(num)}
	regs := []*uint64{&f.RDI, &f.RSI, &f.RDX, &f.R10, &f.R8, &f.R9}
	for i, a := range args {
		*regs[i] = a
	}
	return m.Dispatch.Dispatch(dispatch.EntrySyscallInsn, task, f)
}

func main() {
	// There is no real UEFI bootloader to hand this process a
	// trap.BootInfo or a physical disk; cmd/kernel's value is the
	// Boot/SpawnELF/Syscall wiring boot_test.go exercises, not a
	// runnable process.
	fmt.Println("kernel: no bootloader in this host model; see boot_test.go for the integration path")
}
