package dispatch

import (
	"bytes"
	"testing"

	"github.com/nekogakure/litecore/blkcache"
	"github.com/nekogakure/litecore/console"
	"github.com/nekogakure/litecore/defs"
	"github.com/nekogakure/litecore/fat16"
	"github.com/nekogakure/litecore/mem"
	"github.com/nekogakure/litecore/paging"
	"github.com/nekogakure/litecore/pci"
	"github.com/nekogakure/litecore/proc"
	"github.com/nekogakure/litecore/trap"
	"github.com/nekogakure/litecore/ustr"
	"github.com/nekogakure/litecore/vfs"
)

func mountTestFAT16(t *testing.T) *fat16.FS {
	t.Helper()
	dev := pci.NewMemDevice(256)
	cache := blkcache.Init(dev, 512, 16)

	var raw [512]byte
	raw[11], raw[12] = 0x00, 0x02
	raw[13] = 1
	raw[14], raw[15] = 1, 0
	raw[16] = 2
	raw[17], raw[18] = 32, 0
	raw[19], raw[20] = 0, 1
	raw[22], raw[23] = 4, 0
	cache.Write(0, raw[:])

	fs, err := fat16.Mount(cache)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	fs.WriteFile(ustr.Ustr("/a.txt"), []byte("hello"), 0)
	return fs
}

type testEnv struct {
	d    *Dispatcher
	sch  *proc.Scheduler
	task *proc.Task
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	arena := mem.NewArena(0, 16<<20)
	alloc := mem.NewAllocator(arena)
	pager := paging.New(arena, alloc)
	kernelPML4, err := pager.NewPML4()
	if err != nil {
		t.Fatalf("NewPML4: %v", err)
	}
	sched := proc.NewScheduler(alloc, pager, kernelPML4, 16)

	backend := mountTestFAT16(t)
	vfsFS := vfs.NewFS(backend, 64)

	var out bytes.Buffer
	con := console.New(64, &out)

	d := New(sched, vfsFS, arena, alloc, pager, con)

	tid, err := sched.TaskCreate("user", false, 0)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}
	task, _ := sched.Get(tid)
	return &testEnv{d: d, sch: sched, task: task}
}

func (e *testEnv) frame(num uint64, args ...uint64) *trap.Frame {
	f := &trap.Frame{RAX: num}
	regs := []*uint64{&f.RDI, &f.RSI, &f.RDX, &f.R10, &f.R8, &f.R9}
	for i, a := range args {
		*regs[i] = a
	}
	return f
}

// TestSbrkGrowsHeapAndZeroes checks that sbrk(0) reports the current
// break, a subsequent sbrk(n) reports the break it replaced, and the
// newly mapped pages read back as zero.
func TestSbrkGrowsHeapAndZeroes(t *testing.T) {
	env := newTestEnv(t)

	f0 := env.frame(uint64(defs.SYS_SBRK), 0)
	base := env.d.Dispatch(EntrySyscallInsn, env.task, f0)
	if base != int64(proc.UserHeapBase) {
		t.Fatalf("sbrk(0) = %#x, want %#x", base, proc.UserHeapBase)
	}

	f1 := env.frame(uint64(defs.SYS_SBRK), 8192)
	prev := env.d.Dispatch(EntrySyscallInsn, env.task, f1)
	if prev != base {
		t.Fatalf("sbrk(8192) = %#x, want previous break %#x", prev, base)
	}

	got, err := copyFromUser(env.d.Pager, env.d.Arena, env.task.PML4, mem.VirtAddr(base), 8192)
	if err != nil {
		t.Fatalf("copyFromUser: %v", err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d of freshly grown heap = %#x, want 0", i, b)
		}
	}
}

// TestSbrkNegativeIncrementRejected checks that a negative request
// fails instead of silently shrinking the heap.
func TestSbrkNegativeIncrementRejected(t *testing.T) {
	env := newTestEnv(t)
	f := env.frame(uint64(defs.SYS_SBRK), uint64(int64(-1)))
	got := env.d.Dispatch(EntrySyscallInsn, env.task, f)
	if got != int64(defs.EINVAL.Rc()) {
		t.Fatalf("sbrk(-1) = %d, want -EINVAL", got)
	}
}

// scratchVA returns an address one page below the task's mapped user
// stack top, usable as a scratch buffer without first growing the heap.
func scratchVA(task *proc.Task) mem.VirtAddr {
	return task.UserStackTop - mem.VirtAddr(mem.PGSIZE)
}

func TestOpenReadCloseRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	pathVA := scratchVA(env.task)
	path := append([]byte("/a.txt"), 0)
	if err := copyToUser(env.d.Pager, env.d.Arena, env.task.PML4, pathVA, path); err != nil {
		t.Fatalf("copyToUser path: %v", err)
	}

	openF := env.frame(uint64(defs.SYS_OPEN), uint64(pathVA), uint64(defs.O_RDONLY))
	fd := env.d.Dispatch(EntrySyscallInsn, env.task, openF)
	if fd < 3 {
		t.Fatalf("open = %d, want fd >= 3", fd)
	}

	bufVA := pathVA + 64
	readF := env.frame(uint64(defs.SYS_READ), uint64(fd), uint64(bufVA), 5)
	n := env.d.Dispatch(EntrySyscallInsn, env.task, readF)
	if n != 5 {
		t.Fatalf("read = %d, want 5", n)
	}
	got, err := copyFromUser(env.d.Pager, env.d.Arena, env.task.PML4, bufVA, 5)
	if err != nil {
		t.Fatalf("copyFromUser: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("read content = %q, want hello", got)
	}

	closeF := env.frame(uint64(defs.SYS_CLOSE), uint64(fd))
	rc := env.d.Dispatch(EntrySyscallInsn, env.task, closeF)
	if rc != 0 {
		t.Fatalf("close = %d, want 0", rc)
	}
}

func TestWriteToStdoutReachesConsole(t *testing.T) {
	env := newTestEnv(t)

	msgVA := scratchVA(env.task)
	msg := []byte("hi there")
	if err := copyToUser(env.d.Pager, env.d.Arena, env.task.PML4, msgVA, msg); err != nil {
		t.Fatalf("copyToUser: %v", err)
	}

	writeF := env.frame(uint64(defs.SYS_WRITE), 1, uint64(msgVA), uint64(len(msg)))
	n := env.d.Dispatch(EntrySyscallInsn, env.task, writeF)
	if n != int64(len(msg)) {
		t.Fatalf("write = %d, want %d", n, len(msg))
	}
}

func TestGetpidReturnsTaskTid(t *testing.T) {
	env := newTestEnv(t)
	f := env.frame(uint64(defs.SYS_GETPID))
	got := env.d.Dispatch(EntrySyscallInsn, env.task, f)
	if got != int64(env.task.Tid) {
		t.Fatalf("getpid = %d, want %d", got, env.task.Tid)
	}
}

// TestGetReentMapsPerTaskPage checks that get_reent returns a virtual
// address mapped into the calling task, zeroed, and stable across
// repeated calls rather than a bare physical frame number.
func TestGetReentMapsPerTaskPage(t *testing.T) {
	env := newTestEnv(t)

	f := env.frame(uint64(defs.SYS_GET_REENT), mem.PGSIZE)
	va := env.d.Dispatch(EntrySyscallInsn, env.task, f)
	if va != int64(proc.UserReentBase) {
		t.Fatalf("get_reent = %#x, want %#x", va, proc.UserReentBase)
	}

	got, err := copyFromUser(env.d.Pager, env.d.Arena, env.task.PML4, mem.VirtAddr(va), 64)
	if err != nil {
		t.Fatalf("copyFromUser: %v", err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d of reent page = %#x, want 0", i, b)
		}
	}

	// A second call must reuse the same mapped page, not leak a fresh
	// frame at a different address.
	again := env.d.Dispatch(EntrySyscallInsn, env.task, f)
	if again != va {
		t.Fatalf("second get_reent = %#x, want %#x (stable)", again, va)
	}
}

func TestUnknownSyscallReturnsENOSYS(t *testing.T) {
	env := newTestEnv(t)
	f := env.frame(9999)
	got := env.d.Dispatch(EntrySyscallInsn, env.task, f)
	if got != int64(defs.ENOSYS.Rc()) {
		t.Fatalf("Dispatch = %d, want -ENOSYS", got)
	}
}
