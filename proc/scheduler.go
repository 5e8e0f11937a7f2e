package proc

import (
	"sync"

	"github.com/nekogakure/litecore/defs"
	"github.com/nekogakure/litecore/mem"
	"github.com/nekogakure/litecore/paging"
	"github.com/nekogakure/litecore/res"
	"github.com/nekogakure/litecore/tinfo"
	"github.com/nekogakure/litecore/vfs"
)

// Fixed user stack placement for all user-mode tasks, and the base of
// the sbrk-managed user heap.
const (
	userStackBase  = 0x7FFFB000
	userStackTop   = 0x7FFFF000
	userStackPages = 4
	UserHeapBase   = 0x40000000

	// UserReentBase is the fixed one-page slot get_reent maps a task's
	// C-library reentrancy state into, one page removed from any brk
	// growth at UserHeapBase could ever reach.
	UserReentBase = 0x3FFFF000
)

// Scheduler owns the TCB arena, the ready queue and the currently
// running tid. Every exported mutating entry point takes mu for its
// duration, modeling the IRQ-off-plus-spin-flag discipline as a single
// mutex since this is a single-processor kernel.
type Scheduler struct {
	mu      sync.Mutex
	tasks   *res.Arena[Task]
	ready   *readyQueue
	current int

	frames     *mem.Allocator
	pager      *paging.Mapper
	kernelPML4 mem.PhysAddr
}

// NewScheduler creates the idle task (tid 0, kernel mode, Running) and
// returns a scheduler ready to accept TaskCreate calls.
func NewScheduler(frames *mem.Allocator, pager *paging.Mapper, kernelPML4 mem.PhysAddr, maxTasks int) *Scheduler {
	s := &Scheduler{
		tasks:      res.New[Task](maxTasks),
		ready:      newReadyQueue(),
		frames:     frames,
		pager:      pager,
		kernelPML4: kernelPML4,
	}
	idle := Task{Name: mkName("idle"), State: Running, KernelMode: true, PML4: kernelPML4, next: -1}
	idx, ok := s.tasks.Alloc(idle)
	if !ok || idx != IdleTid {
		panic("proc: idle task must be the first allocated TCB")
	}
	s.current = IdleTid
	tinfo.ClearCurrent()
	return s
}

// TaskCreate allocates a TCB in Ready state. For a user-mode task it
// also allocates a user PML4 (cloned from the kernel's) and maps the
// fixed 4-page user stack.
func (s *Scheduler) TaskCreate(name string, kernelMode bool, entry uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kstack, ok := s.frames.AllocFrame()
	if !ok {
		return 0, defs.ENOMEM
	}

	t := Task{
		Name:           mkName(name),
		State:          Ready,
		KernelMode:     kernelMode,
		PML4:           s.kernelPML4,
		KernelStackTop: mem.VirtAddr(uintptr(kstack) + mem.PGSIZE),
		Fds:            vfs.NewFDTable(),
		Cwd:            vfs.NewRootWorkingDir(),
		Note:           tinfo.MkTnote(),
		next:           -1,
	}
	t.Regs.RIP = entry

	if !kernelMode {
		pml4, err := s.pager.CreateUserPML4(s.kernelPML4)
		if err != nil {
			s.frames.FreeFrame(kstack)
			return 0, err
		}
		for i := 0; i < userStackPages; i++ {
			frame, ok := s.frames.AllocFrame()
			if !ok {
				return 0, defs.ENOMEM
			}
			va := mem.VirtAddr(userStackBase + i*mem.PGSIZE)
			if err := s.pager.MapPage64(pml4, frame, va, mem.PTE_P|mem.PTE_W|mem.PTE_U); err != nil {
				return 0, err
			}
		}
		t.PML4 = pml4
		t.UserStackTop = mem.VirtAddr(userStackTop &^ 0xF)
		t.Regs.RSP = uint64(t.UserStackTop)
		t.UserBrkBase = mem.VirtAddr(UserHeapBase)
	}

	idx, ok := s.tasks.Alloc(t)
	if !ok {
		return 0, defs.ENOMEM
	}
	task, _ := s.tasks.Get(idx)
	task.Tid = idx
	return idx, nil
}

// TaskReady enqueues a Ready TCB onto the tail of the ready queue.
func (s *Scheduler) TaskReady(tid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks.Get(tid)
	if !ok || t.State != Ready {
		return defs.EINVAL
	}
	s.ready.pushBack(s.tasks, tid)
	return nil
}

// scheduleLocked is task_schedule: if current is Running, demote it to
// Ready and re-enqueue; pop the ready queue head (falling back to idle
// when empty); switch current to the result.
func (s *Scheduler) scheduleLocked() {
	cur, _ := s.tasks.Get(s.current)
	if cur.State == Running && s.current != IdleTid {
		cur.State = Ready
		s.ready.pushBack(s.tasks, s.current)
	}

	next, ok := s.ready.popFront(s.tasks)
	for ok {
		if t, _ := s.tasks.Get(next); t.State != Dead {
			break
		}
		next, ok = s.ready.popFront(s.tasks)
	}
	if !ok {
		next = IdleTid
	}
	nt, _ := s.tasks.Get(next)
	nt.State = Running
	s.current = next

	if nt.Note != nil {
		tinfo.SetCurrent(nt.Note)
	} else {
		tinfo.ClearCurrent()
	}
}

// Schedule is the cooperative scheduling entry point (task_yield calls
// this, as does any syscall that voluntarily gives up the CPU).
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked()
}

// ScheduleFromIRQ is the timer-preemption entry point. In this host
// model it performs the identical state transition as Schedule; the
// distinction between returning via task_restore and a normal call
// return is a hardware-context-switch concern this module does not
// model.
func (s *Scheduler) ScheduleFromIRQ() {
	s.Schedule()
}

// Yield is task_yield: the current task always moves to the tail of
// the ready queue.
func (s *Scheduler) Yield() {
	s.Schedule()
}

// Exit marks tid Dead and forces a reschedule. A dead TCB is never
// selected by scheduleLocked: it is not re-enqueued, and one still in
// the ready queue from before Exit is skipped when popped. Its slot is
// freed lazily via Reap, not here.
func (s *Scheduler) Exit(tid int) error {
	s.mu.Lock()
	t, ok := s.tasks.Get(tid)
	if !ok {
		s.mu.Unlock()
		return defs.EINVAL
	}
	t.State = Dead
	s.scheduleLocked()
	s.mu.Unlock()
	return nil
}

// Reap frees a Dead task's TCB slot, recycling its arena index.
func (s *Scheduler) Reap(tid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks.Get(tid)
	if !ok || t.State != Dead {
		return defs.EINVAL
	}
	s.tasks.Free(tid)
	return nil
}

// Current returns the running task's tid.
func (s *Scheduler) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Get returns the TCB for tid.
func (s *Scheduler) Get(tid int) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Get(tid)
}

// EachTask calls f once per live TCB, in arena slot order. f must not
// call back into the scheduler: it runs with mu held, the same
// discipline res.Arena.Each itself follows.
func (s *Scheduler) EachTask(f func(tid int, t *Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks.Each(f)
}

// ReadyLen reports how many TCBs are currently enqueued, for tests.
func (s *Scheduler) ReadyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := s.ready.head; i != -1; {
		n++
		t, _ := s.tasks.Get(i)
		i = t.next
	}
	return n
}
