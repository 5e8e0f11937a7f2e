package dispatch

import (
	"github.com/nekogakure/litecore/defs"
	"github.com/nekogakure/litecore/mem"
	"github.com/nekogakure/litecore/proc"
	"github.com/nekogakure/litecore/stat"
	"github.com/nekogakure/litecore/trap"
	"github.com/nekogakure/litecore/ustr"
)

func rc(e defs.Errno) int64 { return int64(e.Rc()) }

// readUserCString reads a NUL-terminated string out of user memory one
// byte at a time, up to maxLen bytes, the way open(2)'s path argument
// arrives.
func readUserCString(d *Dispatcher, task *proc.Task, uva mem.VirtAddr, maxLen int) (string, error) {
	out := make([]byte, 0, 64)
	for i := 0; i < maxLen; i++ {
		b, err := copyFromUser(d.Pager, d.Arena, task.PML4, uva+mem.VirtAddr(i), 1)
		if err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(out), nil
		}
		out = append(out, b[0])
	}
	return string(out), nil
}

func sysRead(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	fd := int(f.Arg1())
	uva := mem.VirtAddr(f.Arg2())
	length := int(f.Arg3())

	if fd == 0 {
		buf := make([]byte, length)
		n := d.Console.ReadLine(buf)
		if err := copyToUser(d.Pager, d.Arena, task.PML4, uva, buf[:n]); err != nil {
			return rc(defs.EFAULT)
		}
		return int64(n)
	}
	handleIdx, ok := task.Fds.Get(fd)
	if !ok {
		return rc(defs.EBADF)
	}
	buf := make([]byte, length)
	n, err := d.VFS.Read(handleIdx, buf)
	if err != nil {
		return rc(defs.EIO)
	}
	if err := copyToUser(d.Pager, d.Arena, task.PML4, uva, buf[:n]); err != nil {
		return rc(defs.EFAULT)
	}
	return int64(n)
}

func sysWrite(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	fd := int(f.Arg1())
	uva := mem.VirtAddr(f.Arg2())
	length := int(f.Arg3())

	data, err := copyFromUser(d.Pager, d.Arena, task.PML4, uva, length)
	if err != nil {
		return rc(defs.EFAULT)
	}

	if fd == 1 || fd == 2 {
		n, werr := d.Console.Write(data)
		if werr != nil {
			return rc(defs.EIO)
		}
		return int64(n)
	}
	handleIdx, ok := task.Fds.Get(fd)
	if !ok {
		return rc(defs.EBADF)
	}
	n, werr := d.VFS.Write(handleIdx, data)
	if werr != nil {
		return rc(defs.EIO)
	}
	return int64(n)
}

func sysOpen(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	pathVA := mem.VirtAddr(f.Arg1())
	flags := int(f.Arg2())

	s, err := readUserCString(d, task, pathVA, 256)
	if err != nil {
		return rc(defs.EFAULT)
	}
	p := d.VFS.Resolve(task.Cwd, ustr.Ustr(s))

	var handleIdx int
	if flags&defs.O_CREAT != 0 {
		handleIdx, err = d.VFS.Create(p)
	} else {
		handleIdx, err = d.VFS.Open(p)
	}
	if err != nil {
		return rc(defs.ENOENT)
	}
	fd, aerr := task.Fds.Alloc(handleIdx)
	if aerr != nil {
		d.VFS.Close(handleIdx)
		return rc(defs.EMFILE)
	}
	return int64(fd)
}

func sysClose(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	fd := int(f.Arg1())
	if fd < 3 {
		return 0
	}
	handleIdx, err := task.Fds.Free(fd)
	if err != nil {
		return rc(defs.EBADF)
	}
	if err := d.VFS.Close(handleIdx); err != nil {
		return rc(defs.EBADF)
	}
	return 0
}

func sysLseek(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	fd := int(f.Arg1())
	off := int(int64(f.Arg2()))
	whence := int(f.Arg3())

	handleIdx, ok := task.Fds.Get(fd)
	if !ok {
		return rc(defs.EBADF)
	}
	newOff, err := d.VFS.Seek(handleIdx, off, whence)
	if err != nil {
		return rc(defs.EINVAL)
	}
	return int64(newOff)
}

func sysFstat(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	fd := int(f.Arg1())
	statVA := mem.VirtAddr(f.Arg2())

	var st *stat.Stat_t
	if fd < 3 {
		st = stat.MkCharDevStat(uint(fd))
	} else {
		handleIdx, ok := task.Fds.Get(fd)
		if !ok {
			return rc(defs.EBADF)
		}
		size, err := d.VFS.FileSize(handleIdx)
		if err != nil {
			return rc(defs.EBADF)
		}
		st = stat.MkFileStat(uint(handleIdx), size)
	}
	if err := copyToUser(d.Pager, d.Arena, task.PML4, statVA, st.Bytes()); err != nil {
		return rc(defs.EFAULT)
	}
	return 0
}

func sysIsatty(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	fd := int(f.Arg1())
	if fd >= 0 && fd < 3 {
		return 1
	}
	return 0
}

func sysExit(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	code := int64(f.Arg1())
	d.Sched.Exit(task.Tid)
	return code
}

func sysSbrk(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	inc := int64(f.Arg1())
	if inc < 0 {
		return rc(defs.EINVAL)
	}
	oldBrk := task.UserBrkBase + mem.VirtAddr(task.UserBrkSize)
	if inc == 0 {
		return int64(oldBrk)
	}

	start := mem.PageAlignDown(oldBrk)
	end := mem.PageAlignUp(oldBrk + mem.VirtAddr(inc))
	for va := start; va < end; va += mem.PGSIZE {
		if _, _, ok := d.Pager.Walk(task.PML4, va); ok {
			continue
		}
		frame, ok := d.Frames.AllocFrame()
		if !ok {
			return rc(defs.ENOMEM)
		}
		d.Arena.ZeroPage(frame)
		if err := d.Pager.MapPage64(task.PML4, frame, va, mem.PTE_P|mem.PTE_W|mem.PTE_U); err != nil {
			return rc(defs.ENOMEM)
		}
	}
	task.UserBrkSize += uintptr(inc)
	return int64(oldBrk)
}

func sysGetpid(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	return int64(task.Tid)
}

func sysKill(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	return 0
}

// sysGetReent hands a task its one-page C-library reentrancy struct,
// mapped at the fixed per-task slot proc.UserReentBase and zeroed on
// every call (size is capped at a page but otherwise unused: the slot
// is always exactly one page). A second call from the same task reuses
// the already-mapped page instead of leaking a fresh frame.
func sysGetReent(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	size := f.Arg1()
	if size > mem.PGSIZE {
		size = mem.PGSIZE
	}
	va := mem.VirtAddr(proc.UserReentBase)

	if phys, _, ok := d.Pager.Walk(task.PML4, va); ok {
		d.Arena.ZeroPage(phys)
		return int64(va)
	}

	frame, ok := d.Frames.AllocFrame()
	if !ok {
		return rc(defs.ENOMEM)
	}
	if err := d.Pager.MapPage64(task.PML4, frame, va, mem.PTE_P|mem.PTE_W|mem.PTE_U); err != nil {
		return rc(defs.ENOMEM)
	}
	return int64(va)
}

func sysArchPrctl(d *Dispatcher, task *proc.Task, f *trap.Frame) int64 {
	code := f.Arg1()
	addr := f.Arg2()
	const (
		archSetFS = 0x1002
		archGetFS = 0x1003
	)
	switch code {
	case archSetFS:
		task.FSBase = addr
		return 0
	case archGetFS:
		if err := copyToUser(d.Pager, d.Arena, task.PML4, mem.VirtAddr(addr), u64bytes(task.FSBase)); err != nil {
			return rc(defs.EFAULT)
		}
		return 0
	default:
		return rc(defs.EINVAL)
	}
}

func u64bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
