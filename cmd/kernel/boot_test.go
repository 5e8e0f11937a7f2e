package main

import (
	"bytes"
	"testing"

	"github.com/nekogakure/litecore/defs"
	"github.com/nekogakure/litecore/mem"
	"github.com/nekogakure/litecore/pci"
	"github.com/nekogakure/litecore/ustr"
)

// writeTestFAT16BPB stamps a minimal BIOS parameter block onto sector 0
// of dev: 512-byte sectors, 2 FATs, 1 reserved sector, 32 root entries.
func writeTestFAT16BPB(dev *pci.MemDevice) {
	var raw [512]byte
	raw[11], raw[12] = 0x00, 0x02 // bytes per sector = 512
	raw[13] = 1                  // sectors per cluster
	raw[14], raw[15] = 1, 0      // reserved sectors
	raw[16] = 2                  // number of FATs
	raw[17], raw[18] = 32, 0     // root entry count
	raw[19], raw[20] = 0, 1      // total sectors (small)
	raw[22], raw[23] = 4, 0      // sectors per FAT
	dev.WriteSectors(0, 1, raw[:])
}

func bootTestMachine(t *testing.T) (*Machine, *bytes.Buffer) {
	t.Helper()
	dev := pci.NewMemDevice(1024)
	writeTestFAT16BPB(dev)

	var out bytes.Buffer
	m, err := Boot(Config{
		ArenaBytes:  32 << 20,
		MaxTasks:    16,
		MaxHandles:  32,
		SectorSize:  512,
		CacheBlocks: 32,
		Disk:        dev,
		ConsoleOut:  &out,
		HeapBytes:   2 << 20,
	})
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	return m, &out
}

// S1: a freshly booted machine can open and read back a file its image
// was seeded with.
func TestBootReadsSeedFile(t *testing.T) {
	m, _ := bootTestMachine(t)
	if _, err := m.FAT.WriteFile(ustr.Ustr("/README.md"), []byte("hi\n"), 0); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tid, err := m.Sched.TaskCreate("reader", false, 0)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	pathBuf := scratchAddr(m, tid)
	writeUserBytes(t, m, tid, pathBuf, append([]byte("/README.md"), 0))
	fd := m.Syscall(tid, defs.SYS_OPEN, uint64(pathBuf), defs.O_RDONLY)
	if fd < 0 {
		t.Fatalf("open: rc=%d", fd)
	}

	dataBuf := pathBuf + 64
	n := m.Syscall(tid, defs.SYS_READ, uint64(fd), uint64(dataBuf), 16)
	if n != 3 {
		t.Fatalf("read: rc=%d, want 3", n)
	}
	got := readUserBytes(t, m, tid, dataBuf, 3)
	if string(got) != "hi\n" {
		t.Fatalf("read content = %q, want %q", got, "hi\n")
	}

	if rc := m.Syscall(tid, defs.SYS_CLOSE, uint64(fd)); rc != 0 {
		t.Fatalf("close: rc=%d", rc)
	}
}

// S2: the kernel heap starts at 2 MiB, accepts 32 64KiB allocations
// without expanding past its first region, and the 33rd triggers at
// least a 1 MiB expansion and still succeeds.
func TestHeapExpandsOnExhaustion(t *testing.T) {
	m, _ := bootTestMachine(t)

	const chunk = 64 << 10
	for i := 0; i < 32; i++ {
		if p := m.Heap.Kmalloc(chunk); !p.Valid() {
			t.Fatalf("allocation %d failed before expansion", i)
		}
	}
	before := m.Heap.Regions()

	p := m.Heap.Kmalloc(chunk)
	if !p.Valid() {
		t.Fatal("33rd allocation failed even after expansion should have occurred")
	}
	after := m.Heap.Regions()
	if after <= before {
		t.Fatalf("Regions did not grow: before=%d after=%d", before, after)
	}
}

// S3: a task that issues exit(2) moves to Dead and is no longer
// scheduled.
func TestUserExitMarksTaskDead(t *testing.T) {
	m, _ := bootTestMachine(t)
	tid, err := m.Sched.TaskCreate("quitter", false, 0)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	rc := m.Syscall(tid, defs.SYS_EXIT, 7)
	if rc != 7 {
		t.Fatalf("exit: rc=%d, want 7", rc)
	}
	task, ok := m.Sched.Get(tid)
	if !ok {
		t.Fatal("task vanished")
	}
	if task.State.String() != "dead" {
		t.Fatalf("task state = %s, want dead", task.State.String())
	}
}

// S4: two tasks opening the same path get independent fd tables; fd
// numbers assigned to one task say nothing about the other's table.
func TestFileDescriptorsAreIsolatedPerTask(t *testing.T) {
	m, _ := bootTestMachine(t)
	if _, err := m.FAT.WriteFile(ustr.Ustr("/shared.txt"), []byte("xy"), 0); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tidA, _ := m.Sched.TaskCreate("a", false, 0)
	tidB, _ := m.Sched.TaskCreate("b", false, 0)

	pathA := scratchAddr(m, tidA)
	writeUserBytes(t, m, tidA, pathA, append([]byte("/shared.txt"), 0))
	fdA := m.Syscall(tidA, defs.SYS_OPEN, uint64(pathA), defs.O_RDONLY)
	if fdA < 0 {
		t.Fatalf("task a open: rc=%d", fdA)
	}

	pathB := scratchAddr(m, tidB)
	writeUserBytes(t, m, tidB, pathB, append([]byte("/shared.txt"), 0))
	fdB := m.Syscall(tidB, defs.SYS_OPEN, uint64(pathB), defs.O_RDONLY)
	if fdB < 0 {
		t.Fatalf("task b open: rc=%d", fdB)
	}

	// b never opened anything on fdA's number besides its own open, so
	// closing a's fd must not disturb b's.
	if rc := m.Syscall(tidA, defs.SYS_CLOSE, uint64(fdA)); rc != 0 {
		t.Fatalf("task a close: rc=%d", rc)
	}
	dataB := pathB + 64
	n := m.Syscall(tidB, defs.SYS_READ, uint64(fdB), uint64(dataB), 8)
	if n != 2 {
		t.Fatalf("task b read after task a closed its own fd: rc=%d, want 2", n)
	}
}

// S5: sbrk(0) reports the current break, and a positive increment maps
// fresh, zeroed pages and advances it.
func TestSbrkThroughFullMachine(t *testing.T) {
	m, _ := bootTestMachine(t)
	tid, err := m.Sched.TaskCreate("grower", false, 0)
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	base := m.Syscall(tid, defs.SYS_SBRK, 0)
	grown := m.Syscall(tid, defs.SYS_SBRK, 8192)
	if grown != base {
		t.Fatalf("sbrk(8192) returned %d, want old break %d", grown, base)
	}
	newBrk := m.Syscall(tid, defs.SYS_SBRK, 0)
	if newBrk != base+8192 {
		t.Fatalf("break after growth = %d, want %d", newBrk, base+8192)
	}
}

func scratchAddr(m *Machine, tid int) uint64 {
	task, _ := m.Sched.Get(tid)
	return uint64(task.UserStackTop) - uint64(4096)
}

func writeUserBytes(t *testing.T, m *Machine, tid int, va uint64, data []byte) {
	t.Helper()
	task, _ := m.Sched.Get(tid)
	put := 0
	for put < len(data) {
		pageVA := mem.VirtAddr(va) + mem.VirtAddr(put)
		phys, _, ok := m.Pager.Walk(task.PML4, pageVA)
		if !ok {
			t.Fatalf("writeUserBytes: unmapped page at %#x", pageVA)
		}
		pageOff := int(pageVA % mem.PGSIZE)
		avail := mem.PGSIZE - pageOff
		take := len(data) - put
		if take > avail {
			take = avail
		}
		dst := m.Arena.Bytes(phys+mem.PhysAddr(pageOff), take)
		copy(dst, data[put:put+take])
		put += take
	}
}

func readUserBytes(t *testing.T, m *Machine, tid int, va uint64, n int) []byte {
	t.Helper()
	task, _ := m.Sched.Get(tid)
	out := make([]byte, n)
	got := 0
	for got < n {
		pageVA := mem.VirtAddr(va) + mem.VirtAddr(got)
		phys, _, ok := m.Pager.Walk(task.PML4, pageVA)
		if !ok {
			t.Fatalf("readUserBytes: unmapped page at %#x", pageVA)
		}
		pageOff := int(pageVA % mem.PGSIZE)
		avail := mem.PGSIZE - pageOff
		take := n - got
		if take > avail {
			take = avail
		}
		src := m.Arena.Bytes(phys+mem.PhysAddr(pageOff), take)
		copy(out[got:got+take], src)
		got += take
	}
	return out
}
