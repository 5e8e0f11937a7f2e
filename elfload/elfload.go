// Package elfload loads an ET_EXEC/EM_X86_64 binary from the mounted
// filesystem into a freshly created task's address space, mapping each
// PT_LOAD segment and leaving the task ready to run at the file's entry
// point. Header validation mirrors the checks cmd/chentry already makes
// before it will touch a binary's entry field.
package elfload

import (
	"bytes"
	"debug/elf"
	"fmt"

	"github.com/nekogakure/litecore/mem"
	"github.com/nekogakure/litecore/paging"
	"github.com/nekogakure/litecore/proc"
	"github.com/nekogakure/litecore/ustr"
	"github.com/nekogakure/litecore/vfs"
)

// readWholeFile reads path's full contents through the VFS handle
// interface, chunking reads since vfs.FS.Read has no notion of an
// io.ReaderAt backing a host file directly.
func readWholeFile(fs *vfs.FS, path ustr.Ustr) ([]byte, error) {
	idx, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer fs.Close(idx)

	size, err := fs.FileSize(idx)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	got := 0
	for got < size {
		n, err := fs.Read(idx, out[got:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		got += n
	}
	return out[:got], nil
}

func checkHeader(fh *elf.FileHeader) error {
	if fh.Class != elf.ELFCLASS64 {
		return fmt.Errorf("elfload: not a 64-bit elf")
	}
	if fh.Data != elf.ELFDATA2LSB {
		return fmt.Errorf("elfload: not little-endian")
	}
	if fh.Type != elf.ET_EXEC {
		return fmt.Errorf("elfload: not an executable elf")
	}
	if fh.Machine != elf.EM_X86_64 {
		return fmt.Errorf("elfload: not x86-64")
	}
	return nil
}

// Load reads path from fs, validates it as an ET_EXEC/EM_X86_64 binary,
// maps every PT_LOAD segment into task's address space via pager
// (backing new pages with frames from alloc, and copying their file
// content through arena), and sets task.Regs.RIP to the file's entry
// point.
func Load(fs *vfs.FS, path ustr.Ustr, task *proc.Task, pager *paging.Mapper, alloc *mem.Allocator, arena *mem.Arena) error {
	raw, err := readWholeFile(fs, path)
	if err != nil {
		return err
	}

	ef, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("elfload: %w", err)
	}
	if err := checkHeader(&ef.FileHeader); err != nil {
		return err
	}

	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if err := loadSegment(raw, prog, task, pager, alloc, arena); err != nil {
			return err
		}
	}

	task.Regs.RIP = ef.Entry
	return nil
}

func loadSegment(raw []byte, prog *elf.Prog, task *proc.Task, pager *paging.Mapper, alloc *mem.Allocator, arena *mem.Arena) error {
	vstart := mem.PageAlignDown(mem.VirtAddr(prog.Vaddr))
	vend := mem.PageAlignUp(mem.VirtAddr(prog.Vaddr + prog.Memsz))

	flags := uintptr(mem.PTE_P | mem.PTE_U)
	if prog.Flags&elf.PF_W != 0 {
		flags |= mem.PTE_W
	}

	for va := vstart; va < vend; va += mem.PGSIZE {
		frame, ok := alloc.AllocFrame()
		if !ok {
			return fmt.Errorf("elfload: out of physical frames")
		}
		if err := pager.MapPage64(task.PML4, frame, va, flags); err != nil {
			return err
		}
	}

	return copySegmentContent(raw, prog, task, pager, arena)
}

// copySegmentContent copies Filesz bytes from the file image into the
// mapped segment pages, walking the page table the same way dispatch's
// user-copy helpers do; bytes beyond Filesz up to Memsz (bss) are left
// at the zero a freshly allocated frame already starts with.
func copySegmentContent(raw []byte, prog *elf.Prog, task *proc.Task, pager *paging.Mapper, arena *mem.Arena) error {
	if prog.Filesz == 0 {
		return nil
	}
	if prog.Off+prog.Filesz > uint64(len(raw)) {
		return fmt.Errorf("elfload: segment extends past file end")
	}
	data := raw[prog.Off : prog.Off+prog.Filesz]

	va := mem.VirtAddr(prog.Vaddr)
	written := 0
	for written < len(data) {
		pageVA := va + mem.VirtAddr(written)
		phys, _, ok := pager.Walk(task.PML4, pageVA)
		if !ok {
			return fmt.Errorf("elfload: segment page not mapped")
		}
		pageOff := int(pageVA % mem.PGSIZE)
		avail := mem.PGSIZE - pageOff
		take := len(data) - written
		if take > avail {
			take = avail
		}
		dst := arena.Bytes(phys+mem.PhysAddr(pageOff), take)
		copy(dst, data[written:written+take])
		written += take
	}
	return nil
}
