// Package trap models the interrupt/exception delivery path: the IDT's
// 256 gates, the canonical saved-register frame every vector's assembly
// stub would build, and the GDT/TSS layout user-mode entry depends on.
package trap

import "github.com/nekogakure/litecore/bounds"

// Frame is the canonical on-stack register frame, built by every vector's
// assembly stub in this exact field order before it calls into Go. The
// scheduler's preempt path and the syscall dispatcher both consume this
// one struct, so the layout is fixed once here rather than duplicated.
//
// Layout: callee-saved-first GPR pushes, then the vector number and CPU
// (or stub-supplied dummy) error code, then the hardware-pushed iretq
// frame (RIP, CS, RFLAGS, RSP, SS) in the order the CPU itself pushes it.
type Frame struct {
	R15, R14, R13, R12, R11, R10, R9, R8 uint64
	RBP, RDI, RSI, RDX, RCX, RBX, RAX    uint64

	Vector    uint64
	ErrorCode uint64

	RIP    uint64
	CS     uint64
	RFLAGS uint64
	RSP    uint64
	SS     uint64
}

var frameFields = []string{
	"R15", "R14", "R13", "R12", "R11", "R10", "R9", "R8",
	"RBP", "RDI", "RSI", "RDX", "RCX", "RBX", "RAX",
	"Vector", "ErrorCode",
	"RIP", "CS", "RFLAGS", "RSP", "SS",
}

func init() {
	bounds.AssertLayout(Frame{}, 22*8, frameFields)
}

// Arg1..Arg6 read the syscall ABI argument registers: RDI, RSI, RDX, R10,
// R8, R9.
func (f *Frame) Arg1() uint64 { return f.RDI }
func (f *Frame) Arg2() uint64 { return f.RSI }
func (f *Frame) Arg3() uint64 { return f.RDX }
func (f *Frame) Arg4() uint64 { return f.R10 }
func (f *Frame) Arg5() uint64 { return f.R8 }
func (f *Frame) Arg6() uint64 { return f.R9 }

// SyscallNum reads RAX, which carries the syscall number on entry.
func (f *Frame) SyscallNum() uint64 { return f.RAX }

// SetReturn writes a syscall's return value back into RAX, the register
// the `syscall`/`sysret` and `int 0x80`/`iretq` paths both read on return.
func (f *Frame) SetReturn(v int64) { f.RAX = uint64(v) }
