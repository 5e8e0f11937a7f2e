package trap

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"

	"github.com/nekogakure/litecore/caller"
)

// Halted is set by Halt so tests can observe that a FatalCpuException
// path ran to completion without actually blocking the test goroutine
// forever the way a real `hlt` loop would.
var Halted bool

// Halt implements the FatalCpuException policy: print a diagnostic
// register/instruction dump, then set Halted and return; it does not
// loop. codeAtRIP, if
// non-nil, is the handful of bytes at the faulting RIP; when present they
// are decoded into an x86 mnemonic the way a real panic's "Code: ..." line
// would, reaching for a real instruction-level decoding library instead
// of hand rolling an x86 decoder.
func Halt(f *Frame, codeAtRIP []byte) {
	fmt.Printf("FATAL: vector %d (%s) errcode=%#x at rip=%#x\n",
		f.Vector, ExceptionName(int(f.Vector)), f.ErrorCode, f.RIP)
	fmt.Printf("  rax=%#x rbx=%#x rcx=%#x rdx=%#x\n", f.RAX, f.RBX, f.RCX, f.RDX)
	fmt.Printf("  rsi=%#x rdi=%#x rbp=%#x rsp=%#x\n", f.RSI, f.RDI, f.RBP, f.RSP)
	fmt.Printf("  cs=%#x ss=%#x rflags=%#x\n", f.CS, f.SS, f.RFLAGS)

	if len(codeAtRIP) > 0 {
		if inst, err := x86asm.Decode(codeAtRIP, 64); err == nil {
			fmt.Printf("  code: %s\n", inst.String())
		} else {
			fmt.Printf("  code: <undecodable: %v>\n", err)
		}
	}

	caller.Callerdump(2)
	Halted = true
	// a real kernel loops on `hlt` here, relying on interrupts remaining
	// disabled; there is nothing further for this process to do.
}
