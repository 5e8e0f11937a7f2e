package trap

import "github.com/nekogakure/litecore/stats"

// Vector ranges and fixed assignments.
const (
	VecExceptionsLo = 0
	VecExceptionsHi = 31
	VecPICLo        = 32
	VecPICHi        = 47
	VecTimerPIT     = 32
	VecTimerAPIC    = 48
	VecSyscall      = 128

	NumVectors = 256

	// GDT selectors.
	SelNull        = 0x00
	SelKernelCode  = 0x08
	SelKernelData  = 0x10
	SelUserCode32  = 0x18
	SelUserData    = 0x20
	SelUserCode64  = 0x28
	SelTSS         = 0x30
)

var exceptionNames = [32]string{
	0: "#DE divide error", 1: "#DB debug", 2: "NMI", 3: "#BP breakpoint",
	4: "#OF overflow", 5: "#BR bound range", 6: "#UD invalid opcode",
	7: "#NM device not available", 8: "#DF double fault", 10: "#TS invalid TSS",
	11: "#NP segment not present", 12: "#SS stack fault", 13: "#GP general protection",
	14: "#PF page fault", 16: "#MF x87 fp", 17: "#AC alignment check",
	18: "#MC machine check", 19: "#XM simd fp",
}

// ExceptionName returns a human-readable mnemonic for a CPU exception
// vector, used by the crash dump; unnamed/reserved vectors return "".
func ExceptionName(vector int) string {
	if vector < 0 || vector >= len(exceptionNames) {
		return ""
	}
	return exceptionNames[vector]
}

// Handler is a single vector's Go-side handler, invoked with the
// canonical saved-register frame.
type Handler func(*Frame)

// IDT models the 256-gate interrupt descriptor table. Vectors 0-31 and
// 32-47/48 carry DPL=0 (kernel-only entry); vector 128 carries DPL=3 to
// permit `int 0x80` from user mode.
type IDT struct {
	gates [NumVectors]Handler
	dpl   [NumVectors]uint8
}

// NewIDT returns an IDT with every gate's DPL set to 0 except vector 128.
func NewIDT() *IDT {
	idt := &IDT{}
	for i := range idt.dpl {
		idt.dpl[i] = 0
	}
	idt.dpl[VecSyscall] = 3
	return idt
}

// Register installs the handler for a vector.
func (t *IDT) Register(vector int, h Handler) {
	t.gates[vector] = h
}

// DPL returns the privilege level required to enter a vector via a
// software interrupt (int N); hardware-raised vectors ignore this.
func (t *IDT) DPL(vector int) uint8 {
	return t.dpl[vector]
}

// Dispatch delivers an interrupt/exception: it bumps the vector's IRQ
// counter and invokes the registered handler, if any, with frame f. An
// unregistered vector is a no-op, mirroring a kernel that simply never
// unmasks an IRQ line it has no driver for.
func (t *IDT) Dispatch(vector int, f *Frame) {
	stats.IRQ(vector)
	if h := t.gates[vector]; h != nil {
		f.Vector = uint64(vector)
		h(f)
	}
}
