package trap

// GDTEntry describes one 8-byte GDT descriptor (or half of the 16-byte
// TSS descriptor, which consumes two slots).
type GDTEntry struct {
	Base  uint64
	Limit uint32
	Type  uint8
	DPL   uint8
}

// TSS models the fields this kernel actually touches: the ring-0 stack
// pointer reloaded on every user-mode entry.
type TSS struct {
	RSP0 uint64
}

// GDT is the 6-descriptor table plus one slot for the low half of the
// 16-byte TSS descriptor (the high half has no slot here), laid out to
// match the selector constants in idt.go.
type GDT struct {
	entries [7]GDTEntry // null, kcode, kdata, ucode32, udata, ucode64, tss(lo)
	tss     TSS
}

// NewGDT builds the fixed descriptor layout; selectors are the constants
// SelKernelCode etc. defined in idt.go.
func NewGDT() *GDT {
	g := &GDT{}
	g.entries[0] = GDTEntry{} // null
	g.entries[1] = GDTEntry{Type: 0x9a, DPL: 0}      // kernel code
	g.entries[2] = GDTEntry{Type: 0x92, DPL: 0}      // kernel data
	g.entries[3] = GDTEntry{Type: 0x9a, DPL: 3}      // user code 32 (SYSRET compat)
	g.entries[4] = GDTEntry{Type: 0x92, DPL: 3}      // user data
	g.entries[5] = GDTEntry{Type: 0x9a, DPL: 3}      // user code 64
	g.entries[6] = GDTEntry{Type: 0x89, DPL: 0}      // TSS (low half)
	return g
}

// SetKernelStack updates TSS.rsp0, called before every user-mode entry so
// the next ring-3→ring-0 transition (syscall, interrupt) lands on the
// correct kernel stack for the about-to-run task.
func (g *GDT) SetKernelStack(rsp0 uint64) {
	g.tss.RSP0 = rsp0
}

// KernelStack returns the currently configured TSS.rsp0.
func (g *GDT) KernelStack() uint64 {
	return g.tss.RSP0
}
