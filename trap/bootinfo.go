package trap

// BootInfo is the record the (out-of-scope) UEFI bootloader hands to
// kernel entry: framebuffer geometry for the console/font renderer, which
// this module does not implement but whose boundary it documents.
type BootInfo struct {
	FramebufferBase     uint64
	HorizontalResolution uint32
	VerticalResolution   uint32
	PixelsPerScanLine    uint32
}
