package mem

import "sync"

// chunkFrames is the number of frames tracked by a single bitmap chunk:
// 1 MiB of address space at 4 KiB per frame.
const (
	chunkBytes  = 1 << 20
	chunkFrames = chunkBytes / PGSIZE
	wordBits    = 64
	wordsPerChunk = (chunkFrames + wordBits - 1) / wordBits
)

type chunk struct {
	// bit set means the frame is allocated (or reserved)
	bits [wordsPerChunk]uint64
}

func (c *chunk) test(i int) bool {
	return c.bits[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

func (c *chunk) set(i int) {
	c.bits[i/wordBits] |= 1 << uint(i%wordBits)
}

func (c *chunk) clear(i int) {
	c.bits[i/wordBits] &^= 1 << uint(i%wordBits)
}

// firstFree returns the lowest clear bit index in the chunk, or -1 if the
// chunk is fully allocated. Full words are skipped without per-bit work.
func (c *chunk) firstFree() int {
	for w := 0; w < wordsPerChunk; w++ {
		if c.bits[w] == ^uint64(0) {
			continue
		}
		for b := 0; b < wordBits; b++ {
			i := w*wordBits + b
			if i >= chunkFrames {
				return -1
			}
			if c.bits[w]&(1<<uint(b)) == 0 {
				return i
			}
		}
	}
	return -1
}

// Allocator is the chunked-bitmap physical frame allocator. Chunks are
// created lazily on first touch so an allocator spanning a large arena
// does not pay for bitmaps it never scans.
type Allocator struct {
	mu      sync.Mutex
	arena   *Arena
	nframes int
	chunks  map[int]*chunk
}

// NewAllocator creates a frame allocator over the given arena.
func NewAllocator(arena *Arena) *Allocator {
	return &Allocator{
		arena:   arena,
		nframes: arena.Size() / PGSIZE,
		chunks:  make(map[int]*chunk),
	}
}

func (a *Allocator) chunkOf(frame int) (*chunk, int) {
	ci := frame / chunkFrames
	bit := frame % chunkFrames
	c, ok := a.chunks[ci]
	if !ok {
		c = &chunk{}
		a.chunks[ci] = c
	}
	return c, bit
}

func (a *Allocator) frameToPhys(frame int) PhysAddr {
	return a.arena.Base() + PhysAddr(frame)*PGSIZE
}

func (a *Allocator) physToFrame(p PhysAddr) int {
	return int((p - a.arena.Base()) / PGSIZE)
}

// AllocFrame scans chunks in address order, returning the first free
// frame it finds and the zero PhysAddr with ok=false if the arena is
// exhausted. This module never panics on exhaustion: failure is
// communicated to the caller, who decides whether it is fatal.
func (a *Allocator) AllocFrame() (PhysAddr, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	nchunks := (a.nframes + chunkFrames - 1) / chunkFrames
	for ci := 0; ci < nchunks; ci++ {
		c, ok := a.chunks[ci]
		if !ok {
			c = &chunk{}
			a.chunks[ci] = c
		}
		limit := chunkFrames
		if rem := a.nframes - ci*chunkFrames; rem < limit {
			limit = rem
		}
		bit := c.firstFree()
		if bit == -1 || bit >= limit {
			continue
		}
		c.set(bit)
		frame := ci*chunkFrames + bit
		p := a.frameToPhys(frame)
		a.arena.ZeroPage(p)
		return p, true
	}
	return 0, false
}

// FreeFrame releases the frame at p back to the allocator. Freeing an
// already-free frame is a no-op; freeing an address outside the arena or
// not frame-aligned panics (an InvalidArgument-class programmer error).
func (a *Allocator) FreeFrame(p PhysAddr) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p%PGSIZE != 0 || !a.arena.Contains(p) {
		panic("mem: FreeFrame: invalid physical address")
	}
	frame := a.physToFrame(p)
	c, bit := a.chunkOf(frame)
	c.clear(bit)
}

// Reserve idempotently marks every frame in [start, end) as allocated,
// lazily creating chunks as needed. Used at boot to carve out frames the
// kernel image itself occupies.
func (a *Allocator) Reserve(start, end PhysAddr) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := PageAlignDown(start)
	e := PhysAddr(PageRound(uintptr(end)))
	for p := s; p < e; p += PGSIZE {
		if !a.arena.Contains(p) {
			continue
		}
		frame := a.physToFrame(p)
		c, bit := a.chunkOf(frame)
		c.set(bit)
	}
}

// Frames reports total and free frame counts.
func (a *Allocator) Frames() (total, free int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	total = a.nframes
	used := 0
	for ci := 0; ci*chunkFrames < a.nframes; ci++ {
		c, ok := a.chunks[ci]
		if !ok {
			continue
		}
		limit := chunkFrames
		if rem := a.nframes - ci*chunkFrames; rem < limit {
			limit = rem
		}
		for i := 0; i < limit; i++ {
			if c.test(i) {
				used++
			}
		}
	}
	return total, total - used
}
