// Package console backs the implicit fds 0/1/2 every task inherits:
// fd 0 reads lines from a keyboard byte queue, fds 1/2 write to a
// shared output sink in bounded chunks.
package console

import (
	"io"
	"sync"

	"github.com/nekogakure/litecore/circbuf"
)

// WriteChunk is the largest single write this console forwards to its
// sink in one call, matching the chunking a real UART/framebuffer
// writer would need for a large user buffer.
const WriteChunk = 1024

// Console is the single shared keyboard/output device every task's
// fds 0-2 alias.
type Console struct {
	kbd *circbuf.Queue

	mu  sync.Mutex
	out io.Writer
}

// New builds a console with a keyboard queue of the given byte
// capacity, writing output to out.
func New(kbdCapacity int, out io.Writer) *Console {
	return &Console{kbd: circbuf.NewQueue(kbdCapacity), out: out}
}

// PushKey is called from the keyboard IRQ handler to enqueue one
// scanned byte.
func (c *Console) PushKey(b byte) bool {
	return c.kbd.Push(b)
}

// ReadLine blocks until at least one keyboard byte is available, then
// copies bytes into buf up to and including the next '\n', or until
// buf fills.
func (c *Console) ReadLine(buf []byte) int {
	return c.kbd.PopLine(buf)
}

// Write forwards buf to the output sink in WriteChunk-sized pieces and
// returns the total bytes written.
func (c *Console) Write(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for len(buf) > 0 {
		n := len(buf)
		if n > WriteChunk {
			n = WriteChunk
		}
		w, err := c.out.Write(buf[:n])
		total += w
		if err != nil {
			return total, err
		}
		buf = buf[n:]
	}
	return total, nil
}
