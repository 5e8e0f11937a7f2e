// Package blkcache implements a fixed-entry LRU cache of disk blocks
// over a pci.SectorDevice, reworked from a Bdev_block_t / BlkList_t
// pair into a flat slot table sized at Init time.
package blkcache

import (
	"sync"

	"github.com/nekogakure/litecore/pci"
	"github.com/nekogakure/litecore/stats"
)

type entry struct {
	blockNum  int
	lastUsed  uint64
	valid     bool
	dirty     bool
	data      []byte
}

// Cache is a fixed-size LRU block cache. BlockSize must be a positive
// multiple of pci.SectorSize.
type Cache struct {
	mu        sync.Mutex
	dev       pci.SectorDevice
	blockSize int
	entries   []entry

	Hits   stats.Counter_t
	Misses stats.Counter_t
}

// Init constructs a cache of numEntries slots, each blockSize bytes,
// backed by dev. blockSize must be a positive multiple of the device's
// sector size.
func Init(dev pci.SectorDevice, blockSize, numEntries int) *Cache {
	if blockSize <= 0 || blockSize%pci.SectorSize != 0 {
		panic("blkcache: block size must be a positive multiple of sector size")
	}
	c := &Cache{
		dev:       dev,
		blockSize: blockSize,
		entries:   make([]entry, numEntries),
	}
	return c
}

func (c *Cache) sectorsPerBlock() int { return c.blockSize / pci.SectorSize }

// findLocked returns the index of the entry valid and matching block,
// or -1 if no such entry exists. Caller holds c.mu.
func (c *Cache) findLocked(block int) int {
	for i := range c.entries {
		if c.entries[i].valid && c.entries[i].blockNum == block {
			return i
		}
	}
	return -1
}

// evictLocked picks a slot to reuse: any invalid slot first, else the
// slot with the smallest last_used timestamp. Dirty victims are
// written back before reuse. Caller holds c.mu.
func (c *Cache) evictLocked() int {
	victim := 0
	found := false
	for i := range c.entries {
		if !c.entries[i].valid {
			victim = i
			found = true
			break
		}
		if !found || c.entries[i].lastUsed < c.entries[victim].lastUsed {
			victim = i
			found = true
		}
	}
	if c.entries[victim].valid && c.entries[victim].dirty {
		c.writebackLocked(victim)
	}
	return victim
}

func (c *Cache) writebackLocked(i int) {
	e := &c.entries[i]
	lba := e.blockNum * c.sectorsPerBlock()
	if err := c.dev.WriteSectors(lba, c.sectorsPerBlock(), e.data); err != nil {
		panic(err)
	}
	e.dirty = false
}

func (c *Cache) loadLocked(i, block int) {
	e := &c.entries[i]
	e.blockNum = block
	e.valid = true
	e.dirty = false
	if e.data == nil {
		e.data = make([]byte, c.blockSize)
	}
	lba := block * c.sectorsPerBlock()
	if err := c.dev.ReadSectors(lba, c.sectorsPerBlock(), e.data); err != nil {
		panic(err)
	}
}

// Read copies block's contents into buf, which must be at least
// BlockSize() bytes. A cache miss loads the block from the device; a
// hit bumps its LRU timestamp.
func (c *Cache) Read(block int, buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.findLocked(block); i != -1 {
		c.Hits.Inc()
		c.entries[i].lastUsed = stats.Tick()
		copy(buf, c.entries[i].data)
		return
	}
	c.Misses.Inc()
	i := c.evictLocked()
	c.loadLocked(i, block)
	c.entries[i].lastUsed = stats.Tick()
	copy(buf, c.entries[i].data)
}

// Write overwrites block's cached payload with buf and marks it dirty.
// A miss evicts an LRU slot (writing it back first if dirty) and loads
// the target block before the overwrite, matching the read-modify-write
// semantics needed for partial-block writes.
func (c *Cache) Write(block int, buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.findLocked(block)
	if i == -1 {
		c.Misses.Inc()
		i = c.evictLocked()
		c.loadLocked(i, block)
	} else {
		c.Hits.Inc()
	}
	copy(c.entries[i].data, buf)
	c.entries[i].dirty = true
	c.entries[i].lastUsed = stats.Tick()
}

// Flush writes back every dirty valid entry and clears its dirty bit.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].valid && c.entries[i].dirty {
			c.writebackLocked(i)
		}
	}
}

// Destroy flushes outstanding writes and invalidates every entry,
// leaving the cache as if freshly Init'd against the same device.
func (c *Cache) Destroy() {
	c.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		c.entries[i] = entry{}
	}
}

// BlockSize returns the cache's fixed block size in bytes.
func (c *Cache) BlockSize() int { return c.blockSize }
