package vfs

import (
	"hash/fnv"
	"sync"

	"github.com/nekogakure/litecore/ustr"
)

type cacheElem struct {
	key   ustr.Ustr
	value int
	next  *cacheElem
}

type cacheBucket struct {
	sync.RWMutex
	first *cacheElem
}

// PathCache memoizes resolved absolute paths to their global-handle
// index, adapted from hashtable.Hashtable_t's bucket-chained design but
// narrowed to a single key type and plain per-bucket locking rather
// than lock-free atomic-pointer traversal: a cache miss falls through
// to the backend, so there is no correctness requirement to keep reads
// wait-free.
type PathCache struct {
	buckets []*cacheBucket
}

// NewPathCache allocates a cache with the given bucket count.
func NewPathCache(buckets int) *PathCache {
	pc := &PathCache{buckets: make([]*cacheBucket, buckets)}
	for i := range pc.buckets {
		pc.buckets[i] = &cacheBucket{}
	}
	return pc
}

func (pc *PathCache) bucket(p ustr.Ustr) *cacheBucket {
	h := fnv.New32a()
	h.Write(p)
	return pc.buckets[h.Sum32()%uint32(len(pc.buckets))]
}

// Get returns the cached handle index for p, if present.
func (pc *PathCache) Get(p ustr.Ustr) (int, bool) {
	b := pc.bucket(p)
	b.RLock()
	defer b.RUnlock()
	for e := b.first; e != nil; e = e.next {
		if e.key.Eq(p) {
			return e.value, true
		}
	}
	return 0, false
}

// Set records p's resolved handle index, replacing any prior entry.
func (pc *PathCache) Set(p ustr.Ustr, handleIdx int) {
	b := pc.bucket(p)
	b.Lock()
	defer b.Unlock()
	for e := b.first; e != nil; e = e.next {
		if e.key.Eq(p) {
			e.value = handleIdx
			return
		}
	}
	b.first = &cacheElem{key: p, value: handleIdx, next: b.first}
}

// Del removes p's cache entry, if any.
func (pc *PathCache) Del(p ustr.Ustr) {
	b := pc.bucket(p)
	b.Lock()
	defer b.Unlock()
	var prev *cacheElem
	for e := b.first; e != nil; e = e.next {
		if e.key.Eq(p) {
			if prev == nil {
				b.first = e.next
			} else {
				prev.next = e.next
			}
			return
		}
		prev = e
	}
}
