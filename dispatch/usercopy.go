package dispatch

import (
	"github.com/nekogakure/litecore/defs"
	"github.com/nekogakure/litecore/mem"
	"github.com/nekogakure/litecore/paging"
)

// copyFromUser walks pml4 page by page, validating the PRESENT bit
// before every page it touches, and returns a copy of n bytes starting
// at uva. It is adapted from Fakeubuf_t's treat-a-slice-like-user-memory
// approach, generalized to real page-table translation instead of a
// direct kernel-buffer alias.
func copyFromUser(mapper *paging.Mapper, arena *mem.Arena, pml4 mem.PhysAddr, uva mem.VirtAddr, n int) ([]byte, error) {
	out := make([]byte, n)
	got := 0
	for got < n {
		pageVA := uva + mem.VirtAddr(got)
		phys, _, ok := mapper.Walk(pml4, pageVA)
		if !ok {
			return nil, defs.EFAULT
		}
		pageOff := int(pageVA % mem.PGSIZE)
		avail := mem.PGSIZE - pageOff
		take := n - got
		if take > avail {
			take = avail
		}
		src := arena.Bytes(phys+mem.PhysAddr(pageOff), take)
		copy(out[got:got+take], src)
		got += take
	}
	return out, nil
}

// copyToUser is copyFromUser's inverse: it writes src into the pages
// backing uva, validating PRESENT on every page touched.
func copyToUser(mapper *paging.Mapper, arena *mem.Arena, pml4 mem.PhysAddr, uva mem.VirtAddr, src []byte) error {
	put := 0
	for put < len(src) {
		pageVA := uva + mem.VirtAddr(put)
		phys, _, ok := mapper.Walk(pml4, pageVA)
		if !ok {
			return defs.EFAULT
		}
		pageOff := int(pageVA % mem.PGSIZE)
		avail := mem.PGSIZE - pageOff
		take := len(src) - put
		if take > avail {
			take = avail
		}
		dst := arena.Bytes(phys+mem.PhysAddr(pageOff), take)
		copy(dst, src[put:put+take])
		put += take
	}
	return nil
}
