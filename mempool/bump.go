package mempool

import "container/list"

// allocBump serves a non-freeable Get/Nget request by bump-allocating
// out of the first page in lst with enough remaining room, scanning
// past pages that don't fit and counting a miss against each. A page
// that racks up too many misses in total (the count is never reset) is
// evicted from the list
// even though it may still have some room left, trading a small amount
// of waste for an O(1) amortized scan (spec.md §4.4, §9).
func (p *Pool) allocBump(lst *list.List, size uint32) []byte {
	for e := lst.Front(); e != nil; {
		pg := pageOf(e)
		next := e.Next()

		if pg.taken+size <= p.cfg.PageSize {
			return p.bumpTake(pg, lst, size)
		}

		pg.fails = satInc(pg.fails)
		if pg.fails >= 100 {
			pg.detach()
		}

		e = next
	}

	pg := p.takeFreePage()
	if pg == nil {
		return nil
	}
	pg.sizeCode = pageCodeBump
	pg.taken = 0
	pg.fails = 0
	pg.insertHead(lst)

	return p.bumpTake(pg, lst, size)
}

func (p *Pool) bumpTake(pg *page, lst *list.List, size uint32) []byte {
	off := pg.taken
	pg.taken += size
	result := pg.data[off : off+size]

	if pg.taken >= p.cfg.PageSize {
		pg.detach()
	}

	return result
}

func satInc(n uint8) uint8 {
	if n == 255 {
		return 255
	}
	return n + 1
}
