package mempool

import "container/list"

// Page state codes (spec.md §3, "Page", size_code).
const (
	pageCodeFree uint8 = 0x00
	pageCodeBump uint8 = 0xFF
)

// page describes one page-sized slice of a cluster. data is that page's
// backing bytes, sliced once out of the owning cluster's buffer at
// cluster-creation time; baseAddr is its address, cached so chunk/bump
// arithmetic never has to re-derive it.
//
// A page belongs to at most one of the pool's lists at a time (free,
// one chunk-size class, get, nget) or none (fully busy). list/elem track
// that single membership explicitly, since container/list nodes are not
// intrusive the way spec.md §9 describes the original's link field.
type page struct {
	list *list.List
	elem *list.Element

	cluster  *block
	data     []byte
	baseAddr uintptr
	number   int

	sizeCode uint8
	chunks   uint8
	fails    uint8
	bitmap   uint32
	taken    uint32
}

func (p *page) detach() {
	if p.list != nil {
		p.list.Remove(p.elem)
		p.list = nil
		p.elem = nil
	}
}

func (p *page) insertHead(l *list.List) {
	p.detach()
	p.elem = l.PushFront(p)
	p.list = l
}

func pageOf(elem *list.Element) *page {
	return elem.Value.(*page)
}
