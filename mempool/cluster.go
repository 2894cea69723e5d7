package mempool

// takeFreePage returns the head of free_pages, allocating a fresh
// cluster first if that list is empty (spec.md §4.2). It returns nil on
// backing-allocation failure.
func (p *Pool) takeFreePage() *page {
	if p.freePages.Len() == 0 {
		if p.allocCluster() == nil {
			return nil
		}
	}

	pg := pageOf(p.freePages.Front())
	pg.detach()
	return pg
}

// allocCluster backs the pool with one more cluster_size-byte,
// page_alignment-aligned region, slices it into pages and inserts them
// into free_pages in forward page-number order (head = page 0).
func (p *Pool) allocCluster() *block {
	raw, err := p.allocBytes(p.cfg.ClusterSize, p.cfg.PageAlignment)
	if err != nil {
		return nil
	}

	n := int(p.cfg.ClusterSize / p.cfg.PageSize)

	cl := &block{
		kind:  blockCluster,
		start: addrOf(raw),
		size:  p.cfg.ClusterSize,
		buf:   raw,
		pages: make([]page, n),
	}

	pageSize := int(p.cfg.PageSize)
	for i := 0; i < n; i++ {
		pg := &cl.pages[i]
		pg.cluster = cl
		pg.number = i
		pg.data = cl.buf[i*pageSize : (i+1)*pageSize]
		pg.baseAddr = addrOf(pg.data)
	}

	for i := n - 1; i >= 0; i-- {
		cl.pages[i].insertHead(p.freePages)
	}

	p.registry.insert(cl)
	return cl
}

// returnFreePage puts a page back on free_pages; the caller must have
// already reset its size_code to pageCodeFree.
func (p *Pool) returnFreePage(pg *page) {
	pg.insertHead(p.freePages)
}

// maybeReleaseCluster checks whether every page of pg's cluster is free
// and, if so, detaches them all, removes the cluster from the registry
// and releases its backing bytes (spec.md §4.2).
func (p *Pool) maybeReleaseCluster(pg *page) {
	cl := pg.cluster

	for i := range cl.pages {
		if cl.pages[i].sizeCode != pageCodeFree {
			return
		}
	}

	for i := range cl.pages {
		cl.pages[i].detach()
	}

	p.registry.delete(cl)
	p.releaseBytes(len(cl.buf))
}
