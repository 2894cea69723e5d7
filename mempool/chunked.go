package mempool

import "math/bits"

// chunkClassIndex maps a requested size to the chunk-size class that
// serves it: class i holds chunks of min_chunk_size << i bytes, up to
// and including a whole page (spec.md §4.3).
func (p *Pool) chunkClassIndex(size uint32) int {
	if size <= p.cfg.MinChunkSize {
		return 0
	}
	return bits.Len32(size-1) - int(p.chunkSizeShift)
}

// numChunkClasses returns how many chunk-size classes a page_size/
// min_chunk_size pair needs: one per power-of-two chunk size from
// min_chunk_size up to and including page_size itself.
func numChunkClasses(pageSize, minChunkSize uint32) int {
	return bits.Len32(pageSize / minChunkSize)
}

// fullMask returns the bitmap value with the low n bits set, i.e. "every
// chunk in a page of n chunks is free".
func fullMask(n uint32) uint32 {
	if n >= 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << n) - 1
}

// allocChunked serves a freeable request of size <= page_size by taking
// a chunk from the front page of that size class's list, pulling a
// fresh page from free_pages (allocating a cluster if needed) when the
// class is empty or its front page is full (spec.md §4.3).
func (p *Pool) allocChunked(size uint32) []byte {
	idx := p.chunkClassIndex(size)
	chunkSize := p.cfg.MinChunkSize << uint(idx)
	lst := p.chunkLists[idx]

	var pg *page
	if lst.Len() > 0 {
		pg = pageOf(lst.Front())
	} else {
		pg = p.takeFreePage()
		if pg == nil {
			return nil
		}
		pg.sizeCode = uint8(idx + 1)
		pg.chunks = uint8(p.cfg.PageSize / chunkSize)
		pg.bitmap = fullMask(uint32(pg.chunks))
		pg.insertHead(lst)
	}

	bit := bits.TrailingZeros32(pg.bitmap)
	pg.bitmap &^= uint32(1) << uint(bit)

	start := uintptr(bit) * uintptr(chunkSize)
	result := pg.data[start : start+uintptr(size)]

	if pg.bitmap == 0 {
		pg.detach()
	}

	return result
}

// freeChunked returns a chunk to its page, reassembling the page into
// free_pages (and possibly releasing the whole cluster) once every
// chunk in it is free. It returns one of the msg* diagnostic strings on
// a protocol violation, or "" on success (spec.md §6).
func (p *Pool) freeChunked(blk *block, addr uintptr) string {
	pageSize := uintptr(p.cfg.PageSize)
	pageIdx := (addr - blk.start) / pageSize
	if int(pageIdx) >= len(blk.pages) {
		return msgOutOfPool
	}
	pg := &blk.pages[pageIdx]

	switch pg.sizeCode {
	case pageCodeFree:
		return msgAlreadyFreePage
	case pageCodeBump:
		return msgNonFreeablePage
	}

	idx := int(pg.sizeCode) - 1
	chunkSize := p.cfg.MinChunkSize << uint(idx)
	offset := addr - pg.baseAddr
	if offset%uintptr(chunkSize) != 0 {
		return msgWrongChunk
	}

	chunkIdx := uint32(offset / uintptr(chunkSize))
	if chunkIdx >= uint32(pg.chunks) {
		return msgInvalidChunkPtr
	}

	bit := uint32(1) << chunkIdx
	if pg.bitmap&bit != 0 {
		return msgAlreadyFreeChunk
	}

	wasFull := pg.bitmap == 0
	pg.bitmap |= bit
	start := uintptr(chunkIdx) * uintptr(chunkSize)
	region := pg.data[start : start+uintptr(chunkSize)]

	if pg.bitmap == fullMask(uint32(pg.chunks)) {
		pg.sizeCode = pageCodeFree
		pg.detach()
		fillJunk(pg.data)
		p.returnFreePage(pg)
		p.maybeReleaseCluster(pg)
		return ""
	}

	fillJunk(region)
	if wasFull {
		pg.insertHead(p.chunkLists[idx])
	}
	return ""
}
