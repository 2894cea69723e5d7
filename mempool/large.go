package mempool

// allocLarge serves a request bigger than page_size (or an Align
// request whose alignment can't be satisfied inside a page) with its
// own backing allocation, registered directly in the Block Registry
// rather than carved out of a cluster (spec.md §4.5).
//
// size being a power of two selects the "discrete" classification over
// "embedded" purely as a tag: both always use an ordinary separate Go
// block descriptor, since the garbage collector cannot soundly place a
// pointer-containing descriptor inside unscanned raw bytes the way the
// original embeds one after the payload. See SPEC_FULL.md.
func (p *Pool) allocLarge(alignment, size uint32) []byte {
	if uint64(size) >= maxRequestSize {
		return nil
	}

	align := alignment
	if align < MaxAlignment {
		align = MaxAlignment
	}

	buf, err := p.allocBytes(size, align)
	if err != nil {
		return nil
	}

	kind := blockDiscrete
	if !isPowerOfTwo(size) {
		kind = blockEmbedded
	}

	blk := &block{
		kind:  kind,
		start: addrOf(buf),
		size:  size,
		buf:   buf,
	}

	p.registry.insert(blk)
	return buf
}

// freeLarge releases a large block. addr must equal blk.start: a large
// allocation has no sub-regions to free independently, so any other
// address inside it is an interior-pointer protocol violation.
func (p *Pool) freeLarge(blk *block, addr uintptr) string {
	if addr != blk.start {
		return msgMiddleOfBlock
	}

	p.registry.delete(blk)
	p.releaseBytes(len(blk.buf))
	return ""
}
