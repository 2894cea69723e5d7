// Package mempool implements a region-style memory pool allocator: a
// single object that owns a graph of backing allocations, hands out
// arbitrarily sized blocks on request, frees individual blocks, and
// releases everything in one sweep on destruction. See SPEC_FULL.md.
//
// A Pool is single-owner: no method is safe to call concurrently with
// another call on the same Pool from a different goroutine.
package mempool

import (
	"container/list"
	"math/bits"

	"github.com/nxt-io/go-mempool/logger"
)

// Pool is a region allocator. Zero value is not usable; construct one
// with New.
type Pool struct {
	cfg Config

	registry   *registry
	freePages  *list.List
	getPages   *list.List
	ngetPages  *list.List
	chunkLists []*list.List

	pageSizeShift  uint
	chunkSizeShift uint

	retain int
}

// New validates cfg with TestSizes and constructs an empty Pool.
func New(cfg Config) (*Pool, error) {
	if err := TestSizes(cfg); err != nil {
		return nil, err
	}

	cfg.PageAlignment = effectiveAlignment(cfg.PageAlignment)
	if cfg.Allocator.Alloc == nil {
		cfg.Allocator.Alloc = defaultAlloc
	}

	classes := numChunkClasses(cfg.PageSize, cfg.MinChunkSize)

	p := &Pool{
		cfg:            cfg,
		registry:       newRegistry(),
		freePages:      list.New(),
		getPages:       list.New(),
		ngetPages:      list.New(),
		chunkLists:     make([]*list.List, classes),
		pageSizeShift:  uint(bits.Len32(cfg.PageSize) - 1),
		chunkSizeShift: uint(bits.Len32(cfg.MinChunkSize) - 1),
		retain:         1,
	}

	for i := range p.chunkLists {
		p.chunkLists[i] = list.New()
	}

	return p, nil
}

func defaultAlloc(n int) ([]byte, error) {
	return make([]byte, n), nil
}

func (p *Pool) allocBytes(size, alignment uint32) ([]byte, error) {
	raw, err := p.cfg.Allocator.Alloc(int(size + alignment - 1))
	if err != nil {
		return nil, err
	}
	return alignSlice(raw, alignment)[:size], nil
}

func (p *Pool) releaseBytes(n int) {
	if p.cfg.Allocator.Release != nil {
		p.cfg.Allocator.Release(n)
	}
}

// Alloc returns a freeable block of size bytes, or nil on failure.
func (p *Pool) Alloc(size int) []byte {
	sz, ok := toSize(size)
	if !ok {
		return nil
	}

	if sz <= p.cfg.PageSize {
		return p.allocChunked(sz)
	}
	return p.allocLarge(MaxAlignment, sz)
}

// Zalloc is Alloc followed by zeroing.
func (p *Pool) Zalloc(size int) []byte {
	b := p.Alloc(size)
	if b != nil {
		clear(b)
	}
	return b
}

// Align returns a freeable block of size bytes aligned to alignment, or
// nil if alignment is not a power of two or allocation fails.
func (p *Pool) Align(alignment, size int) []byte {
	align, ok := toSize(alignment)
	if !ok || !isPowerOfTwo(align) {
		return nil
	}

	sz, ok := toSize(size)
	if !ok {
		return nil
	}

	if sz <= p.cfg.PageSize && align <= p.cfg.PageAlignment {
		if sz < align {
			sz = align
		}
		if sz <= p.cfg.PageSize {
			return p.allocChunked(sz)
		}
	}

	return p.allocLarge(align, sz)
}

// Zalign is Align followed by zeroing.
func (p *Pool) Zalign(alignment, size int) []byte {
	b := p.Align(alignment, size)
	if b != nil {
		clear(b)
	}
	return b
}

// Get returns a non-freeable block of size bytes aligned to at least
// MaxAlignment.
func (p *Pool) Get(size int) []byte {
	sz, ok := toSize(size)
	if !ok {
		return nil
	}

	if sz <= p.cfg.PageSize {
		reserve := (sz + MaxAlignment - 1) &^ (MaxAlignment - 1)
		if reserve < MaxAlignment {
			reserve = MaxAlignment
		}
		b := p.allocBump(p.getPages, reserve)
		if b == nil {
			return nil
		}
		return b[:sz]
	}
	return p.allocLarge(MaxAlignment, sz)
}

// Nget returns a non-freeable block of size bytes with no alignment
// guarantee beyond a single byte.
func (p *Pool) Nget(size int) []byte {
	sz, ok := toSize(size)
	if !ok {
		return nil
	}

	if sz <= p.cfg.PageSize {
		return p.allocBump(p.ngetPages, sz)
	}
	return p.allocLarge(MaxAlignment, sz)
}

// Zget is Get followed by zeroing.
func (p *Pool) Zget(size int) []byte {
	b := p.Get(size)
	if b != nil {
		clear(b)
	}
	return b
}

// Free returns b to the pool. b must be the exact slice returned by an
// earlier Alloc/Align/Get/Nget call on this Pool, or a sub-slice of it
// (to exercise the interior-pointer protocol violation). Misuse is
// logged at error severity and otherwise ignored: Free never panics and
// never corrupts the pool, per spec.md §7.
func (p *Pool) Free(b []byte) {
	if len(b) == 0 {
		return
	}

	addr := addrOf(b)
	blk := p.registry.find(addr)
	if blk == nil {
		logger.Errorf("%s: 0x%x", msgOutOfPool, addr)
		return
	}

	var msg string
	if blk.kind == blockCluster {
		msg = p.freeChunked(blk, addr)
	} else {
		msg = p.freeLarge(blk, addr)
	}

	if msg != "" {
		logger.Errorf("%s: 0x%x", msg, addr)
	}
}

// Retain is Alloc with an implicit extra reference on the pool: the
// caller must balance it with a Release of the returned block (or of
// any other block, spec.md §4.6) to bring retain back down.
func (p *Pool) Retain(size int) []byte {
	b := p.Alloc(size)
	if b != nil {
		p.retain++
	}
	return b
}

// Release frees b and drops one reference on the pool, destroying it
// once retain reaches zero.
func (p *Pool) Release(b []byte) {
	p.Free(b)
	p.retain--
	if p.retain == 0 {
		p.Destroy()
	}
}

// IsEmpty reports whether the pool holds no registered blocks and no
// free pages. A pool that holds only free pages (backed by a live,
// fully-idle cluster) is not empty — see SPEC_FULL.md's resolution of
// spec.md §9's open question.
func (p *Pool) IsEmpty() bool {
	return p.registry.isEmpty() && p.freePages.Len() == 0
}

// Destroy releases every block the pool still owns. It is idempotent:
// calling it again on an already-empty pool is a no-op.
func (p *Pool) Destroy() {
	for _, blk := range p.registry.drain() {
		p.releaseBytes(len(blk.buf))
	}

	p.freePages.Init()
	p.getPages.Init()
	p.ngetPages.Init()
	for _, l := range p.chunkLists {
		l.Init()
	}
}

// toSize converts a public int size to the internal uint32 width,
// rejecting anything that can't round-trip or that the large allocator
// would reject anyway (spec.md §4.5: sizes must stay below 2^32-1).
func toSize(n int) (uint32, bool) {
	if n < 0 || uint64(n) >= maxRequestSize {
		return 0, false
	}
	return uint32(n), true
}
