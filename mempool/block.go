package mempool

import "github.com/google/btree"

// blockKind tags what a registered block owns: a whole cluster sliced
// into pages, or a single out-of-pool large allocation laid out one of
// two ways (see blockDiscrete/blockEmbedded below and SPEC_FULL.md's
// pointer-model note on why both are ordinary Go heap values here).
type blockKind uint8

const (
	blockCluster blockKind = iota
	blockDiscrete
	blockEmbedded
)

// block is a Block Registry entry (spec.md §3, "Block"). For a cluster
// block, buf is the cluster's backing bytes and pages describes every
// page carved out of it. For a large block, buf is the payload itself.
type block struct {
	kind  blockKind
	start uintptr
	size  uint32
	buf   []byte
	pages []page
}

func blockLess(a, b *block) bool {
	return a.start < b.start
}

// registry is the Block Registry: an ordered tree of blocks keyed by
// start address, supporting O(log n) insert/delete and point-in-interval
// lookup (spec.md §4.1). It is backed by github.com/google/btree, the
// ordered-tree library this retrieval pack's other storage engines reach
// for; it is not a set-membership structure, so containment queries walk
// down from the closest key at or below the probe address.
type registry struct {
	tree *btree.BTreeG[*block]
}

func newRegistry() *registry {
	return &registry{tree: btree.NewG(32, blockLess)}
}

func (r *registry) insert(b *block) {
	r.tree.ReplaceOrInsert(b)
}

func (r *registry) delete(b *block) {
	r.tree.Delete(b)
}

func (r *registry) isEmpty() bool {
	return r.tree.Len() == 0
}

// find resolves addr to the block whose [start, start+size) interval
// contains it, or nil if addr is out of pool. This is point-in-interval
// containment, not key equality (spec.md §4.1): it also matches an
// interior pointer anywhere inside a live block.
func (r *registry) find(addr uintptr) *block {
	var candidate *block
	r.tree.DescendLessOrEqual(&block{start: addr}, func(b *block) bool {
		candidate = b
		return false
	})

	if candidate == nil || addr >= candidate.start+uintptr(candidate.size) {
		return nil
	}

	return candidate
}

// drain empties the registry and returns every block it held, in the
// order needed to release them exactly once (spec.md §4.1
// destroy_walk). Go's garbage collector removes the original's need to
// precompute the next node before freeing the current one: collecting
// into a slice first is sufficient and safe.
func (r *registry) drain() []*block {
	out := make([]*block, 0, r.tree.Len())
	r.tree.Ascend(func(b *block) bool {
		out = append(out, b)
		return true
	})
	r.tree.Clear(false)
	return out
}
