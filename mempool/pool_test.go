package mempool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxt-io/go-mempool/internal/checksum"
	"github.com/nxt-io/go-mempool/internal/instrumented"
	"github.com/nxt-io/go-mempool/mempool"
)

func testConfig() mempool.Config {
	return mempool.Config{
		ClusterSize:   4096,
		PageAlignment: 128,
		PageSize:      512,
		MinChunkSize:  32,
	}
}

func TestTestSizesRejectsNonPowerOfTwo(t *testing.T) {
	cfg := testConfig()
	cfg.PageSize = 500
	err := mempool.TestSizes(cfg)
	require.Error(t, err)
	assert.True(t, mempool.IsInvalidConfig(err))
}

func TestTestSizesRejectsClusterNotMultipleOfPage(t *testing.T) {
	cfg := testConfig()
	cfg.ClusterSize = 4100
	err := mempool.TestSizes(cfg)
	require.Error(t, err)
	assert.True(t, mempool.IsInvalidConfig(err))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MinChunkSize = 1
	_, err := mempool.New(cfg)
	require.Error(t, err)
	assert.True(t, mempool.IsInvalidConfig(err))
	assert.ErrorIs(t, err, mempool.ErrInvalidConfig)
}

func TestAllocReturnsDisjointZeroedRegions(t *testing.T) {
	p, err := mempool.New(testConfig())
	require.NoError(t, err)

	a := p.Zalloc(48)
	b := p.Zalloc(48)
	require.NotNil(t, a)
	require.NotNil(t, b)

	for _, x := range a {
		assert.Equal(t, byte(0), x)
	}

	a[0] = 0xFF
	assert.Equal(t, byte(0), b[0], "writing into a must not observe through b")
}

func TestAlignReturnsAlignedBlock(t *testing.T) {
	p, err := mempool.New(testConfig())
	require.NoError(t, err)

	b := p.Align(64, 16)
	require.NotNil(t, b)
	assert.Zero(t, mempool.DebugAddr(b)%64, "Align(64, ...) must return an address that is a multiple of 64")
}

func TestFreeRoundTripLeavesFreeJunk(t *testing.T) {
	p, err := mempool.New(testConfig())
	require.NoError(t, err)

	b := p.Alloc(32)
	require.NotNil(t, b)
	for i := range b {
		b[i] = byte(i)
	}

	p.Free(b)
	assert.True(t, checksum.IsFreeJunk(b), "freed region must read back as 0x5A fill")
}

func TestChunkedReuseAfterFree(t *testing.T) {
	p, err := mempool.New(testConfig())
	require.NoError(t, err)

	// Keep one chunk alive so the page (and its cluster) stays resident
	// while we exercise reuse of a freed chunk slot within it.
	keep := p.Alloc(32)
	require.NotNil(t, keep)

	first := p.Alloc(32)
	require.NotNil(t, first)
	p.Free(first)

	second := p.Alloc(32)
	require.NotNil(t, second)
	assert.Equal(t, mempool.DebugAddr(first), mempool.DebugAddr(second), "a freed chunk should be reused by the next same-class allocation")

	p.Free(keep)
	p.Free(second)
}

func TestGetBlockIsNotFreeable(t *testing.T) {
	p, err := mempool.New(testConfig())
	require.NoError(t, err)

	b := p.Get(16)
	require.NotNil(t, b)

	// Freeing a non-freeable block is a protocol violation; it must not
	// panic or corrupt the pool, only be logged.
	assert.NotPanics(t, func() { p.Free(b) })
}

func TestFreeOutOfPoolPointerDoesNotPanic(t *testing.T) {
	p, err := mempool.New(testConfig())
	require.NoError(t, err)

	stray := make([]byte, 16)
	assert.NotPanics(t, func() { p.Free(stray) })
}

func TestFreeInteriorPointerDoesNotPanic(t *testing.T) {
	p, err := mempool.New(testConfig())
	require.NoError(t, err)

	b := p.Alloc(64)
	require.NotNil(t, b)
	assert.NotPanics(t, func() { p.Free(b[4:]) })
}

func TestLargeAllocationBypassesClusters(t *testing.T) {
	p, err := mempool.New(testConfig())
	require.NoError(t, err)

	big := p.Alloc(8192)
	require.NotNil(t, big)
	assert.Len(t, big, 8192)

	p.Free(big)
	assert.True(t, p.IsEmpty())
}

func TestIsEmptyAfterFreeReleasesCluster(t *testing.T) {
	p, err := mempool.New(testConfig())
	require.NoError(t, err)

	b := p.Alloc(32)
	require.NotNil(t, b)
	assert.False(t, p.IsEmpty())

	p.Free(b)
	// The cluster is released once every page in it frees, so the pool
	// returns to empty.
	assert.True(t, p.IsEmpty())
}

func TestDestroyReleasesEveryBlock(t *testing.T) {
	alloc, live := instrumented.Counting()
	cfg := testConfig()
	cfg.Allocator = alloc

	p, err := mempool.New(cfg)
	require.NoError(t, err)

	p.Alloc(32)
	p.Alloc(16)
	p.Alloc(8192)

	p.Destroy()
	assert.Equal(t, 0, *live, "every cluster and large block must be released by Destroy")
}

func TestRetainThenReleaseFreesBlock(t *testing.T) {
	alloc, live := instrumented.Counting()
	cfg := testConfig()
	cfg.Allocator = alloc

	p, err := mempool.New(cfg)
	require.NoError(t, err)

	b := p.Retain(16)
	require.NotNil(t, b)

	p.Release(b)
	assert.Equal(t, 0, *live)
}

func TestAllocFailureReturnsNil(t *testing.T) {
	cfg := testConfig()
	cfg.Allocator = instrumented.FailAfter(0)

	p, err := mempool.New(cfg)
	require.NoError(t, err)

	assert.Nil(t, p.Alloc(32))
}

// TestClusterReleaseOnFullFillThenReverseFree is spec.md §8's scenario 6:
// fill a cluster completely, then free every chunk in reverse order,
// asserting (via the instrumented allocator) that the cluster stays
// resident until the very last chunk is freed, and is released exactly
// then.
func TestClusterReleaseOnFullFillThenReverseFree(t *testing.T) {
	alloc, live := instrumented.Counting()
	cfg := mempool.Config{
		ClusterSize:   128,
		PageAlignment: 16,
		PageSize:      128,
		MinChunkSize:  16,
		Allocator:     alloc,
	}

	p, err := mempool.New(cfg)
	require.NoError(t, err)

	var blocks [][]byte
	for i := 0; i < 8; i++ {
		b := p.Alloc(16)
		require.NotNil(t, b)
		blocks = append(blocks, b)
	}
	assert.Equal(t, 1, *live, "filling one page should take exactly one cluster")

	for i := len(blocks) - 1; i >= 0; i-- {
		p.Free(blocks[i])
		if i > 0 {
			assert.Equal(t, 1, *live, "cluster must stay resident while any chunk in it is still live")
		}
	}

	assert.Equal(t, 0, *live, "cluster must be released once every chunk in it is free")
}

// TestReuseInvariantSamePageNoNewCluster is spec.md §8's reuse-invariant
// scenario: alloc 16 bytes x8 with min_chunk_size=16, page_size=128, free
// them all, then realloc 8 more of the same size. A live block in
// another page of the same cluster keeps the cluster resident across the
// free, so the realloc must land back on the same page instead of
// pulling in a new cluster.
func TestReuseInvariantSamePageNoNewCluster(t *testing.T) {
	alloc, calls := instrumented.CallCounter()
	cfg := mempool.Config{
		ClusterSize:   256,
		PageAlignment: 16,
		PageSize:      128,
		MinChunkSize:  16,
		Allocator:     alloc,
	}

	p, err := mempool.New(cfg)
	require.NoError(t, err)

	// Anchors the cluster's first page so the second page's full free,
	// below, does not take the whole cluster down with it.
	anchor := p.Alloc(64)
	require.NotNil(t, anchor)

	var blocks [][]byte
	for i := 0; i < 8; i++ {
		b := p.Alloc(16)
		require.NotNil(t, b)
		blocks = append(blocks, b)
	}
	firstChunkAddr := mempool.DebugAddr(blocks[0])
	assert.Equal(t, 1, *calls, "the anchor and the 8 chunks must all fit in one cluster")

	for _, b := range blocks {
		p.Free(b)
	}

	var reallocated [][]byte
	for i := 0; i < 8; i++ {
		b := p.Alloc(16)
		require.NotNil(t, b)
		reallocated = append(reallocated, b)
	}

	assert.Equal(t, firstChunkAddr, mempool.DebugAddr(reallocated[0]),
		"the freed page should be reused for the refill instead of a new cluster's page")
	assert.Equal(t, 1, *calls, "no new cluster should be allocated while the existing one still has room")

	for _, b := range reallocated {
		p.Free(b)
	}
	p.Free(anchor)
}
