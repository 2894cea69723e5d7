package mempool

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
)

// WordSize is the pointer-sized alignment unit used to round up embedded
// large-allocation sizes, mirroring sizeof(uintptr_t) in the original.
const WordSize = uint32(unsafe.Sizeof(uintptr(0)))

// MaxAlignment is the minimum alignment of pages, Get blocks and large
// allocations, regardless of a lower PageAlignment requested at Config
// time; Nget blocks and chunks smaller than it are not held to it
// (NXT_MAX_ALIGNMENT in
// the original: the strictest alignment a general-purpose allocator is
// expected to hand out, two machine words on a 64-bit target).
const MaxAlignment = 2 * WordSize

// maxRequestSize rejects allocations at or above this size: the original
// packs block.size into a 32-bit field and refuses to even try at or
// above 2^32-1.
const maxRequestSize = 0xFFFFFFFF

// Allocator is the pluggable backing-memory source the pool draws
// clusters and large allocations from. The zero value uses make([]byte,
// n). Tests substitute a counting or failing Allocator to exercise the
// cluster-release and allocation-failure properties without hooking the
// Go runtime's own allocator.
type Allocator struct {
	// Alloc returns n freshly allocated, zeroed bytes. nil defaults to
	// make([]byte, n).
	Alloc func(n int) ([]byte, error)
	// Release is called with the size of a cluster or large allocation
	// the pool has just dropped its last reference to. It is a hook for
	// instrumentation; the pool does not require it to do anything.
	Release func(n int)
}

// Config holds the tunable sizes of a Pool, the Go realization of the
// four arguments to nxt_mp_create/nxt_mp_test_sizes in spec.md.
type Config struct {
	ClusterSize   uint32
	PageAlignment uint32
	PageSize      uint32
	MinChunkSize  uint32
	Allocator     Allocator
}

// ErrInvalidConfig is the sentinel every TestSizes failure wraps, so
// callers can classify the failure with errors.Is or IsInvalidConfig
// instead of matching on the message text.
var ErrInvalidConfig = errors.New("invalid pool configuration")

// ConfigError describes the specific reason a Config failed TestSizes.
// It unwraps to ErrInvalidConfig.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidConfig reports whether err was returned because a Config
// failed TestSizes, as opposed to some other error. Every error New
// returns is of this kind.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

func effectiveAlignment(pageAlignment uint32) uint32 {
	if pageAlignment < MaxAlignment {
		return MaxAlignment
	}
	return pageAlignment
}

// TestSizes validates a Config the way nxt_mp_test_sizes does, returning a
// descriptive error instead of a bare boolean. New always calls it first
// and returns its error for a failing Config, so calling it directly
// matters only to callers who want to report a reason before attempting
// construction.
func TestSizes(cfg Config) error {
	if !isPowerOfTwo(cfg.PageAlignment) || !isPowerOfTwo(cfg.PageSize) || !isPowerOfTwo(cfg.MinChunkSize) {
		return configErrorf("page_alignment, page_size and min_chunk_size must all be powers of two")
	}

	align := effectiveAlignment(cfg.PageAlignment)

	switch {
	case cfg.PageSize < 64:
		return configErrorf("page_size %d must be at least 64", cfg.PageSize)
	case cfg.PageSize < align:
		return configErrorf("page_size %d must be at least page_alignment %d", cfg.PageSize, align)
	case cfg.PageSize < cfg.MinChunkSize:
		return configErrorf("page_size %d must be at least min_chunk_size %d", cfg.PageSize, cfg.MinChunkSize)
	case cfg.MinChunkSize*32 < cfg.PageSize:
		return configErrorf("min_chunk_size %d * 32 must be at least page_size %d", cfg.MinChunkSize, cfg.PageSize)
	case cfg.ClusterSize < cfg.PageSize:
		return configErrorf("cluster_size %d must be at least page_size %d", cfg.ClusterSize, cfg.PageSize)
	case cfg.ClusterSize/cfg.PageSize > 256:
		return configErrorf("cluster_size %d must be at most 256 pages", cfg.ClusterSize)
	case cfg.ClusterSize%cfg.PageSize != 0:
		return configErrorf("cluster_size %d must be a multiple of page_size %d", cfg.ClusterSize, cfg.PageSize)
	}

	return nil
}
