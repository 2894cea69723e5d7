// Package instrumented builds mempool.Allocator values that wrap real
// backing memory with observation hooks, the same way this module's
// teacher wraps a real storage backend behind a small adapter (see
// server/innodb/basic.SpaceManager in the retrieval pack) rather than
// hooking the Go runtime's own allocator.
package instrumented

import (
	"github.com/pkg/errors"

	"github.com/nxt-io/go-mempool/mempool"
)

// Counting returns an Allocator that counts live allocations: every
// successful Alloc increments the counter, every Release decrements it.
// Tests use it to assert that a pool releases every cluster and large
// block it ever allocated (spec.md §8's destroy-totality property).
func Counting() (mempool.Allocator, *int) {
	live := new(int)
	return mempool.Allocator{
		Alloc: func(n int) ([]byte, error) {
			*live++
			return make([]byte, n), nil
		},
		Release: func(int) {
			*live--
		},
	}, live
}

// CallCounter returns an Allocator whose Alloc calls are counted
// monotonically, never decremented on Release. Tests use it to assert
// that a pool does not allocate a fresh cluster when an existing one
// still has room (spec.md §8's reuse-invariant scenario).
func CallCounter() (mempool.Allocator, *int) {
	calls := new(int)
	return mempool.Allocator{
		Alloc: func(n int) ([]byte, error) {
			*calls++
			return make([]byte, n), nil
		},
	}, calls
}

// FailAfter returns an Allocator whose Alloc succeeds n times and then
// fails forever after, for exercising the pool's allocation-failure
// paths (Alloc/Get/etc. returning nil) without needing to actually
// exhaust memory.
func FailAfter(n int) mempool.Allocator {
	remaining := n
	return mempool.Allocator{
		Alloc: func(size int) ([]byte, error) {
			if remaining <= 0 {
				return nil, errors.New("instrumented allocator: budget exhausted")
			}
			remaining--
			return make([]byte, size), nil
		},
	}
}
