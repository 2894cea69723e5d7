// Package checksum wraps xxhash for the test-only task of verifying the
// free-junk invariant (a freed region must read back as all 0x5A) without
// a byte-by-byte comparison loop.
package checksum

import "github.com/OneOfOne/xxhash"

// HashCode hashes an arbitrary byte region.
func HashCode(data []byte) uint64 {
	h := xxhash.New64()
	h.Write(data)
	return h.Sum64()
}

// junkHashes caches the hash of an all-0x5A buffer per length so repeated
// assertions in a test loop don't re-hash a fresh reference buffer.
var junkHashes = map[int]uint64{}

// IsFreeJunk reports whether data is exactly len(data) bytes of 0x5A,
// compared by hash rather than by inspecting each byte.
func IsFreeJunk(data []byte) bool {
	n := len(data)
	want, ok := junkHashes[n]
	if !ok {
		ref := make([]byte, n)
		for i := range ref {
			ref[i] = 0x5A
		}
		want = HashCode(ref)
		junkHashes[n] = want
	}
	return HashCode(data) == want
}
