package mempool

import "testing"

func TestSatIncSaturatesAt255(t *testing.T) {
	n := uint8(254)
	n = satInc(n)
	if n != 255 {
		t.Fatalf("satInc(254) = %d, want 255", n)
	}
	n = satInc(n)
	if n != 255 {
		t.Fatalf("satInc(255) = %d, want 255 (must not wrap)", n)
	}
}

func TestAllocBumpPacksSequentially(t *testing.T) {
	p, err := New(Config{
		ClusterSize:   4096,
		PageAlignment: 16,
		PageSize:      512,
		MinChunkSize:  32,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first := p.allocBump(p.ngetPages, 32)
	second := p.allocBump(p.ngetPages, 32)
	if first == nil || second == nil {
		t.Fatalf("allocBump returned nil")
	}

	got := addrOf(second) - addrOf(first)
	if got != 32 {
		t.Fatalf("second block is %d bytes after first, want 32", got)
	}
}
