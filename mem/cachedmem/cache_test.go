package cachedmem

import (
	"testing"

	"github.com/archsim/tomasim/mem"
)

func TestReadMissThenHit(t *testing.T) {
	backing := mem.NewDRAM(64)
	backing.Service(mem.NewStoreRequest("test", 0, 0, []byte{1, 2, 3, 4}))

	c := New(DefaultL1Config(), backing)

	resp := c.Service(mem.NewLoadRequest("test", 0, 0, 4))
	if resp.Failed() || string(resp.LoadBytes) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected first read: %+v", resp)
	}
	if c.Stats().Misses != 1 || c.Stats().Hits != 0 {
		t.Fatalf("expected a cold miss, got %+v", c.Stats())
	}

	resp = c.Service(mem.NewLoadRequest("test", 0, 0, 4))
	if resp.Failed() || string(resp.LoadBytes) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected second read: %+v", resp)
	}
	if c.Stats().Hits != 1 {
		t.Fatalf("expected the second read to hit, got %+v", c.Stats())
	}
}

func TestWriteAllocateThenReadBack(t *testing.T) {
	backing := mem.NewDRAM(64)
	c := New(DefaultL1Config(), backing)

	resp := c.Service(mem.NewStoreRequest("test", 0, 8, []byte{9, 9, 9, 9}))
	if resp.Failed() {
		t.Fatalf("write-allocate store failed: %s", resp.Err)
	}

	resp = c.Service(mem.NewLoadRequest("test", 0, 8, 4))
	if resp.Failed() || string(resp.LoadBytes) != string([]byte{9, 9, 9, 9}) {
		t.Fatalf("expected the stored bytes back, got %+v", resp)
	}
}

func TestDirtyEvictionWritesBackToBackingMemory(t *testing.T) {
	cfg := Config{Size: 32, Associativity: 1, BlockSize: 16, HitLatency: 1, MissLatency: 4}
	backing := mem.NewDRAM(64)
	c := New(cfg, backing)

	// Two sets; dirty a line in set 0, then force its eviction by
	// touching a different block that maps to the same set.
	c.Service(mem.NewStoreRequest("test", 0, 0, []byte{5, 5, 5, 5}))
	c.Service(mem.NewLoadRequest("test", 0, 32, 4)) // same set (32 % 32 == 0), different tag

	resp := backing.Service(mem.NewLoadRequest("test", 0, 0, 4))
	if resp.Failed() || string(resp.LoadBytes) != string([]byte{5, 5, 5, 5}) {
		t.Fatalf("dirty block should have been written back on eviction, got %+v", resp)
	}
}
