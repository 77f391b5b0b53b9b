package tcache

import "testing"

func TestHashDeterminism(t *testing.T) {
	// Property 1 (spec.md §8).
	if hashFingerprint(0x4000) != hashFingerprint(0x4000) {
		t.Fatalf("hash is not deterministic")
	}
}

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := New(100); err != ErrInvalidSize {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestInsertLookupRoundTrip(t *testing.T) {
	// Property 2.
	c, err := New(64)
	if err != nil {
		t.Fatal(err)
	}
	c.Insert(0x4000, 0xDEAD0000, 64, 3, 12)
	b, ok := c.Lookup(0x4000)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if b.HostEntry != 0xDEAD0000 {
		t.Fatalf("HostEntry = %#x, want 0xDEAD0000", b.HostEntry)
	}
}

func TestFlushClearsAll(t *testing.T) {
	// Property 3.
	c, _ := New(64)
	for pc := uint64(0x4000); pc < 0x4000+64*4; pc += 4 {
		c.Insert(pc, uintptr(pc), 4, 1, 4)
	}
	c.Flush()
	for pc := uint64(0x4000); pc < 0x4000+64*4; pc += 4 {
		if _, ok := c.Lookup(pc); ok {
			t.Fatalf("lookup(%#x) hit after flush", pc)
		}
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d after flush, want 0", c.Size())
	}
}

func TestInvalidateIsLocal(t *testing.T) {
	// Property 4: invalidate(pc) affects at most one slot.
	c, _ := New(4096)
	c.Insert(0x4000, 1, 4, 1, 4)
	c.Insert(0x5000, 2, 4, 1, 4)
	c.Invalidate(0x4000)
	if _, ok := c.Lookup(0x4000); ok {
		t.Fatalf("0x4000 should be invalidated")
	}
	b, ok := c.Lookup(0x5000)
	if !ok || b.HostEntry != 2 {
		t.Fatalf("0x5000 should be unaffected by invalidating 0x4000")
	}
}

func TestInsertIncrementsTranslatedCounter(t *testing.T) {
	c, _ := New(64)
	c.Insert(0x4000, 1, 4, 1, 4)
	c.Insert(0x4000, 2, 4, 1, 4) // overwrite same slot
	if c.Stats().BlocksTranslated != 2 {
		t.Fatalf("BlocksTranslated = %d, want 2", c.Stats().BlocksTranslated)
	}
}

func TestLookupUpdatesHitMissCounters(t *testing.T) {
	c, _ := New(64)
	c.Insert(0x4000, 1, 4, 1, 4)
	c.Lookup(0x4000)
	c.Lookup(0x8000)
	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit 1 miss", stats)
	}
}

func TestChainingLinkAndUnlink(t *testing.T) {
	c, _ := New(64)
	b1 := c.Insert(0x4000, 1, 4, 1, 4)
	b2 := c.Insert(0x5000, 2, 4, 1, 4)
	c.Link(b1, b2)
	if !b1.Linked() {
		t.Fatalf("b1 should be linked after Link")
	}
	succ, ok := c.Successor(b1)
	if !ok || succ != b2 {
		t.Fatalf("expected b1's successor to be b2")
	}
	if b2.predecessor != b1.self {
		t.Fatalf("b2's predecessor should be b1")
	}

	// Invalidating b1 must unlink both sides (spec.md §4.6).
	c.Invalidate(0x4000)
	if b2.predecessor != noLink {
		t.Fatalf("b2's predecessor should be cleared after b1 is invalidated")
	}
}

func TestChainIsSimpleNotGraph(t *testing.T) {
	// "a descriptor has at most one successor and one predecessor at a time"
	c, _ := New(64)
	b1 := c.Insert(0x4000, 1, 4, 1, 4)
	b2 := c.Insert(0x5000, 2, 4, 1, 4)
	b3 := c.Insert(0x6000, 3, 4, 1, 4)
	c.Link(b1, b2)
	c.Link(b1, b3) // re-linking b1 must sever the old b1->b2 edge
	if b2.Linked() || b2.predecessor != noLink {
		t.Fatalf("b2 should no longer be linked once b1 re-links to b3")
	}
	succ, ok := c.Successor(b1)
	if !ok || succ != b3 {
		t.Fatalf("b1's successor should now be b3")
	}
}
