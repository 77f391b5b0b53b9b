package tcache

import "fmt"

// slot is one entry of the direct-mapped table (spec.md §3 "TranslationCache").
type slot struct {
	arenaIdx int // index into the arena, or noLink if the slot is empty
}

// Stats are the read-only counters spec.md §4.7 requires.
type Stats struct {
	Hits              uint64
	Misses            uint64
	BlocksTranslated  uint64
}

// Cache is the fixed-size direct-mapped TranslationCache of spec.md §3/§4.7.
// Size must be a power of two; ErrInvalidSize is returned otherwise.
type Cache struct {
	table []slot
	mask  uint64
	arena *arena
	stats Stats
}

// ErrInvalidSize is returned by New when size is not a power of two.
var ErrInvalidSize = fmt.Errorf("tcache: size must be a power of two")

// DefaultSize is the reference table size from spec.md §3.
const DefaultSize = 4096

// New allocates a translation cache with the given number of slots (0
// means DefaultSize).
func New(size int) (*Cache, error) {
	if size == 0 {
		size = DefaultSize
	}
	if size <= 0 || size&(size-1) != 0 {
		return nil, ErrInvalidSize
	}
	c := &Cache{
		table: make([]slot, size),
		mask:  uint64(size - 1),
		arena: newArena(),
	}
	for i := range c.table {
		c.table[i].arenaIdx = noLink
	}
	return c, nil
}

func (c *Cache) index(pc uint64) uint64 {
	return hashFingerprint(pc) & c.mask
}

// Lookup implements spec.md §4.7 "Lookup": index by hash, then confirm the
// fingerprint to reject false positives from index collisions.
func (c *Cache) Lookup(guestPC uint64) (*Block, bool) {
	idx := c.index(guestPC)
	s := &c.table[idx]
	if s.arenaIdx == noLink {
		c.stats.Misses++
		return nil, false
	}
	b := c.arena.get(s.arenaIdx)
	if b == nil || !b.Valid() || b.GuestFingerprint != guestPC {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return b, true
}

// Insert implements spec.md §4.7 "Insert": directly replace the occupant of
// the mapped slot. A collision evicts the prior entry — its host code stays
// live in the code cache (reclaimed only by a code-cache reset) but is no
// longer reachable via lookup, and any chain it participated in is
// unlinked first so the chain invariant (§4.6) holds.
func (c *Cache) Insert(guestPC uint64, hostEntry uintptr, hostByteLen int, guestInstrCount, guestByteLen int) *Block {
	idx := c.index(guestPC)
	s := &c.table[idx]
	if s.arenaIdx != noLink {
		c.arena.unlink(s.arenaIdx)
	} else {
		s.arenaIdx = c.arena.alloc()
	}
	b := c.arena.get(s.arenaIdx)
	self := b.self
	*b = Block{
		GuestFingerprint: guestPC,
		GuestInstrCount:  guestInstrCount,
		GuestByteLen:     guestByteLen,
		HostEntry:        hostEntry,
		HostByteLen:      hostByteLen,
		Flags:            FlagValid,
		successor:        noLink,
		predecessor:      noLink,
		self:             self,
	}
	c.stats.BlocksTranslated++
	return b
}

// Invalidate implements spec.md §4.7 "Invalidate": clears one slot by
// fingerprint, unlinking any chains that referenced it (property 4: affects
// at most one slot).
func (c *Cache) Invalidate(guestPC uint64) bool {
	idx := c.index(guestPC)
	s := &c.table[idx]
	if s.arenaIdx == noLink {
		return false
	}
	b := c.arena.get(s.arenaIdx)
	if b == nil || b.GuestFingerprint != guestPC || !b.Valid() {
		return false
	}
	c.arena.unlink(s.arenaIdx)
	b.Flags &^= FlagValid
	s.arenaIdx = noLink
	return true
}

// Flush implements spec.md §4.7 "Flush": clears every slot (property 3).
func (c *Cache) Flush() {
	for i := range c.table {
		if c.table[i].arenaIdx != noLink {
			c.arena.unlink(c.table[i].arenaIdx)
			if b := c.arena.get(c.table[i].arenaIdx); b != nil {
				b.Flags &^= FlagValid
			}
		}
		c.table[i].arenaIdx = noLink
	}
}

// Stats returns a snapshot of the cache's hit/miss/translation counters.
func (c *Cache) Stats() Stats { return c.stats }

// ResetStats zeroes the counters without touching cache contents (used by
// the JIT context's Reset, which flushes content and stats together).
func (c *Cache) ResetStats() { c.stats = Stats{} }

// Size returns the number of live (valid) entries, for tests and for the
// dispatch scenario S5 ("cache_get_size() == 0" after a flush).
func (c *Cache) Size() int {
	n := 0
	for _, s := range c.table {
		if s.arenaIdx == noLink {
			continue
		}
		if b := c.arena.get(s.arenaIdx); b != nil && b.Valid() {
			n++
		}
	}
	return n
}

// Link chains b1 -> b2 (spec.md §4.6). Both blocks must currently be live
// entries owned by this cache's arena.
func (c *Cache) Link(b1, b2 *Block) {
	if b1 == nil || b2 == nil {
		return
	}
	c.arena.link(b1.self, b2.self)
}

// Successor returns b's chained successor, if any.
func (c *Cache) Successor(b *Block) (*Block, bool) {
	if b == nil {
		return nil, false
	}
	return c.arena.successorOf(b.self)
}
