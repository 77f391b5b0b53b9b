// Package codecache implements the bump-allocated executable memory region
// of spec.md §4.8. Each block is allocated on its own page-aligned range, so
// committing a block's pages to read+execute never strips write permission
// from a neighboring, still-in-progress allocation (the segregation strategy
// spec.md §4.8 offers as an alternative to tracking partial pages).
package codecache

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultSize is the reference code-cache size from spec.md §6 (jit_init).
const DefaultSize = 16 * 1024 * 1024

// ErrOutOfMemory is returned when an allocation would exceed the cache's
// capacity, or when the initial OS mapping fails (spec.md §6 OutOfMemory).
var ErrOutOfMemory = fmt.Errorf("codecache: out of memory")

const pageSize = 4096

// CodeCache is the contiguous OS-backed region described in spec.md §4.8:
// base pointer, total byte length, current write offset, bump allocation
// policy, no per-block reclamation.
type CodeCache struct {
	mem    []byte // mmap'd region
	offset int
}

// New maps a fresh code cache of the given size (0 means DefaultSize) with
// read/write permission. Pages start writable; Commit flips a block's pages
// to read/execute once its bytes are written.
func New(size int) (*CodeCache, error) {
	if size == 0 {
		size = DefaultSize
	}
	if size <= 0 {
		return nil, ErrOutOfMemory
	}
	size = roundUp(size, pageSize)
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	return &CodeCache{mem: mem}, nil
}

// Close unmaps the region. Safe to call once; the core calls this from
// jit_cleanup on every exit path.
func (c *CodeCache) Close() error {
	if c.mem == nil {
		return nil
	}
	err := unix.Munmap(c.mem)
	c.mem = nil
	return err
}

// Capacity returns the total mapped size in bytes.
func (c *CodeCache) Capacity() int { return len(c.mem) }

// Offset returns the current bump-allocation write offset.
func (c *CodeCache) Offset() int { return c.offset }

// Base returns the start of the mapped region as a uintptr, for computing
// host entry addresses from allocation offsets.
func (c *CodeCache) Base() uintptr {
	if len(c.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&c.mem[0]))
}

// Alloc reserves n bytes at the current offset, bumping offset by n and
// returning the byte slice to write into. Fails if the allocation would
// overrun capacity (spec.md §4.8 "fails if offset + n > capacity").
func (c *CodeCache) Alloc(n int) ([]byte, int, error) {
	if c.offset+n > len(c.mem) {
		return nil, 0, ErrOutOfMemory
	}
	at := c.offset
	c.offset += n
	return c.mem[at : at+n], at, nil
}

// AllocAligned rounds the current offset up to align before allocating, per
// spec.md §4.8 "Aligned allocation first rounds offset up to the requested
// alignment."
func (c *CodeCache) AllocAligned(n, align int) ([]byte, int, error) {
	if align > 1 {
		c.offset = roundUp(c.offset, align)
	}
	return c.Alloc(n)
}

// AllocBlock reserves n bytes for one translated block's host code on its
// own page-aligned range: offset is rounded up to a page boundary first and
// the reservation is padded to a whole number of pages. This keeps each
// block's eventual Commit call from touching any page another allocation
// might still be writing into.
func (c *CodeCache) AllocBlock(n int) ([]byte, int, error) {
	buf, at, err := c.AllocAligned(roundUp(n, pageSize), pageSize)
	if err != nil {
		return nil, 0, err
	}
	return buf[:n], at, nil
}

// Commit re-marks the whole pages spanning [at, at+n) read+execute. Callers
// allocate with AllocBlock so this range never overlaps another allocation's
// pages.
func (c *CodeCache) Commit(at, n int) error {
	start := roundDown(at, pageSize)
	end := roundUp(at+n, pageSize)
	if end > len(c.mem) {
		end = len(c.mem)
	}
	if err := unix.Mprotect(c.mem[start:end], unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("codecache: mprotect RX: %w", err)
	}
	return nil
}

// Reset sets offset back to zero without releasing pages (spec.md §4.8).
// Callers must have flushed any translation-cache descriptors pointing into
// this region first; their host_entry pointers are stale afterward. The
// whole region is re-marked writable so Alloc/AllocBlock can be used again.
func (c *CodeCache) Reset() error {
	if len(c.mem) > 0 {
		if err := unix.Mprotect(c.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return fmt.Errorf("codecache: mprotect RW on reset: %w", err)
		}
	}
	c.offset = 0
	return nil
}

func roundUp(n, align int) int   { return (n + align - 1) &^ (align - 1) }
func roundDown(n, align int) int { return n &^ (align - 1) }
