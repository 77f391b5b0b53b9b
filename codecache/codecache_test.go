package codecache

import "testing"

func TestAllocBumpsOffset(t *testing.T) {
	c, err := New(pageSize * 4)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	buf, at, err := c.Alloc(16)
	if err != nil {
		t.Fatal(err)
	}
	if at != 0 || len(buf) != 16 {
		t.Fatalf("at=%d len=%d, want 0/16", at, len(buf))
	}
	if c.Offset() != 16 {
		t.Fatalf("Offset() = %d, want 16", c.Offset())
	}
}

func TestAllocFailsPastCapacity(t *testing.T) {
	c, err := New(pageSize)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, _, err := c.Alloc(pageSize + 1); err != ErrOutOfMemory {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
}

func TestAllocBlockIsPageAligned(t *testing.T) {
	c, err := New(pageSize * 4)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, at1, err := c.AllocBlock(10)
	if err != nil {
		t.Fatal(err)
	}
	if at1%pageSize != 0 {
		t.Fatalf("first block not page-aligned: at=%d", at1)
	}
	_, at2, err := c.AllocBlock(10)
	if err != nil {
		t.Fatal(err)
	}
	if at2 != pageSize {
		t.Fatalf("second block = %d, want %d (its own page)", at2, pageSize)
	}
}

func TestCommitThenWriteNeighborDoesNotFault(t *testing.T) {
	// Regression: committing one block's pages to RX must not disturb a
	// neighboring block still being written into a different page.
	c, err := New(pageSize * 4)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	buf1, at1, err := c.AllocBlock(4)
	if err != nil {
		t.Fatal(err)
	}
	buf1[0] = 0xC3 // RET
	if err := c.Commit(at1, 4); err != nil {
		t.Fatal(err)
	}

	buf2, _, err := c.AllocBlock(4)
	if err != nil {
		t.Fatal(err)
	}
	buf2[0] = 0xC3 // must not fault: buf2 is on a different, still-RW page
}

func TestResetZeroesOffset(t *testing.T) {
	c, err := New(pageSize * 2)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, _, _ = c.AllocBlock(8)
	if err := c.Reset(); err != nil {
		t.Fatal(err)
	}
	if c.Offset() != 0 {
		t.Fatalf("Offset() = %d after Reset, want 0", c.Offset())
	}
	// Region must be writable again after Reset.
	buf, _, err := c.Alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	buf[0] = 0x90
}
