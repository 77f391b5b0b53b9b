package emitter

import "testing"

func TestCodeBufferOverflowIsNoOp(t *testing.T) {
	// Property 6 (spec.md §8): after overflow, bytes_written() is unchanged
	// and the overflow flag is true.
	backing := make([]byte, 4)
	b := NewCodeBuffer(backing)
	b.EmitMovImm64(RAX, 0x1122334455667788) // 10 bytes, capacity is 4
	if !b.Overflowed() {
		t.Fatalf("expected overflow flag set")
	}
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (no partial write)", b.Len())
	}
	// Further calls remain no-ops.
	b.EmitRet()
	if b.Len() != 0 || !b.Overflowed() {
		t.Fatalf("buffer should stay inert after overflow")
	}
}

func TestCodeBufferMonotonic(t *testing.T) {
	backing := make([]byte, 64)
	b := NewCodeBuffer(backing)
	b.EmitMovRegReg(true, RAX, RCX)
	afterFirst := b.Len()
	if afterFirst == 0 {
		t.Fatalf("expected some bytes written")
	}
	b.EmitRet()
	if b.Len() <= afterFirst {
		t.Fatalf("Len() did not grow monotonically: %d -> %d", afterFirst, b.Len())
	}
}

func TestEmitMovImm64RoundTrips(t *testing.T) {
	backing := make([]byte, 16)
	b := NewCodeBuffer(backing)
	b.EmitMovImm64(RAX, 0x0102030405060708)
	got := b.Bytes()
	// REX.W(0x48) + B8 + imm64 little-endian = 10 bytes.
	want := []byte{0x48, 0xB8, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, got[i], want[i])
		}
	}
}

func TestEmitJccPatch(t *testing.T) {
	backing := make([]byte, 16)
	b := NewCodeBuffer(backing)
	patchAt := b.EmitJcc(CondE)
	b.PatchS32(patchAt, 0x7F)
	got := b.Bytes()
	if got[0] != 0x0F || got[1] != 0x80+byte(CondE) {
		t.Fatalf("unexpected Jcc opcode bytes: % X", got[:2])
	}
	if got[2] != 0x7F || got[3] != 0 || got[4] != 0 || got[5] != 0 {
		t.Fatalf("patched displacement incorrect: % X", got[2:6])
	}
}

func TestCodeBufferResetClearsOverflow(t *testing.T) {
	backing := make([]byte, 2)
	b := NewCodeBuffer(backing)
	b.EmitRet()
	b.EmitRet()
	b.EmitRet()
	if !b.Overflowed() {
		t.Fatalf("expected overflow")
	}
	b.Reset(make([]byte, 16))
	if b.Overflowed() || b.Len() != 0 {
		t.Fatalf("Reset did not clear overflow/length")
	}
	b.EmitRet()
	if b.Overflowed() {
		t.Fatalf("fresh buffer should not overflow on a single byte")
	}
}
