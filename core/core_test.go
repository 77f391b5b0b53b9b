package core

import (
	"testing"

	"github.com/riftjit/rift64/guestmem"
	"github.com/riftjit/rift64/state"
)

// encAddSubShifted builds the "add/subtract (shifted register)" encoding
// (ADD/SUB/ADDS/SUBS), matching decoder.decodeAddSubShifted's field layout.
func encAddSubShifted(sf, sub, setFlags bool, rd, rn, rm int) uint32 {
	word := uint32(0x0B000000)
	if sf {
		word |= 1 << 31
	}
	if sub {
		word |= 1 << 30
	}
	if setFlags {
		word |= 1 << 29
	}
	word |= uint32(rm&0x1F) << 16
	word |= uint32(rn&0x1F) << 5
	word |= uint32(rd & 0x1F)
	return word
}

// encMovZ builds a MOVZ Xd, #imm16 word (sf fixed 1, hw fixed 0), the same
// construction decoder_test.go's TestDecodeMOVZ uses.
func encMovZ(rd int, imm16 uint64) uint32 {
	return uint32(1)<<31 | 0x2<<29 | 0x25<<23 | uint32(imm16&0xFFFF)<<5 | uint32(rd&0x1F)
}

// encBEQ builds a B.EQ word branching pcOffset bytes (must be a multiple of
// 4) from its own address.
func encBEQ(pcOffset int64) uint32 {
	imm19 := uint32((pcOffset / 4) & 0x7FFFF)
	return 0x54000000 | imm19<<5 | 0x0
}

const encRET = uint32(0xD65F03C0)

func putWord(t *testing.T, mem *guestmem.Space, addr uint64, word uint32) {
	t.Helper()
	buf := []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
	if err := mem.LoadImage(addr, buf); err != nil {
		t.Fatalf("LoadImage at 0x%x: %v", addr, err)
	}
}

func newTestMem(t *testing.T) *guestmem.Space {
	t.Helper()
	mem, err := guestmem.NewDefault()
	if err != nil {
		t.Fatalf("guestmem.NewDefault: %v", err)
	}
	t.Cleanup(func() { mem.Close() })
	return mem
}

func newTestContext(t *testing.T) *JITContext {
	t.Helper()
	ctx, err := New(Options{})
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

// TestDispatchSingleBlockAddReturn mirrors an "ADD then RET" basic block:
// a single translation, a single dispatch call, a guest register written
// through ThreadState and a clean stop once the guest link register holds
// the reference stop sentinel.
func TestDispatchSingleBlockAddReturn(t *testing.T) {
	mem := newTestMem(t)
	pc := uint64(guestmem.CodeSegmentStart)
	putWord(t, mem, pc, encAddSubShifted(true, false, false, 0, 0, 1)) // ADD X0, X0, X1
	putWord(t, mem, pc+4, encRET)

	ctx := newTestContext(t)
	ts := &state.ThreadState{PC: pc}
	ts.General[0] = 5
	ts.General[1] = 7
	ts.General[30] = StopSentinel

	result, err := ctx.Dispatch(mem, ts, 0)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.Exited {
		t.Fatalf("expected Exited=true once the guest returned through the stop sentinel")
	}
	if ts.General[0] != 12 {
		t.Fatalf("X0 = %d, want 12", ts.General[0])
	}

	snap := ctx.Snapshot()
	if snap.BlocksTranslated != 1 {
		t.Fatalf("BlocksTranslated = %d, want 1", snap.BlocksTranslated)
	}
	if snap.BlocksExecuted != 1 {
		t.Fatalf("BlocksExecuted = %d, want 1", snap.BlocksExecuted)
	}
}

// TestDispatchConditionalBranchTaken builds a three-block chain: a SUBS
// that sets the guest Z flag, a B.EQ whose taken arm lands on a block
// distinct from its fall-through, and confirms the taken path ran.
func TestDispatchConditionalBranchTaken(t *testing.T) {
	mem := newTestMem(t)
	base := uint64(guestmem.CodeSegmentStart)

	putWord(t, mem, base+0, encAddSubShifted(true, true, true, 0, 0, 1)) // SUBS X0, X0, X1
	putWord(t, mem, base+4, encBEQ(12))                                  // B.EQ base+16
	putWord(t, mem, base+8, encMovZ(2, 1))                               // not-taken: X2 = 1
	putWord(t, mem, base+12, encRET)
	putWord(t, mem, base+16, encMovZ(2, 2)) // taken: X2 = 2
	putWord(t, mem, base+20, encRET)

	ctx := newTestContext(t)
	ts := &state.ThreadState{PC: base}
	ts.General[0] = 9
	ts.General[1] = 9 // equal operands -> SUBS sets Z
	ts.General[30] = StopSentinel

	result, err := ctx.Dispatch(mem, ts, 0)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.Exited {
		t.Fatalf("expected a clean exit")
	}
	if ts.General[2] != 2 {
		t.Fatalf("X2 = %d, want 2 (taken branch)", ts.General[2])
	}
	if !ts.PSTATE.Z {
		t.Fatalf("expected Z flag set after SUBS of equal operands")
	}
}

// TestTranslateBlockCacheHit confirms a second TranslateBlock call at an
// already-translated guest PC returns the same descriptor instead of
// retranslating (spec.md's translation-cache hit property).
func TestTranslateBlockCacheHit(t *testing.T) {
	mem := newTestMem(t)
	pc := uint64(guestmem.CodeSegmentStart)
	putWord(t, mem, pc, encAddSubShifted(true, false, false, 0, 0, 1))
	putWord(t, mem, pc+4, encRET)

	ctx := newTestContext(t)
	b1, err := ctx.TranslateBlock(mem, pc)
	if err != nil {
		t.Fatalf("TranslateBlock: %v", err)
	}
	b2, err := ctx.TranslateBlock(mem, pc)
	if err != nil {
		t.Fatalf("TranslateBlock (second): %v", err)
	}
	if b1 != b2 {
		t.Fatalf("expected the same *tcache.Block on a cache hit")
	}
	if snap := ctx.Snapshot(); snap.CacheBlocksTranslated != 1 {
		t.Fatalf("CacheBlocksTranslated = %d, want 1 (no retranslation)", snap.CacheBlocksTranslated)
	}
}

// TestInvalidateThenRetranslate confirms Invalidate evicts exactly the
// requested slot and a following TranslateBlock call translates again.
func TestInvalidateThenRetranslate(t *testing.T) {
	mem := newTestMem(t)
	pc := uint64(guestmem.CodeSegmentStart)
	putWord(t, mem, pc, encAddSubShifted(true, false, false, 0, 0, 1))
	putWord(t, mem, pc+4, encRET)

	ctx := newTestContext(t)
	if _, err := ctx.TranslateBlock(mem, pc); err != nil {
		t.Fatalf("TranslateBlock: %v", err)
	}
	if !ctx.Invalidate(pc) {
		t.Fatalf("Invalidate reported no entry present")
	}
	if _, ok := ctx.Lookup(pc); ok {
		t.Fatalf("Lookup succeeded after Invalidate")
	}
	if _, err := ctx.TranslateBlock(mem, pc); err != nil {
		t.Fatalf("TranslateBlock after invalidate: %v", err)
	}
	if snap := ctx.Snapshot(); snap.CacheBlocksTranslated != 2 {
		t.Fatalf("CacheBlocksTranslated = %d, want 2 (retranslated)", snap.CacheBlocksTranslated)
	}
}

// TestFlushAndReset confirms Flush empties the cache's live-entry count and
// Reset additionally zeroes the execution statistics.
func TestFlushAndReset(t *testing.T) {
	mem := newTestMem(t)
	pc := uint64(guestmem.CodeSegmentStart)
	putWord(t, mem, pc, encAddSubShifted(true, false, false, 0, 0, 1))
	putWord(t, mem, pc+4, encRET)

	ctx := newTestContext(t)
	if _, err := ctx.TranslateBlock(mem, pc); err != nil {
		t.Fatalf("TranslateBlock: %v", err)
	}
	ctx.Flush()
	if ctx.Cache.Size() != 0 {
		t.Fatalf("Cache.Size() = %d after Flush, want 0", ctx.Cache.Size())
	}

	if _, err := ctx.TranslateBlock(mem, pc); err != nil {
		t.Fatalf("TranslateBlock after flush: %v", err)
	}
	ctx.Stats.RecordTrap()
	if err := ctx.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ctx.Cache.Size() != 0 {
		t.Fatalf("Cache.Size() = %d after Reset, want 0", ctx.Cache.Size())
	}
	if snap := ctx.Snapshot(); snap.Traps != 0 {
		t.Fatalf("Traps = %d after Reset, want 0", snap.Traps)
	}
}

// TestDispatchGuestTrap confirms a guest BRK instruction surfaces as
// ErrGuestTrap with the trapping guest PC, rather than being treated as a
// real next-block address.
func TestDispatchGuestTrap(t *testing.T) {
	mem := newTestMem(t)
	pc := uint64(guestmem.CodeSegmentStart)
	const brk = uint32(0xD4200000) // BRK #0
	putWord(t, mem, pc, brk)

	ctx := newTestContext(t)
	ts := &state.ThreadState{PC: pc}

	_, err := ctx.Dispatch(mem, ts, 0)
	if err == nil {
		t.Fatalf("expected an error from a guest BRK")
	}
	trap, ok := err.(*ErrGuestTrap)
	if !ok {
		t.Fatalf("error = %T (%v), want *ErrGuestTrap", err, err)
	}
	if trap.Reason != state.ExitBreakpoint {
		t.Fatalf("trap.Reason = %v, want ExitBreakpoint", trap.Reason)
	}
	if trap.PC != pc {
		t.Fatalf("trap.PC = 0x%x, want 0x%x", trap.PC, pc)
	}
}

// TestDumpBlockRendersGuestInstructions is a smoke test that DumpBlock
// produces readable per-instruction lines for a just-translated block.
func TestDumpBlockRendersGuestInstructions(t *testing.T) {
	mem := newTestMem(t)
	pc := uint64(guestmem.CodeSegmentStart)
	putWord(t, mem, pc, encAddSubShifted(true, false, false, 0, 0, 1))
	putWord(t, mem, pc+4, encRET)

	ctx := newTestContext(t)
	block, err := ctx.TranslateBlock(mem, pc)
	if err != nil {
		t.Fatalf("TranslateBlock: %v", err)
	}
	out := DumpBlock(mem, block)
	if out == "" {
		t.Fatalf("DumpBlock returned an empty string")
	}
	if block.GuestInstrCount != 2 {
		t.Fatalf("GuestInstrCount = %d, want 2", block.GuestInstrCount)
	}
}
