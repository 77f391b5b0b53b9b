package emitter

import "testing"

func TestFoldRedundantStoreLoadDifferentRegs(t *testing.T) {
	b := NewCodeBuffer(make([]byte, 64))
	b.EmitStoreBaseDisp(Size8, RAX, ThreadStateReg, 8) // store result
	b.EmitLoadBaseDisp(Size8, RCX, ThreadStateReg, 8)  // next instr's operand load
	b.EmitRet()

	folded := FoldRedundantStoreLoad(b.Bytes())

	want := NewCodeBuffer(make([]byte, 64))
	want.EmitStoreBaseDisp(Size8, RAX, ThreadStateReg, 8)
	want.EmitMovRegReg(true, RCX, RAX)
	want.EmitRet()

	if string(folded) != string(want.Bytes()) {
		t.Fatalf("folded = % x, want % x", folded, want.Bytes())
	}
}

func TestFoldRedundantStoreLoadSameReg(t *testing.T) {
	b := NewCodeBuffer(make([]byte, 64))
	b.EmitStoreBaseDisp(Size8, RAX, ThreadStateReg, 16)
	b.EmitLoadBaseDisp(Size8, RAX, ThreadStateReg, 16)
	b.EmitRet()

	folded := FoldRedundantStoreLoad(b.Bytes())

	want := NewCodeBuffer(make([]byte, 64))
	want.EmitStoreBaseDisp(Size8, RAX, ThreadStateReg, 16)
	want.EmitRet()

	if string(folded) != string(want.Bytes()) {
		t.Fatalf("folded = % x, want % x", folded, want.Bytes())
	}
}

func TestFoldRedundantStoreLoadDifferentOffsetsUntouched(t *testing.T) {
	b := NewCodeBuffer(make([]byte, 64))
	b.EmitStoreBaseDisp(Size8, RAX, ThreadStateReg, 8)
	b.EmitLoadBaseDisp(Size8, RCX, ThreadStateReg, 16) // different field: not a fold
	b.EmitRet()

	folded := FoldRedundantStoreLoad(b.Bytes())
	if string(folded) != string(b.Bytes()) {
		t.Fatalf("unrelated store/load pair should be untouched: got % x, want % x", folded, b.Bytes())
	}
}

func TestFoldRedundantStoreLoadNeverGrows(t *testing.T) {
	b := NewCodeBuffer(make([]byte, 256))
	for i := 0; i < 10; i++ {
		b.EmitMovImm64(RAX, uint64(i))
		b.EmitStoreBaseDisp(Size8, RAX, ThreadStateReg, int32(i*8))
		b.EmitLoadBaseDisp(Size8, RDX, ThreadStateReg, int32(i*8))
	}
	folded := FoldRedundantStoreLoad(b.Bytes())
	if len(folded) > b.Len() {
		t.Fatalf("folded length %d exceeds input length %d", len(folded), b.Len())
	}
}
