package decoder

import "testing"

func TestDecodeTotalOnAnyWord(t *testing.T) {
	// Property 8 (spec.md §8): the decoder never panics and always returns
	// either a classified instruction or an ErrUndefined, for every 32-bit
	// word. Sweep a spread of words instead of all 2^32 for speed.
	for i := 0; i < 1_000_000; i++ {
		word := uint32(i) * 2654435769
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Decode panicked on word 0x%08X: %v", word, r)
				}
			}()
			_, _ = Decode(word)
		}()
	}
}

func TestDecodeADD(t *testing.T) {
	// ADD X2, X0, X1 -> 0x8B010002
	inst, err := Decode(0x8B010002)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.Class != ClassAddSubShifted {
		t.Fatalf("class = %v, want ClassAddSubShifted", inst.Class)
	}
	if inst.Rd != 2 || inst.Rn != 0 || inst.Rm != 1 {
		t.Fatalf("operands = Rd=%d Rn=%d Rm=%d, want 2,0,1", inst.Rd, inst.Rn, inst.Rm)
	}
	if !inst.SF {
		t.Fatalf("expected 64-bit operand width")
	}
	if inst.Unsigned {
		t.Fatalf("ADD should not be flagged as subtract")
	}
}

func TestDecodeRET(t *testing.T) {
	inst, err := Decode(0xD65F03C0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.Class != ClassReturn {
		t.Fatalf("class = %v, want ClassReturn", inst.Class)
	}
	if inst.Rn != 30 {
		t.Fatalf("Rn = %d, want 30 (LR)", inst.Rn)
	}
}

func TestDecodeBEQ(t *testing.T) {
	// B.EQ with a +8 byte offset: cond field 0x0, imm19 = 2 (words).
	word := uint32(0x54000000) | (2 << 5) | 0x0
	inst, err := Decode(word)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.Class != ClassBranchConditional {
		t.Fatalf("class = %v, want ClassBranchConditional", inst.Class)
	}
	if inst.Cond != 0x0 {
		t.Fatalf("cond = %d, want 0 (EQ)", inst.Cond)
	}
	if inst.Imm != 8 {
		t.Fatalf("imm = %d, want 8", inst.Imm)
	}
}

func TestDecodeMOVZ(t *testing.T) {
	// MOVZ X2, #1 -> opc=2(MOVZ), sf=1, hw=0, imm16=1, rd=2
	word := uint32(1)<<31 | 0x2<<29 | 0x25<<23 | 0<<21 | 1<<5 | 2
	inst, err := Decode(word)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.Class != ClassMovWide {
		t.Fatalf("class = %v, want ClassMovWide", inst.Class)
	}
	if inst.Imm != 1 || inst.Rd != 2 || inst.ShiftAmt != 0 {
		t.Fatalf("imm=%d rd=%d shiftAmt=%d, want 1,2,0", inst.Imm, inst.Rd, inst.ShiftAmt)
	}
}

func TestDecodeUndefined(t *testing.T) {
	_, err := Decode(0xFFFFFFFF)
	if err == nil {
		t.Fatalf("expected ErrUndefined for an unclassifiable word")
	}
	var ue *ErrUndefined
	if _, ok := err.(*ErrUndefined); !ok {
		t.Fatalf("error = %T (%v), want *ErrUndefined", err, err)
	}
	_ = ue
}

func TestSignExtend(t *testing.T) {
	cases := []struct {
		value int64
		bits  int
		want  int64
	}{
		{0x3FFFF, 19, 0x3FFFF},   // positive, top bit clear
		{0x7FFFF, 19, -1},        // all ones -> -1
		{0x40000, 19, -0x40000},  // top bit set, rest clear
	}
	for _, c := range cases {
		got := signExtend(c.value, c.bits)
		if got != c.want {
			t.Errorf("signExtend(0x%X, %d) = %d, want %d", c.value, c.bits, got, c.want)
		}
	}
}

// encLoadRegOffset builds a "load register (register offset)" word with the
// given option field (LDR Xt, [Xn, Xm, <extend>]), size fixed at 64-bit and
// opc fixed to the unsigned-load encoding.
func encLoadRegOffset(option uint32) uint32 {
	word := uint32(0x38200800)
	word |= 3 << 30    // size = 64-bit
	word |= 1 << 22    // opc = load
	word |= 1 << 16    // Rm = X1
	word |= option << 13
	word |= 2 << 5 // Rn = X2
	word |= 3      // Rd = X3
	return word
}

func TestDecodeLoadRegisterOffsetExtend(t *testing.T) {
	cases := []struct {
		name   string
		option uint32
		want   ExtendKind
	}{
		{"UXTW", 0x2, ExtendUXTW},
		{"LSL", 0x3, ExtendLSL},
		{"SXTW", 0x6, ExtendSXTW},
		{"SXTX-as-LSL", 0x7, ExtendLSL},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			inst, err := Decode(encLoadRegOffset(c.option))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inst.Class != ClassLoadRegisterOffset {
				t.Fatalf("class = %v, want ClassLoadRegisterOffset", inst.Class)
			}
			if inst.Extend != c.want {
				t.Fatalf("option 0x%x -> Extend = %v, want %v", c.option, inst.Extend, c.want)
			}
		})
	}
}

// TestDecodeBranchVsConditionalBranchOrdering guards against the
// catch-all unconditional-branch case reclaiming the rest of the op1=101x
// branch/exception/system group: B.EQ, CBZ, TBZ, SVC, BRK, and MRS must
// each classify as their own class, not ClassBranchUnconditional.
func TestDecodeBranchVsConditionalBranchOrdering(t *testing.T) {
	beq := uint32(0x54000000) | (2 << 5) | 0x0
	cbz := uint32(0x34000000) | (1 << 5) // CBZ W0, +4
	tbz := uint32(0x36000000) | (1 << 5) // TBZ W0, #0, +4
	svc := uint32(0xD4000001)
	brk := uint32(0xD4200000)
	mrs := uint32(0xD5300000) | (0 << 5) // MRS X0, <sysreg 0>

	cases := []struct {
		name string
		word uint32
		want Class
	}{
		{"B.EQ", beq, ClassBranchConditional},
		{"CBZ", cbz, ClassCompareAndBranch},
		{"TBZ", tbz, ClassTestBitBranch},
		{"SVC", svc, ClassSupervisorCall},
		{"BRK", brk, ClassBreakpoint},
		{"MRS", mrs, ClassSystemRegisterRead},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			inst, err := Decode(c.word)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inst.Class != c.want {
				t.Fatalf("class = %v, want %v", inst.Class, c.want)
			}
		})
	}
}
