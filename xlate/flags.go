package xlate

import "github.com/riftjit/rift64/emitter"

// Flags are materialized eagerly into ThreadState.PSTATE after every
// flag-setting instruction rather than left resident in host RFLAGS, since
// the dispatch loop's own bookkeeping between block calls is free to
// clobber host flags (spec.md §3 "the source code updates these eagerly in
// the emulated state on a per-instruction basis").

// materializeCompareFlags appends code storing N/Z/C/V from the host
// RFLAGS set by an immediately preceding CMP/SUB (subtractBased=true) or
// ADD (subtractBased=false), per spec.md §4.3's compare/test semantics:
//   - subtract-based: C = (lhs unsigned >= rhs), i.e. host NOT-CF (CondAE).
//   - add-based: C = unsigned carry out, i.e. host CF (CondB).
//
// N, Z, V map directly to host SF, ZF, OF in both cases since two's
// complement sign/zero/overflow arithmetic is identical between the guest
// and host subtraction/addition.
func materializeCompareFlags(b *emitter.CodeBuffer, subtractBased bool, scratch emitter.Reg) {
	storeFlagBit(b, scratch, emitter.CondS, offN)
	storeFlagBit(b, scratch, emitter.CondE, offZ)
	if subtractBased {
		storeFlagBit(b, scratch, emitter.CondAE, offC)
	} else {
		storeFlagBit(b, scratch, emitter.CondB, offC)
	}
	storeFlagBit(b, scratch, emitter.CondO, offV)
}

// materializeTestFlags appends code updating only N and Z from a preceding
// TEST/AND, leaving C and V at their previous values (spec.md §4.3 "test
// (bitwise AND): N, Z updated; C, V unchanged").
func materializeTestFlags(b *emitter.CodeBuffer, scratch emitter.Reg) {
	storeFlagBit(b, scratch, emitter.CondS, offN)
	storeFlagBit(b, scratch, emitter.CondE, offZ)
}

func storeFlagBit(b *emitter.CodeBuffer, scratch emitter.Reg, cond emitter.Cond, offset uintptr) {
	b.EmitSetcc(cond, scratch)
	b.EmitStoreBaseDisp(emitter.Size1, scratch, emitter.ThreadStateReg, int32(offset))
}

// EvalCond appends code evaluating the 4-bit ARM64 condition field against
// ThreadState.PSTATE and returns a host condition the caller can pass to
// EmitJcc/EmitSetcc: CondNE means "the guest condition held",
// CondE means "it did not" (spec.md §4.3 "Conditional select", §4.5
// "Conditional branch"). acc/tmp are two scratch host registers distinct
// from each other and from ThreadStateReg/ScratchReg.
func EvalCond(b *emitter.CodeBuffer, cond int, acc, tmp emitter.Reg) emitter.Cond {
	loadFlag := func(dst emitter.Reg, offset uintptr) {
		b.EmitLoadBaseDisp(emitter.Size1, dst, emitter.ThreadStateReg, int32(offset))
	}

	switch cond >> 1 {
	case 0x0: // EQ/NE
		loadFlag(acc, offZ)
	case 0x1: // CS/CC
		loadFlag(acc, offC)
	case 0x2: // MI/PL
		loadFlag(acc, offN)
	case 0x3: // VS/VC
		loadFlag(acc, offV)
	case 0x4: // HI/LS: C==1 && Z==0
		loadFlag(acc, offC)
		loadFlag(tmp, offZ)
		b.EmitAluRegImm32(emitter.OpXor, false, tmp, 1) // tmp = !Z
		b.EmitAluRegReg(emitter.OpAnd, false, acc, tmp)
	case 0x5: // GE/LT: N==V
		loadFlag(acc, offN)
		loadFlag(tmp, offV)
		b.EmitAluRegReg(emitter.OpXor, false, acc, tmp)
		b.EmitAluRegImm32(emitter.OpXor, false, acc, 1) // acc = (N==V)
	case 0x6: // GT/LE: Z==0 && N==V
		loadFlag(acc, offZ)
		b.EmitAluRegImm32(emitter.OpXor, false, acc, 1) // acc = !Z
		loadFlag(tmp, offN)
		b.EmitLoadBaseDisp(emitter.Size1, emitter.ScratchReg, emitter.ThreadStateReg, int32(offV))
		b.EmitAluRegReg(emitter.OpXor, false, tmp, emitter.ScratchReg) // tmp = N^V
		b.EmitAluRegImm32(emitter.OpXor, false, tmp, 1)                // tmp = (N==V)
		b.EmitAluRegReg(emitter.OpAnd, false, acc, tmp)
	default: // AL/NV: always true
		b.EmitMovImm32Zero(acc, 1)
	}

	// Low bit of the 4-bit condition field inverts the sense, except for
	// the {1110,1111} (AL/NV) encoding which is always true regardless.
	if cond&1 != 0 && cond != 0xF {
		b.EmitAluRegImm32(emitter.OpXor, false, acc, 1)
	}

	b.EmitTestRegReg(false, acc, acc)
	return emitter.CondNE
}
