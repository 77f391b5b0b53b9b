package xlate

import (
	"github.com/riftjit/rift64/decoder"
	"github.com/riftjit/rift64/emitter"
)

// TranslateMultiplyExtend handles ClassMultiplyExtend, which covers both the
// 3-source multiply family (decodeMultiplyExtend) and SDIV/UDIV
// (decodeDivide, marked by Imm == -1).
func TranslateMultiplyExtend(inst decoder.Instruction, b *emitter.CodeBuffer) {
	if inst.Imm == -1 {
		translateDivide(inst, b)
		return
	}
	switch inst.Size {
	case decoder.SizeDouble:
		translateMulHigh(inst, b)
	case decoder.SizeWord:
		translateMulWidening(inst, b)
	default:
		translateMulAdd(inst, b)
	}
}

// translateMulAdd handles MADD/MSUB (and their MUL/MNEG aliases, where Ra is
// assembled as XZR). The low 64 (or 32) bits of Rn*Rm match between signed
// and unsigned multiplication, so a single IMUL suffices regardless of
// operand signedness.
func translateMulAdd(inst decoder.Instruction, b *emitter.CodeBuffer) {
	lhs, rhs, acc := tempPool[0], tempPool[1], tempPool[2]
	LoadReg(b, lhs, inst.Rn)
	LoadReg(b, rhs, inst.Rm)
	LoadReg(b, acc, inst.Ra)

	b.EmitMulLow(inst.SF, lhs, rhs)
	if inst.Unsigned { // MSUB
		b.EmitAluRegReg(emitter.OpSub, inst.SF, acc, lhs)
	} else { // MADD
		b.EmitAluRegReg(emitter.OpAdd, inst.SF, acc, lhs)
	}
	if !inst.SF {
		maskTo32(b, acc)
	}
	StoreReg(b, inst.Rd, acc)
}

// translateMulWidening handles SMADDL/SMSUBL/UMADDL/UMSUBL: sign- or
// zero-extend the two 32-bit source operands to 64 bits first, so their
// 64-bit low-half product equals the exact widened 64-bit result, then
// accumulate into the 64-bit Ra.
func translateMulWidening(inst decoder.Instruction, b *emitter.CodeBuffer) {
	lhs, rhs, acc := tempPool[0], tempPool[1], tempPool[2]
	LoadReg(b, lhs, inst.Rn)
	LoadReg(b, rhs, inst.Rm)

	signed := inst.Imm == 1
	if signed {
		b.EmitExtend(emitter.ExtendSign32, true, lhs, lhs)
		b.EmitExtend(emitter.ExtendSign32, true, rhs, rhs)
	} else {
		maskTo32(b, lhs)
		maskTo32(b, rhs)
	}
	b.EmitMulLow(true, lhs, rhs)

	LoadReg(b, acc, inst.Ra)
	if inst.Unsigned { // SMSUBL/UMSUBL
		b.EmitAluRegReg(emitter.OpSub, true, acc, lhs)
	} else { // SMADDL/UMADDL
		b.EmitAluRegReg(emitter.OpAdd, true, acc, lhs)
	}
	StoreReg(b, inst.Rd, acc)
}

// translateMulHigh handles SMULH/UMULH: the high 64 bits of a 64x64
// multiply, which x86_64's implicit-operand MUL/IMUL produce directly in
// RDX. Rn must be staged in RAX for the host instruction's fixed operand
// convention.
func translateMulHigh(inst decoder.Instruction, b *emitter.CodeBuffer) {
	rhs := tempPool[1]
	LoadReg(b, emitter.RAX, inst.Rn)
	LoadReg(b, rhs, inst.Rm)
	b.EmitMulFull(true, !inst.Unsigned, rhs)
	StoreReg(b, inst.Rd, emitter.RDX)
}

// translateDivide handles SDIV/UDIV. ARM64 defines division by zero as
// yielding zero (rather than the host DIV/IDIV's fault), and signed
// division of INT_MIN by -1 as yielding INT_MIN (rather than the host
// IDIV's #DE on that same overflow case); both are guarded explicitly
// before falling through to the host divide.
func translateDivide(inst decoder.Instruction, b *emitter.CodeBuffer) {
	dividend := emitter.RAX
	divisor := tempPool[1]
	LoadReg(b, dividend, inst.Rn)
	LoadReg(b, divisor, inst.Rm)

	b.EmitCmpRegImm32(inst.SF, divisor, 0)
	jZero := b.EmitJcc(emitter.CondE)

	signed := !inst.Unsigned
	var jOverflow int
	haveOverflow := false
	if signed {
		b.EmitCmpRegImm32(inst.SF, divisor, 0xFFFFFFFF) // -1, sign-extended
		jNotNegOne := b.EmitJcc(emitter.CondNE)

		minValue := uint64(1) << 63
		if !inst.SF {
			minValue = uint64(1) << 31
		}
		b.EmitMovImm64(emitter.ScratchReg, minValue)
		b.EmitCmpRegReg(inst.SF, dividend, emitter.ScratchReg)
		jNotMin := b.EmitJcc(emitter.CondNE)

		jOverflow = b.EmitJmp() // dividend already holds INT_MIN
		haveOverflow = true

		patchHere(b, jNotNegOne)
		patchHere(b, jNotMin)
	}

	if signed {
		b.EmitCqoCdq(inst.SF)
	} else {
		b.EmitXorSelf(inst.SF, emitter.RDX)
	}
	b.EmitDiv(inst.SF, signed, divisor)
	jDone := b.EmitJmp()

	patchHere(b, jZero)
	b.EmitMovImm32Zero(dividend, 0)

	patchHere(b, jDone)
	if haveOverflow {
		patchHere(b, jOverflow)
	}

	if !inst.SF {
		maskTo32(b, dividend)
	}
	StoreReg(b, inst.Rd, dividend)
}
