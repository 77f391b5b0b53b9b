package xlate

import (
	"github.com/riftjit/rift64/decoder"
	"github.com/riftjit/rift64/emitter"
)

// TranslateMovWide handles ClassMovWide (MOVZ/MOVN/MOVK), spec.md §4.3
// "Move-wide family". MOVZ/MOVN operate on a single compile-time-known
// immediate and are synthesized directly; MOVK depends on the register's
// current runtime value, so it reads, masks and ORs in the new 16-bit field.
func TranslateMovWide(inst decoder.Instruction, b *emitter.CodeBuffer) {
	dst := tempPool[0]
	shift := uint(inst.ShiftAmt)
	field := uint64(inst.Imm) << shift

	switch {
	case inst.SetFlags: // MOVK: preserve all bits outside the 16-bit field
		LoadReg(b, dst, inst.Rd)
		mask := ^(uint64(0xFFFF) << shift)
		if !inst.SF {
			mask &= 0xFFFFFFFF
		}
		b.EmitMovImm64(emitter.ScratchReg, mask)
		b.EmitAluRegReg(emitter.OpAnd, inst.SF, dst, emitter.ScratchReg)
		b.EmitMovImm64(emitter.ScratchReg, field)
		b.EmitAluRegReg(emitter.OpOr, inst.SF, dst, emitter.ScratchReg)
	case inst.Unsigned: // MOVN: destination is the bitwise complement of the field
		value := ^field
		if !inst.SF {
			value &= 0xFFFFFFFF
		}
		emitConst(b, inst.SF, dst, value)
	default: // MOVZ
		emitConst(b, inst.SF, dst, field)
	}

	StoreReg(b, inst.Rd, dst)
}

// emitConst materializes a compile-time-known immediate into dst, using the
// 32-bit zero-extending form when the operand width allows it (fewer bytes
// than the general 10-byte 64-bit MOVABS).
func emitConst(b *emitter.CodeBuffer, w bool, dst emitter.Reg, value uint64) {
	if !w {
		b.EmitMovImm32Zero(dst, uint32(value))
		return
	}
	b.EmitMovImm64(dst, value)
}
