package xlate

import (
	"github.com/riftjit/rift64/decoder"
	"github.com/riftjit/rift64/emitter"
)

// TranslateBitfield handles ClassBitfield: SBFM, BFM, UBFM and the aliases
// assemblers build from them (BFI/BFXIL/SBFX/UBFX/SBFIZ/UBFIZ all decode to
// one of these three). Follows the ARM ARM's move/preserve/extend
// algorithm: the wmask-selected low bits come from ROR(Rn, immr), blended
// with either zero (SBFM/UBFM) or the current Rd (BFM); the tmask-excluded
// high bits come from a sign-replication of bit imms of Rn (SBFM) or that
// same blended value (UBFM/BFM).
func TranslateBitfield(inst decoder.Instruction, b *emitter.CodeBuffer) {
	width := 32
	if inst.SF {
		width = 64
	}
	opc := inst.Imm // 0=SBFM 1=BFM 2=UBFM

	src, rorSrc, dstOrig := tempPool[0], tempPool[1], tempPool[2]
	wmaskReg, tmaskReg := tempPool[3], tempPool[4]
	bot, top, notMask := tempPool[5], tempPool[6], tempPool[7]

	LoadReg(b, src, inst.Rn)

	b.EmitMovRegReg(true, rorSrc, src)
	if inst.Immr != 0 {
		b.EmitShiftImm(emitter.ShiftROR, inst.SF, rorSrc, uint8(inst.Immr))
	}

	wmask := decodeBitmaskImmediate(inst.SF, inst.Immr, inst.Imms)
	tmask := decodeBitmaskImmediate(inst.SF, 0, (inst.Imms-inst.Immr)&(width-1))
	b.EmitMovImm64(wmaskReg, wmask)
	b.EmitMovImm64(tmaskReg, tmask)

	if opc == 1 { // BFM preserves the destination's current value
		LoadReg(b, dstOrig, inst.Rd)
	} else { // SBFM/UBFM start from zero
		b.EmitAluRegReg(emitter.OpXor, true, dstOrig, dstOrig)
	}

	// bot = (dstOrig & ~wmask) | (rorSrc & wmask)
	b.EmitMovRegReg(inst.SF, notMask, wmaskReg)
	b.EmitAluRegImm32(emitter.OpXor, inst.SF, notMask, 0xFFFFFFFF)
	b.EmitMovRegReg(inst.SF, bot, dstOrig)
	b.EmitAluRegReg(emitter.OpAnd, inst.SF, bot, notMask)
	b.EmitAluRegReg(emitter.OpAnd, inst.SF, rorSrc, wmaskReg)
	b.EmitAluRegReg(emitter.OpOr, inst.SF, bot, rorSrc)

	if opc == 0 { // SBFM: top = Replicate(src<imms>) across the full width
		shiftLeft := width - 1 - inst.Imms
		b.EmitMovRegReg(inst.SF, top, src)
		if shiftLeft > 0 {
			b.EmitShiftImm(emitter.ShiftSHL, inst.SF, top, uint8(shiftLeft))
		}
		b.EmitShiftImm(emitter.ShiftSAR, inst.SF, top, uint8(width-1))
	} else {
		b.EmitMovRegReg(inst.SF, top, dstOrig)
	}

	// result = (top & ~tmask) | (bot & tmask)
	b.EmitMovRegReg(inst.SF, notMask, tmaskReg)
	b.EmitAluRegImm32(emitter.OpXor, inst.SF, notMask, 0xFFFFFFFF)
	b.EmitAluRegReg(emitter.OpAnd, inst.SF, top, notMask)
	b.EmitAluRegReg(emitter.OpAnd, inst.SF, bot, tmaskReg)
	b.EmitAluRegReg(emitter.OpOr, inst.SF, top, bot)

	if !inst.SF {
		maskTo32(b, top)
	}
	StoreReg(b, inst.Rd, top)
}
