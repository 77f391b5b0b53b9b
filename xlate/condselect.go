package xlate

import (
	"github.com/riftjit/rift64/decoder"
	"github.com/riftjit/rift64/emitter"
)

// TranslateConditionalSelect handles ClassConditionalSelect: CSEL, CSINC,
// CSINV, CSNEG. decodeCondSelect packs the variant into inst.Imm as
// op<<2|op2 (CSEL=0, CSINC=1, CSINV=4, CSNEG=5). The "false" operand's
// transform (increment/invert/negate) is computed unconditionally since it
// is cheap and keeps both arms side-effect-free before the branch.
func TranslateConditionalSelect(inst decoder.Instruction, b *emitter.CodeBuffer) {
	trueVal, falseVal := tempPool[0], tempPool[1]
	LoadReg(b, trueVal, inst.Rn)
	LoadReg(b, falseVal, inst.Rm)

	switch inst.Imm {
	case 1: // CSINC
		b.EmitAluRegImm32(emitter.OpAdd, inst.SF, falseVal, 1)
	case 4: // CSINV
		b.EmitAluRegImm32(emitter.OpXor, inst.SF, falseVal, 0xFFFFFFFF)
	case 5: // CSNEG
		neg := tempPool[2]
		b.EmitAluRegReg(emitter.OpXor, inst.SF, neg, neg)
		b.EmitAluRegReg(emitter.OpSub, inst.SF, neg, falseVal)
		falseVal = neg
	}

	cond := EvalCond(b, inst.Cond, tempPool[3], tempPool[4])
	result := tempPool[5]
	jTrue := b.EmitJcc(cond) // cond (CondNE) means the guest condition held
	b.EmitMovRegReg(true, result, falseVal)
	jDone := b.EmitJmp()
	patchHere(b, jTrue)
	b.EmitMovRegReg(true, result, trueVal)
	patchHere(b, jDone)

	if !inst.SF {
		maskTo32(b, result)
	}
	StoreReg(b, inst.Rd, result)
}
