package xlate

import (
	"github.com/riftjit/rift64/decoder"
	"github.com/riftjit/rift64/emitter"
)

// TranslateBranch handles ClassBranchUnconditional and ClassBranchLink: both
// carry a compile-time pc-relative target, so the block can return the real
// next guest PC directly rather than exiting through the dispatch loop.
func TranslateBranch(inst decoder.Instruction, pc uint64, b *emitter.CodeBuffer) {
	if inst.Class == decoder.ClassBranchLink {
		link := tempPool[0]
		b.EmitMovImm64(link, pc+4)
		StoreReg(b, 30, link)
	}
	emitReturnImm(b, branchTarget(pc, inst.Imm))
}

// TranslateBranchRegister handles ClassBranchRegister (BR): the target is
// whatever inst.Rn holds at run time.
func TranslateBranchRegister(inst decoder.Instruction, b *emitter.CodeBuffer) {
	target := tempPool[0]
	LoadReg(b, target, inst.Rn)
	emitReturnPC(b, target)
}

// TranslateReturn handles ClassReturn (RET): identical shape to BR, kept
// separate since the two classes are semantically distinct at the guest ISA
// level even though the translator emits the same host code.
func TranslateReturn(inst decoder.Instruction, b *emitter.CodeBuffer) {
	target := tempPool[0]
	LoadReg(b, target, inst.Rn)
	emitReturnPC(b, target)
}

// TranslateBranchConditional handles ClassBranchConditional: both arms
// return directly, duplicating the small exit sequence rather than sharing
// a join point, since there is no simpler way to materialize "one of two
// compile-time-constant PCs" without a host conditional move over program
// counters.
func TranslateBranchConditional(inst decoder.Instruction, pc uint64, b *emitter.CodeBuffer) {
	cond := EvalCond(b, inst.Cond, tempPool[0], tempPool[1])
	jTaken := b.EmitJcc(cond)
	emitReturnImm(b, pc+4)
	patchHere(b, jTaken)
	emitReturnImm(b, branchTarget(pc, inst.Imm))
}

// TranslateCompareAndBranch handles ClassCompareAndBranch (CBZ/CBNZ).
func TranslateCompareAndBranch(inst decoder.Instruction, pc uint64, b *emitter.CodeBuffer) {
	reg := tempPool[0]
	LoadReg(b, reg, inst.Rd)
	b.EmitTestRegReg(inst.SF, reg, reg)
	cond := emitter.CondE
	if inst.Unsigned { // CBNZ: decoder repurposes Unsigned as "branch if nonzero"
		cond = emitter.CondNE
	}
	jTaken := b.EmitJcc(cond)
	emitReturnImm(b, pc+4)
	patchHere(b, jTaken)
	emitReturnImm(b, branchTarget(pc, inst.Imm))
}

// TranslateTestBitBranch handles ClassTestBitBranch (TBZ/TBNZ). The bit
// position (0-63, inst.Imm) is tested against the full 64-bit register
// value regardless of whether the guest encoding targets Wt or Xt, since
// this register file always keeps a 32-bit write's upper bits cleared
// (maskTo32), so bits 0-31 agree between the W and X views.
func TranslateTestBitBranch(inst decoder.Instruction, pc uint64, b *emitter.CodeBuffer) {
	reg := tempPool[0]
	LoadReg(b, reg, inst.Rd)
	bitPos := uint8(inst.Imm)
	if bitPos > 0 {
		b.EmitShiftImm(emitter.ShiftSHR, true, reg, bitPos)
	}
	b.EmitAluRegImm32(emitter.OpAnd, true, reg, 1)
	b.EmitTestRegReg(true, reg, reg)

	cond := emitter.CondE
	if inst.Unsigned { // TBNZ: decoder repurposes Unsigned as "branch if set"
		cond = emitter.CondNE
	}
	jTaken := b.EmitJcc(cond)
	emitReturnImm(b, pc+4)
	patchHere(b, jTaken)
	emitReturnImm(b, branchTarget(pc, int64(inst.ImmWidth)))
}

func branchTarget(pc uint64, offset int64) uint64 {
	return uint64(int64(pc) + offset)
}
