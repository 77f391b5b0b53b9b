package emitter

// Cond names the x86_64 condition codes the block translator selects among
// when lowering a guest conditional branch/select to a host Jcc/SETcc.
type Cond byte

const (
	CondO  Cond = 0x0
	CondNO Cond = 0x1
	CondB  Cond = 0x2
	CondAE Cond = 0x3
	CondE  Cond = 0x4
	CondNE Cond = 0x5
	CondBE Cond = 0x6
	CondA  Cond = 0x7
	CondS  Cond = 0x8
	CondNS Cond = 0x9
	CondL  Cond = 0xC
	CondGE Cond = 0xD
	CondLE Cond = 0xE
	CondG  Cond = 0xF

	// JmpAlways is not a real Jcc condition; EmitJmp below handles it.
)

// EmitJcc appends a near conditional jump (Jcc rel32) with a placeholder
// zero displacement and returns the buffer offset of the 4-byte
// displacement field, so the caller can PatchS32 it once the target offset
// is known.
func (b *CodeBuffer) EmitJcc(cond Cond) (patchAt int) {
	b.append(0x0F, 0x80+byte(cond))
	patchAt = b.offset
	b.append(0, 0, 0, 0)
	return patchAt
}

// EmitJmp appends a near unconditional jump (JMP rel32) with a placeholder
// displacement, returning its patch offset.
func (b *CodeBuffer) EmitJmp() (patchAt int) {
	b.append(0xE9)
	patchAt = b.offset
	b.append(0, 0, 0, 0)
	return patchAt
}

// EmitCallReg appends `call reg`, used to invoke the syscall veneer or
// other host helper functions from translated code.
func (b *CodeBuffer) EmitCallReg(reg Reg) {
	if needsRexB(reg) {
		b.append(rexByte(false, false, false, true))
	}
	b.append(0xFF)
	b.append(modrm(3, 2, byte(reg)))
}

// EmitRet appends a near return; translated blocks use this to return the
// next guest PC (left in RAX per the calling convention, spec.md §6) to the
// dispatch loop.
func (b *CodeBuffer) EmitRet() {
	b.append(0xC3)
}

// EmitSetcc appends `dst = cond ? 1 : 0`: SETcc into the low byte of dst
// (always REX-prefixed, so SIL/DIL are addressable), then a MOVZX of that
// byte so the full-width value is well-defined. Neither instruction touches
// the host flags, so they still hold the tested condition afterwards (used
// by the flag translators that store each guest flag as a byte).
func (b *CodeBuffer) EmitSetcc(cond Cond, dst Reg) {
	b.append(rexByte(false, false, false, needsRexB(dst)))
	b.append(0x0F, 0x90+byte(cond))
	b.append(modrm(3, 0, byte(dst)))
	b.EmitExtend(ExtendZero8, false, dst, dst)
}

// EmitUndefinedTrap appends a host UD2 instruction: executing a translated
// block that reached a decoder-Undefined instruction raises a host trap
// here rather than falling through (spec.md §4.5, Error kind
// UndefinedInstruction).
func (b *CodeBuffer) EmitUndefinedTrap() {
	b.append(0x0F, 0x0B)
}

// calleeSaved lists the host registers the System V AMD64 ABI requires a
// callee to preserve, plus the two the core additionally pins for the
// duration of a block (ThreadStateReg, ScratchReg overlap RBX/R12-R15 so
// are included here too).
var calleeSaved = []Reg{RBX, R12, R13, R14, R15, RBP}

// EmitPrologue appends the host function prologue for a translated block:
// push the callee-saved registers the block's generated code may touch,
// then move the thread-state argument (passed in RDI per the SysV ABI, the
// single argument of the block calling convention, spec.md §6) into the
// pinned ThreadStateReg.
func (b *CodeBuffer) EmitPrologue() {
	for _, r := range calleeSaved {
		b.EmitPush(r)
	}
	b.EmitMovRegReg(true, ThreadStateReg, RDI)
}

// EmitEpilogue appends the host function epilogue: restore the
// callee-saved registers in reverse order. The caller must have already
// placed the next guest PC in RAX before calling EmitEpilogue followed by
// EmitRet.
func (b *CodeBuffer) EmitEpilogue() {
	for i := len(calleeSaved) - 1; i >= 0; i-- {
		b.EmitPop(calleeSaved[i])
	}
}
