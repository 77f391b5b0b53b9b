package xlate

import "github.com/riftjit/rift64/emitter"

// patchHere resolves a previously emitted EmitJcc/EmitJmp's placeholder
// displacement to the buffer's current write position, the common case of
// a forward branch whose target is "the next thing translated."
func patchHere(b *emitter.CodeBuffer, patchAt int) {
	target := b.Len()
	b.PatchS32(patchAt, int32(target-(patchAt+4)))
}

// emitReturnImm appends the block-exit sequence for a compile-time-known
// next guest PC: spec.md §6's return convention is "a real guest PC in RAX
// means look up or translate a block there next", so no ExitReason sentinel
// is involved (contrast emitExit, used only when a collaborator must run
// first).
func emitReturnImm(b *emitter.CodeBuffer, pc uint64) {
	b.EmitMovImm64(emitter.RAX, pc)
	b.EmitEpilogue()
	b.EmitRet()
}

// emitReturnPC appends the same exit sequence for a runtime-computed target
// (BR/RET/BLR) already loaded into a host register.
func emitReturnPC(b *emitter.CodeBuffer, reg emitter.Reg) {
	if reg != emitter.RAX {
		b.EmitMovRegReg(true, emitter.RAX, reg)
	}
	b.EmitEpilogue()
	b.EmitRet()
}
