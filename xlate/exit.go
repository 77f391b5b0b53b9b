package xlate

import (
	"github.com/riftjit/rift64/emitter"
	"github.com/riftjit/rift64/state"
)

// emitExit appends the shared early-exit sequence a block uses whenever it
// needs the dispatch loop rather than another translated block next: stash
// the guest PC to resume at, load the ExitReason sentinel into RAX (the
// block's return value per spec.md §6), then run the normal epilogue/ret.
func emitExit(b *emitter.CodeBuffer, reason state.ExitReason, resumePC uint64) {
	b.EmitMovImm64(emitter.ScratchReg, resumePC)
	b.EmitStoreBaseDisp(emitter.Size8, emitter.ScratchReg, emitter.ThreadStateReg, int32(offPC))
	b.EmitMovImm64(emitter.RAX, uint64(reason))
	b.EmitEpilogue()
	b.EmitRet()
}
