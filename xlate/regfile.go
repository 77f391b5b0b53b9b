// Package xlate implements the per-class translators and the block
// translator of spec.md §4.3/§4.4: each translator consumes a decoded guest
// instruction and a code buffer and appends host code that reproduces the
// guest instruction's effect on a state.ThreadState.
//
// Register mapping. spec.md §4.3's reference mapping (guest X0..X15 -> host
// RAX..R15) collides with the two host registers this translator pins for
// the duration of a block: R13 holds the ThreadState pointer and R12 is the
// scratch register the emitter's wide-immediate synthesis uses (spec.md §5,
// emitter.ThreadStateReg/ScratchReg). Keeping 14 of 16 guest registers
// resident in host registers while two escape to memory would make every
// translator special-case the X12/X13 boundary. Instead no guest register
// is kept live in a host register across instructions: every translator
// loads its guest operands from ThreadState.General via the pinned
// ThreadStateReg and stores results back immediately, using a fixed pool of
// otherwise-unused host registers as working temporaries. This trades
// register-allocator complexity for straightforward per-instruction
// correctness, appropriate for a block translator with no cross-instruction
// liveness analysis (spec.md §4.4's translation loop has none).
package xlate

import (
	"unsafe"

	"github.com/riftjit/rift64/emitter"
	"github.com/riftjit/rift64/state"
)

// Field offsets into state.ThreadState, computed once so the translators
// never hardcode struct layout. Any reordering of ThreadState's fields is
// automatically reflected here; the struct's doc comment still asks callers
// not to reorder casually since these offsets are part of the ABI between
// this package and the host code it emits.
var (
	offGeneral    = unsafe.Offsetof(state.ThreadState{}.General)
	offSP         = unsafe.Offsetof(state.ThreadState{}.SP)
	offPC         = unsafe.Offsetof(state.ThreadState{}.PC)
	offPSTATE     = unsafe.Offsetof(state.ThreadState{}.PSTATE)
	offSyscallNum = unsafe.Offsetof(state.ThreadState{}.Syscall) + unsafe.Offsetof(state.PendingSyscall{}.Number)
)

var (
	offN = offPSTATE + unsafe.Offsetof(state.ProcessorState{}.N)
	offZ = offPSTATE + unsafe.Offsetof(state.ProcessorState{}.Z)
	offC = offPSTATE + unsafe.Offsetof(state.ProcessorState{}.C)
	offV = offPSTATE + unsafe.Offsetof(state.ProcessorState{}.V)
)

var (
	offSyscallResult = unsafe.Offsetof(state.ThreadState{}.Syscall) + unsafe.Offsetof(state.PendingSyscall{}.Result)
	offSyscallErrno  = unsafe.Offsetof(state.ThreadState{}.Syscall) + unsafe.Offsetof(state.PendingSyscall{}.Errno)
)

var (
	offFPCR  = unsafe.Offsetof(state.ThreadState{}.SIMD) + unsafe.Offsetof(state.SIMDRegisters{}.FPCR)
	offFPSR  = unsafe.Offsetof(state.ThreadState{}.SIMD) + unsafe.Offsetof(state.SIMDRegisters{}.FPSR)
	offTPIDR = unsafe.Offsetof(state.ThreadState{}.TPIDR)
)

var (
	offMemAddr   = unsafe.Offsetof(state.ThreadState{}.MemOp) + unsafe.Offsetof(state.PendingMemOp{}.Addr)
	offMemSize   = unsafe.Offsetof(state.ThreadState{}.MemOp) + unsafe.Offsetof(state.PendingMemOp{}.Size)
	offMemWrite  = unsafe.Offsetof(state.ThreadState{}.MemOp) + unsafe.Offsetof(state.PendingMemOp{}.Write)
	offMemSigned = unsafe.Offsetof(state.ThreadState{}.MemOp) + unsafe.Offsetof(state.PendingMemOp{}.Signed)
	offMemPair   = unsafe.Offsetof(state.ThreadState{}.MemOp) + unsafe.Offsetof(state.PendingMemOp{}.Pair)
	offMemReg    = unsafe.Offsetof(state.ThreadState{}.MemOp) + unsafe.Offsetof(state.PendingMemOp{}.Reg)
	offMemReg2   = unsafe.Offsetof(state.ThreadState{}.MemOp) + unsafe.Offsetof(state.PendingMemOp{}.Reg2)
	offMemValue  = unsafe.Offsetof(state.ThreadState{}.MemOp) + unsafe.Offsetof(state.PendingMemOp{}.Value)
	offMemValue2 = unsafe.Offsetof(state.ThreadState{}.MemOp) + unsafe.Offsetof(state.PendingMemOp{}.Value2)
)

// generalOffset returns the byte offset of guest register reg within
// ThreadState, valid for reg in [0,31).
func generalOffset(reg int) int32 {
	return int32(offGeneral) + int32(reg)*8
}

// tempPool lists the host registers translators may freely use as scratch
// without saving/restoring them: every callee-saved register the emitted
// function needs is already pushed in the prologue (emitter.EmitPrologue),
// and ThreadStateReg/ScratchReg are reserved (see package doc comment).
var tempPool = []emitter.Reg{
	emitter.RAX, emitter.RCX, emitter.RDX, emitter.RBX,
	emitter.RSI, emitter.RDI, emitter.R8, emitter.R9, emitter.R10, emitter.R11,
}

// LoadReg appends code loading guest register reg (or 0 for the zero
// register, per ARM64's X31 aliasing, spec.md §4.1) into host register dst.
func LoadReg(b *emitter.CodeBuffer, dst emitter.Reg, reg int) {
	if reg == state.ZeroRegister {
		b.EmitAluRegReg(emitter.OpXor, true, dst, dst)
		return
	}
	b.EmitLoadBaseDisp(emitter.Size8, dst, emitter.ThreadStateReg, generalOffset(reg))
}

// StoreReg appends code storing host register src into guest register reg.
// Writes to the zero register are discarded (ARM64 requires this).
func StoreReg(b *emitter.CodeBuffer, reg int, src emitter.Reg) {
	if reg == state.ZeroRegister {
		return
	}
	b.EmitStoreBaseDisp(emitter.Size8, src, emitter.ThreadStateReg, generalOffset(reg))
}

// LoadSP / StoreSP access the guest stack pointer, which unlike X0-X30 is
// never aliased to the zero register.
func LoadSP(b *emitter.CodeBuffer, dst emitter.Reg) {
	b.EmitLoadBaseDisp(emitter.Size8, dst, emitter.ThreadStateReg, int32(offSP))
}

func StoreSP(b *emitter.CodeBuffer, src emitter.Reg) {
	b.EmitStoreBaseDisp(emitter.Size8, src, emitter.ThreadStateReg, int32(offSP))
}

// LoadBase / StoreBase access a register in "base register" position: the
// load/store base, and the Rn/Rd operands of add/sub (extended register)
// and add/sub (immediate), all of which encode the guest stack pointer as
// register index 31 rather than the zero register (spec.md §4.1's
// ZeroRegister alias applies only to the data-processing forms that don't
// support SP as an operand).
func LoadBase(b *emitter.CodeBuffer, dst emitter.Reg, reg int) {
	if reg == state.ZeroRegister {
		LoadSP(b, dst)
		return
	}
	LoadReg(b, dst, reg)
}

func StoreBase(b *emitter.CodeBuffer, reg int, src emitter.Reg) {
	if reg == state.ZeroRegister {
		StoreSP(b, src)
		return
	}
	StoreReg(b, reg, src)
}

// maskTo32 appends code clearing the upper 32 bits of reg when the guest
// operation is a 32-bit (sf=0) form, matching ARM64's "operations on W
// registers zero the upper 32 bits of the corresponding X register."
func maskTo32(b *emitter.CodeBuffer, reg emitter.Reg) {
	b.EmitMovRegReg(false, reg, reg)
}
