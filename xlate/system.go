package xlate

import (
	"github.com/riftjit/rift64/decoder"
	"github.com/riftjit/rift64/emitter"
	"github.com/riftjit/rift64/state"
)

// packSysReg assembles the o0:op1:CRn:CRm:op2 tuple the ARM ARM uses to name
// a system register into the same 16-bit key decodeSystemRegister extracts
// from bits 20:5 of the instruction word (key bit 15 is word bit 20, op0's
// high bit, which is always 1 for these registers), so the constants below
// can be compared directly against a decoded inst.SysReg. Only the narrow set
// spec.md §4.3 names is covered (condition flags, FP control/status, thread
// pointer, counter/counter-frequency, cache-type register) — full system
// register coverage is explicitly out of scope.
func packSysReg(o0, op1, crn, crm, op2 int) int {
	return (1 << 15) | (o0 << 14) | (op1 << 11) | (crn << 7) | (crm << 3) | op2
}

var (
	sysRegNZCV      = packSysReg(1, 3, 4, 2, 0)
	sysRegFPCR      = packSysReg(1, 3, 4, 4, 0)
	sysRegFPSR      = packSysReg(1, 3, 4, 4, 1)
	sysRegTPIDREL0  = packSysReg(1, 3, 13, 0, 2)
	sysRegCNTFRQEL0 = packSysReg(1, 3, 14, 0, 0)
	sysRegCNTVCTEL0 = packSysReg(1, 3, 14, 0, 2)
	sysRegCTREL0    = packSysReg(1, 3, 0, 0, 1)
	sysRegDCZIDEL0  = packSysReg(1, 3, 0, 0, 7)
)

// TranslateSupervisorCall handles SVC: the syscall veneer is an external
// collaborator (spec.md §1(b)), so the block stashes the syscall number read
// from guest X8 (the Linux AArch64 convention, not the SVC instruction's own
// immediate operand, which Linux ignores) and exits.
func TranslateSupervisorCall(pc uint64, b *emitter.CodeBuffer) {
	num := tempPool[0]
	LoadReg(b, num, 8)
	b.EmitStoreBaseDisp(emitter.Size8, num, emitter.ThreadStateReg, int32(offSyscallNum))
	emitExit(b, state.ExitSyscall, pc+4)
}

// TranslateBreakpoint and TranslateHalt resume at the trapping instruction's
// own address rather than the next one: both hand control to a debugger or
// terminate the run, neither of which the translated block itself is able
// to continue past.
func TranslateBreakpoint(pc uint64, b *emitter.CodeBuffer) {
	emitExit(b, state.ExitBreakpoint, pc)
}

func TranslateHalt(pc uint64, b *emitter.CodeBuffer) {
	emitExit(b, state.ExitHalt, pc)
}

// TranslateSystemRegisterRead handles MRS: known registers are read directly
// out of ThreadState (NZCV is reassembled from its four byte-sized flags,
// see flags.go); everything else reads as zero per spec.md §4.3.
func TranslateSystemRegisterRead(inst decoder.Instruction, b *emitter.CodeBuffer) {
	dst := tempPool[0]
	switch inst.SysReg {
	case sysRegNZCV:
		emitPackNZCV(b, dst, tempPool[1])
	case sysRegFPCR:
		b.EmitLoadBaseDisp(emitter.Size4, dst, emitter.ThreadStateReg, int32(offFPCR))
	case sysRegFPSR:
		b.EmitLoadBaseDisp(emitter.Size4, dst, emitter.ThreadStateReg, int32(offFPSR))
	case sysRegTPIDREL0:
		b.EmitLoadBaseDisp(emitter.Size8, dst, emitter.ThreadStateReg, int32(offTPIDR))
	case sysRegCNTFRQEL0:
		b.EmitMovImm64(dst, 19200000) // a common real-hardware generic timer frequency
	case sysRegCNTVCTEL0:
		b.EmitMovImm64(dst, 0) // no virtual counter modeled
	case sysRegCTREL0:
		b.EmitMovImm64(dst, 0x80038003) // 64-byte I/D cache lines, a common QEMU-style value
	case sysRegDCZIDEL0:
		b.EmitMovImm64(dst, 0x10) // bit 4 set: DC ZVA is prohibited
	default:
		b.EmitAluRegReg(emitter.OpXor, true, dst, dst)
	}
	StoreReg(b, inst.Rd, dst)
}

// TranslateSystemRegisterWrite handles MSR: writes to a read-only register
// (the counters, CTR_EL0, DCZID_EL0) or an unrecognized one are silently
// discarded, matching real hardware's UNDEFINED-or-ignored behavior for the
// registers this narrow set cares about.
func TranslateSystemRegisterWrite(inst decoder.Instruction, b *emitter.CodeBuffer) {
	src := tempPool[0]
	LoadReg(b, src, inst.Rd)
	switch inst.SysReg {
	case sysRegNZCV:
		emitUnpackNZCV(b, src, tempPool[1])
	case sysRegFPCR:
		b.EmitStoreBaseDisp(emitter.Size4, src, emitter.ThreadStateReg, int32(offFPCR))
	case sysRegFPSR:
		b.EmitStoreBaseDisp(emitter.Size4, src, emitter.ThreadStateReg, int32(offFPSR))
	case sysRegTPIDREL0:
		b.EmitStoreBaseDisp(emitter.Size8, src, emitter.ThreadStateReg, int32(offTPIDR))
	}
}

func emitPackNZCV(b *emitter.CodeBuffer, dst, flag emitter.Reg) {
	b.EmitAluRegReg(emitter.OpXor, true, dst, dst)
	load := func(offset uintptr, bit uint8) {
		b.EmitLoadBaseDisp(emitter.Size1, flag, emitter.ThreadStateReg, int32(offset))
		if bit > 0 {
			b.EmitShiftImm(emitter.ShiftSHL, true, flag, bit)
		}
		b.EmitAluRegReg(emitter.OpOr, true, dst, flag)
	}
	load(offN, 31)
	load(offZ, 30)
	load(offC, 29)
	load(offV, 28)
}

func emitUnpackNZCV(b *emitter.CodeBuffer, src, bit emitter.Reg) {
	store := func(offset uintptr, pos uint8) {
		b.EmitMovRegReg(true, bit, src)
		if pos > 0 {
			b.EmitShiftImm(emitter.ShiftSHR, true, bit, pos)
		}
		b.EmitAluRegImm32(emitter.OpAnd, true, bit, 1)
		b.EmitStoreBaseDisp(emitter.Size1, bit, emitter.ThreadStateReg, int32(offset))
	}
	store(offN, 31)
	store(offZ, 30)
	store(offC, 29)
	store(offV, 28)
}
