package xlate

import (
	"github.com/riftjit/rift64/decoder"
	"github.com/riftjit/rift64/emitter"
)

// addSubOp maps the ARM64 "subtract" selector bit to the emitter's AluOp.
func addSubOp(subtract bool) emitter.AluOp {
	if subtract {
		return emitter.OpSub
	}
	return emitter.OpAdd
}

// logicalOpFromOpc maps the ARM64 logical-instruction 2-bit opc field
// (AND=0, ORR=1, EOR=2, ANDS=3) to the emitter's AluOp.
var logicalOpFromOpc = map[int64]emitter.AluOp{
	0: emitter.OpAnd,
	1: emitter.OpOr,
	2: emitter.OpXor,
	3: emitter.OpAnd, // ANDS: caller materializes flags separately
}

// TranslateAddSubShifted handles ClassAddSubShifted (ADD/SUB/ADDS/SUBS with
// a shifted-register second operand). The reg-reg ADD/SUB host instruction
// already leaves host RFLAGS matching the guest semantics (spec.md §4.3);
// MOV-based register moves never disturb flags, so flags are materialized
// immediately after the op and survive the later store.
func TranslateAddSubShifted(inst decoder.Instruction, b *emitter.CodeBuffer) {
	lhs, rhs := tempPool[0], tempPool[1]
	LoadReg(b, lhs, inst.Rn)
	LoadReg(b, rhs, inst.Rm)
	applyShift(b, inst.SF, rhs, inst.Shift, inst.ShiftAmt)

	subtract := inst.Unsigned // Unsigned repurposed by the decoder: true => subtract
	b.EmitAluRegReg(addSubOp(subtract), inst.SF, lhs, rhs) // SUB sets the same flags CMP would
	if inst.SetFlags {
		materializeCompareFlags(b, subtract, tempPool[2])
	}
	if !inst.SF {
		maskTo32(b, lhs)
	}
	StoreReg(b, inst.Rd, lhs)
}

// TranslateAddSubExtended handles ClassAddSubExtended (ADD/SUB with an
// extended-register second operand, e.g. stack-pointer-relative address
// arithmetic). Unlike the shifted-register form, Rn and Rd here are the
// ARM64 encodings that accept the guest stack pointer in place of a general
// register (e.g. "ADD SP, X0, X1, UXTX"), so both use LoadBase/StoreBase
// rather than treating index 31 as the zero register.
func TranslateAddSubExtended(inst decoder.Instruction, b *emitter.CodeBuffer) {
	lhs, rhs := tempPool[0], tempPool[1]
	LoadBase(b, lhs, inst.Rn)
	LoadReg(b, rhs, inst.Rm)
	applyExtend(b, rhs, inst.Extend, inst.ExtendAmt)

	subtract := inst.Unsigned
	b.EmitAluRegReg(addSubOp(subtract), inst.SF, lhs, rhs)
	if inst.SetFlags {
		materializeCompareFlags(b, subtract, tempPool[2])
	}
	if !inst.SF {
		maskTo32(b, lhs)
	}
	StoreBase(b, inst.Rd, lhs)
}

// TranslateALUImmediate handles ClassALUImmediate: add/sub-immediate forms
// (inst.Imm already holds the shifted 12-bit immediate, Immr/Imms are
// zero) and logical-immediate forms (inst.Immr/Imms hold the ARM64
// bitmask-immediate fields, inst.Imm repurposed to carry the AND/ORR/EOR
// opcode selector).
func TranslateALUImmediate(inst decoder.Instruction, b *emitter.CodeBuffer) {
	dst := tempPool[0]
	logical := isLogicalImmediate(inst)
	if logical {
		LoadReg(b, dst, inst.Rn)
	} else {
		// Add/sub-immediate is the other ARM64 form that accepts the guest
		// stack pointer as Rn/Rd (e.g. "SUB SP, SP, #0x20" in a prologue).
		LoadBase(b, dst, inst.Rn)
	}

	if logical {
		mask := decodeBitmaskImmediate(inst.SF, inst.Immr, inst.Imms)
		op := logicalOpFromOpc[inst.Imm]
		emitImm64ThenOp(b, op, inst.SF, dst, mask)
		if inst.SetFlags {
			materializeTestFlags(b, tempPool[1])
		}
	} else {
		imm := uint32(inst.Imm)
		subtract := inst.Unsigned
		op := addSubOp(subtract)
		b.EmitAluRegImm32(op, inst.SF, dst, imm)
		if inst.SetFlags {
			materializeCompareFlags(b, subtract, tempPool[1])
		}
	}
	if !inst.SF {
		maskTo32(b, dst)
	}
	if logical {
		StoreReg(b, inst.Rd, dst)
	} else {
		StoreBase(b, inst.Rd, dst)
	}
}

// isLogicalImmediate distinguishes the logical-immediate encoding (which
// the decoder only ever populates Immr/Imms for) from the add/sub-immediate
// encoding (which leaves them zero and uses inst.Imm as the literal shifted
// operand). It tests the raw word's bits 28:23 (100100 for logical
// immediate), since a logical immediate may itself have Immr == Imms == 0.
func isLogicalImmediate(inst decoder.Instruction) bool {
	return inst.Raw&0x1F800000 == 0x12000000
}

// emitImm64ThenOp synthesizes a wide immediate into the scratch register
// and applies op against dst (spec.md §4.3 "For immediates wider than the
// host form supports, synthesize via the load-constant sequence into a
// scratch host register").
func emitImm64ThenOp(b *emitter.CodeBuffer, op emitter.AluOp, w bool, dst emitter.Reg, imm uint64) {
	b.EmitMovImm64(emitter.ScratchReg, imm)
	b.EmitAluRegReg(op, w, dst, emitter.ScratchReg)
}

// TranslateLogicalShifted handles ClassLogicalShifted (AND/ORR/EOR/ANDS
// with a shifted-register second operand); ANDS with Rd==31 is reclassified
// ClassTest by the decoder and handled by TranslateTest instead.
func TranslateLogicalShifted(inst decoder.Instruction, b *emitter.CodeBuffer) {
	lhs, rhs := tempPool[0], tempPool[1]
	LoadReg(b, lhs, inst.Rn)
	LoadReg(b, rhs, inst.Rm)
	applyShift(b, inst.SF, rhs, inst.Shift, inst.ShiftAmt)
	if inst.Unsigned { // NOT variants (BIC/ORN/EON/BICS) complement rhs first
		b.EmitAluRegImm32(emitter.OpXor, inst.SF, rhs, 0xFFFFFFFF)
	}
	op := logicalOpFromOpc[inst.Imm]
	b.EmitAluRegReg(op, inst.SF, lhs, rhs)
	if inst.SetFlags {
		materializeTestFlags(b, tempPool[2])
	}
	if !inst.SF {
		maskTo32(b, lhs)
	}
	StoreReg(b, inst.Rd, lhs)
}

// TranslateTest handles ClassTest (ANDS/TST with Rd==31: flags only, no
// destination write), in both the bitmask-immediate form (Rm unset) and the
// shifted-register form.
func TranslateTest(inst decoder.Instruction, b *emitter.CodeBuffer) {
	lhs := tempPool[0]
	LoadReg(b, lhs, inst.Rn)
	if inst.Rm >= 0 {
		rhs := tempPool[2]
		LoadReg(b, rhs, inst.Rm)
		applyShift(b, inst.SF, rhs, inst.Shift, inst.ShiftAmt)
		if inst.Unsigned { // BICS complements rhs first
			b.EmitAluRegImm32(emitter.OpXor, inst.SF, rhs, 0xFFFFFFFF)
		}
		b.EmitTestRegReg(inst.SF, lhs, rhs)
	} else {
		mask := decodeBitmaskImmediate(inst.SF, inst.Immr, inst.Imms)
		b.EmitMovImm64(emitter.ScratchReg, mask)
		b.EmitTestRegReg(inst.SF, lhs, emitter.ScratchReg)
	}
	materializeTestFlags(b, tempPool[1])
}

// TranslateCompareRegister handles ClassCompareRegister (CMP/CMN): flags
// only, produced either directly from a register/shifted-register form or as
// the Rd==31 alias of SUBS/ADDS-immediate, in which case the decoder leaves
// Rm unset (-1) and the operand lives in inst.Imm instead.
func TranslateCompareRegister(inst decoder.Instruction, b *emitter.CodeBuffer) {
	lhs, rhs := tempPool[0], tempPool[1]
	LoadReg(b, lhs, inst.Rn)
	subtractBased := inst.Unsigned // true => SUBS-based (CMP), false => ADDS-based (CMN)
	if inst.Rm < 0 {
		b.EmitMovImm64(rhs, uint64(inst.Imm))
	} else {
		LoadReg(b, rhs, inst.Rm)
		applyShift(b, inst.SF, rhs, inst.Shift, inst.ShiftAmt)
	}
	if subtractBased {
		b.EmitCmpRegReg(inst.SF, lhs, rhs)
	} else {
		b.EmitAluRegReg(emitter.OpAdd, inst.SF, lhs, rhs)
	}
	materializeCompareFlags(b, subtractBased, tempPool[2])
}

func applyShift(b *emitter.CodeBuffer, w bool, reg emitter.Reg, kind decoder.ShiftKind, amt int) {
	if amt == 0 {
		return
	}
	switch kind {
	case decoder.ShiftLSL:
		b.EmitShiftImm(emitter.ShiftSHL, w, reg, uint8(amt))
	case decoder.ShiftLSR:
		b.EmitShiftImm(emitter.ShiftSHR, w, reg, uint8(amt))
	case decoder.ShiftASR:
		b.EmitShiftImm(emitter.ShiftSAR, w, reg, uint8(amt))
	case decoder.ShiftROR:
		b.EmitShiftImm(emitter.ShiftROR, w, reg, uint8(amt))
	}
}

func applyExtend(b *emitter.CodeBuffer, reg emitter.Reg, kind decoder.ExtendKind, amt int) {
	switch kind {
	case decoder.ExtendUXTW:
		b.EmitMovRegReg(false, reg, reg) // zero-extends the upper 32 bits
	case decoder.ExtendSXTW:
		b.EmitExtend(emitter.ExtendSign32, true, reg, reg)
	case decoder.ExtendLSL:
		// no width conversion; amt applied as a shift below
	}
	if amt > 0 {
		b.EmitShiftImm(emitter.ShiftSHL, true, reg, uint8(amt))
	}
}
