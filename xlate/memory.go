package xlate

import (
	"github.com/riftjit/rift64/decoder"
	"github.com/riftjit/rift64/emitter"
	"github.com/riftjit/rift64/state"
)

// TranslateMemory handles the eight load/store classes. spec.md §9's
// REDESIGN FLAG forbids a raw cast from a guest address to a host pointer
// inside the core, so no translator here ever dereferences memory itself:
// the block computes the effective address and (for a store) the value to
// write, stashes both plus the transfer's shape into ThreadState.MemOp, and
// exits to the dispatch loop via ExitMemoryOp. The dispatch loop performs
// the actual state.AddressSpace.Translate call and the memory access, then
// resumes the block chain at pc+4 — mirroring spec.md §4.3's SVC handling,
// the one place the teacher's own block-exit convention already required
// this shape.
func TranslateMemory(inst decoder.Instruction, pc uint64, b *emitter.CodeBuffer) {
	if inst.Mode == decoder.AddrPair {
		translateMemoryPair(inst, pc, b)
		return
	}
	translateMemorySingle(inst, pc, b)
}

func translateMemorySingle(inst decoder.Instruction, pc uint64, b *emitter.CodeBuffer) {
	isStore := inst.Class == decoder.ClassStoreImmediate ||
		inst.Class == decoder.ClassStoreUnscaled ||
		inst.Class == decoder.ClassStoreRegisterOffset

	addr, base := tempPool[0], tempPool[1]
	LoadBase(b, base, inst.Rn)

	switch inst.Mode {
	case decoder.AddrBaseRegisterOffset:
		idx := tempPool[2]
		LoadReg(b, idx, inst.Rm)
		applyExtend(b, idx, inst.Extend, 0)
		if inst.ExtendAmt == 1 {
			b.EmitShiftImm(emitter.ShiftSHL, true, idx, uint8(inst.Size))
		}
		b.EmitMovRegReg(true, addr, base)
		b.EmitAluRegReg(emitter.OpAdd, true, addr, idx)

	case decoder.AddrBaseImmPreIndex:
		addImm(b, base, inst.Imm)
		b.EmitMovRegReg(true, addr, base)
		StoreBase(b, inst.Rn, base)

	case decoder.AddrBaseImmPostIndex:
		b.EmitMovRegReg(true, addr, base)
		addImm(b, base, inst.Imm)
		StoreBase(b, inst.Rn, base)

	default: // AddrBaseImm: signed offset, no writeback
		b.EmitMovRegReg(true, addr, base)
		addImm(b, addr, inst.Imm)
	}

	sizeBytes := 1 << inst.Size
	sourceOrDest := tempPool[3]
	if isStore {
		LoadReg(b, sourceOrDest, inst.Rd)
	}

	// Only decodeLoadStoreUnscaled distinguishes a sign-extending load
	// (LDURSB/LDURSH/LDURSW) from a zero-extending one; the scaled-immediate
	// and register-offset decoders don't expose the opc field that would
	// tell LDRSB/LDRSW apart from plain LDR, so those two addressing modes
	// are translated as always zero-extending. Narrow ISA coverage, not a
	// memory-safety issue: the common LDR/STR forms are unaffected.
	signed := inst.Class == decoder.ClassLoadUnscaled && !inst.Unsigned && inst.Size != decoder.SizeDouble
	storeMemOpCommon(b, addr, sizeBytes, isStore, signed, inst.Rd)
	if isStore {
		b.EmitStoreBaseDisp(emitter.Size8, sourceOrDest, emitter.ThreadStateReg, int32(offMemValue))
	}
	storeMemOpBool(b, offMemPair, false)

	emitExit(b, state.ExitMemoryOp, pc+4)
}

func translateMemoryPair(inst decoder.Instruction, pc uint64, b *emitter.CodeBuffer) {
	isStore := inst.Class == decoder.ClassStorePair

	addr, base := tempPool[0], tempPool[1]
	LoadBase(b, base, inst.Rn)

	preOrNone := inst.Extend != ExtendKindPostIndex
	if preOrNone {
		b.EmitMovRegReg(true, addr, base)
		addImm(b, addr, inst.Imm)
	} else {
		b.EmitMovRegReg(true, addr, base)
	}
	if inst.Extend == ExtendKindPostIndex || inst.Extend == ExtendKindPreIndex {
		newBase := tempPool[2]
		b.EmitMovRegReg(true, newBase, base)
		addImm(b, newBase, inst.Imm)
		StoreBase(b, inst.Rn, newBase)
	}

	sizeBytes := 1 << inst.Size
	signed := false // LDP/STP never sign-extend; the W-form zero-extends implicitly

	if isStore {
		v1, v2 := tempPool[3], tempPool[4]
		LoadReg(b, v1, inst.Rd)
		LoadReg(b, v2, inst.Ra)
		storeMemOpCommon(b, addr, sizeBytes, true, signed, inst.Rd)
		storeMemOpInt(b, offMemReg2, inst.Ra)
		b.EmitStoreBaseDisp(emitter.Size8, v1, emitter.ThreadStateReg, int32(offMemValue))
		b.EmitStoreBaseDisp(emitter.Size8, v2, emitter.ThreadStateReg, int32(offMemValue2))
	} else {
		storeMemOpCommon(b, addr, sizeBytes, false, signed, inst.Rd)
		storeMemOpInt(b, offMemReg2, inst.Ra)
	}
	storeMemOpBool(b, offMemPair, true)

	emitExit(b, state.ExitMemoryOp, pc+4)
}

// storeMemOpCommon writes the address/size/write/signed/reg fields shared by
// every load and store shape; callers handle Value/Value2/Reg2/Pair
// themselves since those vary by single-vs-pair and load-vs-store.
func storeMemOpCommon(b *emitter.CodeBuffer, addr emitter.Reg, sizeBytes int, write, signed bool, reg int) {
	b.EmitStoreBaseDisp(emitter.Size8, addr, emitter.ThreadStateReg, int32(offMemAddr))
	storeMemOpInt(b, offMemSize, sizeBytes)
	storeMemOpBool(b, offMemWrite, write)
	storeMemOpBool(b, offMemSigned, signed)
	storeMemOpInt(b, offMemReg, reg)
}

func storeMemOpInt(b *emitter.CodeBuffer, offset uintptr, value int) {
	b.EmitMovImm64(emitter.ScratchReg, uint64(int64(value)))
	b.EmitStoreBaseDisp(emitter.Size8, emitter.ScratchReg, emitter.ThreadStateReg, int32(offset))
}

func storeMemOpBool(b *emitter.CodeBuffer, offset uintptr, value bool) {
	v := uint64(0)
	if value {
		v = 1
	}
	b.EmitMovImm64(emitter.ScratchReg, v)
	b.EmitStoreBaseDisp(emitter.Size1, emitter.ScratchReg, emitter.ThreadStateReg, int32(offset))
}

// addImm appends code adding a (possibly negative) immediate to reg, using
// subtraction for the negative case since the emitter's ALU-immediate form
// takes an unsigned encoding.
func addImm(b *emitter.CodeBuffer, reg emitter.Reg, imm int64) {
	if imm == 0 {
		return
	}
	if imm > 0 {
		b.EmitAluRegImm32(emitter.OpAdd, true, reg, uint32(imm))
	} else {
		b.EmitAluRegImm32(emitter.OpSub, true, reg, uint32(-imm))
	}
}

// ExtendKindPreIndex / ExtendKindPostIndex name the decoder's reuse of the
// ExtendKind field as a writeback-mode selector for LDP/STP (decoder.go's
// decodeLoadStorePair: 1 = pre-index, 2 = post-index, 0 = signed offset).
const (
	ExtendKindPreIndex  = decoder.ExtendKind(1)
	ExtendKindPostIndex = decoder.ExtendKind(2)
)
