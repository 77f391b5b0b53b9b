package emitter

// This file holds the low-level x86_64 encoding helpers (REX prefixes,
// ModRM/SIB bytes) shared by every Emit* primitive. None of it is
// specific to any one instruction family.

func rexByte(w, r, x, bBit bool) byte {
	v := byte(0x40)
	if w {
		v |= 1 << 3
	}
	if r {
		v |= 1 << 2
	}
	if x {
		v |= 1 << 1
	}
	if bBit {
		v |= 1 << 0
	}
	return v
}

func modrm(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | (rm & 7)
}

func needsRexB(r Reg) bool { return r >= R8 }
func needsRexR(r Reg) bool { return r >= R8 }

// emitRegReg appends REX + opcode bytes + a direct-addressing ModRM byte for
// a two-register form "op reg, rm" (Intel order: ModRM.reg, ModRM.rm).
func (b *CodeBuffer) emitRegReg(w bool, opcode []byte, regField, rmField Reg) {
	b.append(rexByte(w, needsRexR(regField), false, needsRexB(rmField)))
	b.append(opcode...)
	b.append(modrm(3, byte(regField), byte(rmField)))
}

// emitRegImm32 appends REX + opcode + ModRM(/ext) for the "group 1"
// reg,imm32 forms (ADD/SUB/AND/OR/XOR/CMP immediate), followed by the
// little-endian imm32.
func (b *CodeBuffer) emitRegImm32(w bool, ext byte, rmField Reg, imm32 uint32) {
	b.append(rexByte(w, false, false, needsRexB(rmField)))
	b.append(0x81)
	b.append(modrm(3, ext, byte(rmField)))
	b.append(byte(imm32), byte(imm32>>8), byte(imm32>>16), byte(imm32>>24))
}

// emitShiftImm appends a C1 /ext shift-by-immediate-8 instruction.
func (b *CodeBuffer) emitShiftImm(w bool, ext byte, rmField Reg, amount uint8) {
	b.append(rexByte(w, false, false, needsRexB(rmField)))
	b.append(0xC1)
	b.append(modrm(3, ext, byte(rmField)))
	b.append(amount)
}

// memOperand describes a base(+disp32) or base+index*scale(+disp32) guest
// memory operand already translated to a host address computed in `base`.
type memOperand struct {
	Base  Reg
	Index Reg // only used if HasIndex
	Scale byte // 0,1,2,3 meaning 1,2,4,8
	Disp  int32
	HasIndex bool
}

// emitMemOp appends REX + opcode + ModRM(+SIB) + disp32 for a register<->
// memory instruction. Disp32 is always emitted (mod=10) to keep relocation
// and disassembly simple, at the cost of a few redundant zero bytes when
// the displacement is small.
func (b *CodeBuffer) emitMemOp(w bool, prefix066 bool, opcode []byte, regField Reg, mem memOperand) {
	if prefix066 {
		b.append(0x66)
	}
	b.append(rexByte(w, needsRexR(regField), mem.HasIndex && needsRexB(mem.Index), needsRexB(mem.Base)))
	b.append(opcode...)
	rm := byte(4) // 100 => SIB follows
	needsSIB := mem.HasIndex || (byte(mem.Base)&7) == 4
	if !needsSIB {
		rm = byte(mem.Base) & 7
		b.append(modrm(2, byte(regField), rm))
	} else {
		b.append(modrm(2, byte(regField), rm))
		index := byte(4) // 100 => none
		scale := mem.Scale
		if mem.HasIndex {
			index = byte(mem.Index) & 7
		} else {
			scale = 0
		}
		b.append(scale<<6 | (index&7)<<3 | (byte(mem.Base) & 7))
	}
	d := uint32(mem.Disp)
	b.append(byte(d), byte(d>>8), byte(d>>16), byte(d>>24))
}
