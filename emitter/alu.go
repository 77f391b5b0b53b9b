package emitter

// AluOp names the register-register and register-immediate ALU operations
// the per-class translators need (spec.md §4.2).
type AluOp int

const (
	OpAdd AluOp = iota
	OpSub
	OpAnd
	OpOr
	OpXor
)

var aluOpcodeRegReg = map[AluOp]byte{
	OpAdd: 0x01,
	OpSub: 0x29,
	OpAnd: 0x21,
	OpOr:  0x09,
	OpXor: 0x31,
}

var aluExtImm = map[AluOp]byte{
	OpAdd: 0,
	OpSub: 5,
	OpAnd: 4,
	OpOr:  1,
	OpXor: 6,
}

// EmitAluRegReg appends `dst = dst OP src` (64-bit if w, else 32-bit).
func (b *CodeBuffer) EmitAluRegReg(op AluOp, w bool, dst, src Reg) {
	b.emitRegReg(w, []byte{aluOpcodeRegReg[op]}, src, dst)
}

// EmitAluRegImm32 appends `dst = dst OP imm32` (64-bit if w, else 32-bit,
// sign-extended per the x86_64 group-1 immediate form).
func (b *CodeBuffer) EmitAluRegImm32(op AluOp, w bool, dst Reg, imm32 uint32) {
	b.emitRegImm32(w, aluExtImm[op], dst, imm32)
}

// EmitMovRegReg appends `dst = src`.
func (b *CodeBuffer) EmitMovRegReg(w bool, dst, src Reg) {
	b.emitRegReg(w, []byte{0x89}, src, dst)
}

// EmitMovImm64 appends a single 10-byte MOVABS that realizes an arbitrary
// 64-bit immediate in dst (spec.md §4.2 "load-constant into a host
// register"): x86_64 needs no chained 16-bit moves, and class translators
// rely on this being a single fixed-size primitive regardless of the
// immediate's width. The whole instruction goes through one append, so an
// overflowing call writes nothing.
func (b *CodeBuffer) EmitMovImm64(dst Reg, imm uint64) {
	b.append(rexByte(true, false, false, needsRexB(dst)), 0xB8+byte(dst)&7,
		byte(imm), byte(imm>>8), byte(imm>>16), byte(imm>>24),
		byte(imm>>32), byte(imm>>40), byte(imm>>48), byte(imm>>56))
}

// EmitMovImm32Zero appends `dst32 = imm32`, which on x86_64 implicitly
// zeroes the upper 32 bits of dst — the primitive 32-bit ALU translators
// use for MOVZ's "clear outer bits" semantics.
func (b *CodeBuffer) EmitMovImm32Zero(dst Reg, imm32 uint32) {
	b.append(rexByte(false, false, false, needsRexB(dst)))
	b.append(0xB8 + byte(dst)&7)
	b.append(byte(imm32), byte(imm32>>8), byte(imm32>>16), byte(imm32>>24))
}

// ShiftOp names a shift/rotate family.
type ShiftOp int

const (
	ShiftSHL ShiftOp = iota
	ShiftSHR
	ShiftSAR
	ShiftROR
)

var shiftExt = map[ShiftOp]byte{ShiftSHL: 4, ShiftSHR: 5, ShiftSAR: 7, ShiftROR: 1}

// EmitShiftImm appends `dst = dst SHIFTOP amount`.
func (b *CodeBuffer) EmitShiftImm(op ShiftOp, w bool, dst Reg, amount uint8) {
	b.emitShiftImm(w, shiftExt[op], dst, amount)
}

// EmitCmpRegReg appends a flags-only `lhs - rhs` (CMP), setting host RFLAGS
// so a following EmitJcc/condition translator can read them.
func (b *CodeBuffer) EmitCmpRegReg(w bool, lhs, rhs Reg) {
	b.emitRegReg(w, []byte{0x39}, rhs, lhs)
}

// EmitCmpRegImm32 appends a flags-only `lhs - imm32`.
func (b *CodeBuffer) EmitCmpRegImm32(w bool, lhs Reg, imm32 uint32) {
	b.emitRegImm32(w, 7, lhs, imm32)
}

// EmitTestRegReg appends a flags-only `lhs & rhs` (TEST).
func (b *CodeBuffer) EmitTestRegReg(w bool, lhs, rhs Reg) {
	b.emitRegReg(w, []byte{0x85}, rhs, lhs)
}

// ExtendKind names a sign/zero extension width.
type ExtendKind int

const (
	ExtendZero8 ExtendKind = iota
	ExtendZero16
	ExtendSign8
	ExtendSign16
	ExtendSign32
)

// EmitExtend appends `dst = extend(src)` from the named source width to a
// full 64-bit (or 32-bit if !w) destination.
func (b *CodeBuffer) EmitExtend(kind ExtendKind, w bool, dst, src Reg) {
	switch kind {
	case ExtendZero8:
		b.append(rexByte(w, needsRexR(dst), false, needsRexB(src)))
		b.append(0x0F, 0xB6)
		b.append(modrm(3, byte(dst), byte(src)))
	case ExtendZero16:
		b.append(rexByte(w, needsRexR(dst), false, needsRexB(src)))
		b.append(0x0F, 0xB7)
		b.append(modrm(3, byte(dst), byte(src)))
	case ExtendSign8:
		b.append(rexByte(w, needsRexR(dst), false, needsRexB(src)))
		b.append(0x0F, 0xBE)
		b.append(modrm(3, byte(dst), byte(src)))
	case ExtendSign16:
		b.append(rexByte(w, needsRexR(dst), false, needsRexB(src)))
		b.append(0x0F, 0xBF)
		b.append(modrm(3, byte(dst), byte(src)))
	case ExtendSign32:
		// MOVSXD dst64, src32
		b.append(rexByte(true, needsRexR(dst), false, needsRexB(src)))
		b.append(0x63)
		b.append(modrm(3, byte(dst), byte(src)))
	}
}

// EmitMulLow appends `dst = (dst * src) low bits` (IMUL r64, r/m64), used
// for the 32/64-bit low-half multiply forms.
func (b *CodeBuffer) EmitMulLow(w bool, dst, src Reg) {
	b.append(rexByte(w, needsRexR(dst), false, needsRexB(src)))
	b.append(0x0F, 0xAF)
	b.append(modrm(3, byte(dst), byte(src)))
}
