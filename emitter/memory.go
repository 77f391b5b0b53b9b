package emitter

// AccessSize names the width of a memory access (spec.md §4.2 "memory
// load/store with base+offset and base+index forms for sizes {1,2,4,8}").
type AccessSize int

const (
	Size1 AccessSize = 1
	Size2 AccessSize = 2
	Size4 AccessSize = 4
	Size8 AccessSize = 8
)

// EmitLoadBaseDisp appends `dst = *(size *)(base + disp32)`, zero-extended
// to the full register width for sizes below 8.
func (b *CodeBuffer) EmitLoadBaseDisp(size AccessSize, dst, base Reg, disp int32) {
	mem := memOperand{Base: base, Disp: disp}
	switch size {
	case Size1:
		b.emitMemOpMOVZXByte(dst, mem)
	case Size2:
		b.emitMemOpMOVZXWord(dst, mem)
	case Size4:
		b.emitMemOp(false, false, []byte{0x8B}, dst, mem)
	case Size8:
		b.emitMemOp(true, false, []byte{0x8B}, dst, mem)
	}
}

// EmitLoadBaseDispSigned appends a sign-extending load of the given size
// into a full-width destination (spec.md §4.3 "Sign-extending loads").
func (b *CodeBuffer) EmitLoadBaseDispSigned(size AccessSize, w bool, dst, base Reg, disp int32) {
	mem := memOperand{Base: base, Disp: disp}
	switch size {
	case Size1:
		b.emitMemOpMOVSXByte(w, dst, mem)
	case Size2:
		b.emitMemOpMOVSXWord(w, dst, mem)
	case Size4:
		b.emitMemOpMOVSXDword(dst, mem)
	case Size8:
		b.emitMemOp(true, false, []byte{0x8B}, dst, mem)
	}
}

// EmitStoreBaseDisp appends `*(size *)(base + disp32) = src`.
func (b *CodeBuffer) EmitStoreBaseDisp(size AccessSize, src, base Reg, disp int32) {
	mem := memOperand{Base: base, Disp: disp}
	switch size {
	case Size1:
		b.emitMemOpByte(0x88, src, mem)
	case Size2:
		b.emitMemOp(false, true, []byte{0x89}, src, mem)
	case Size4:
		b.emitMemOp(false, false, []byte{0x89}, src, mem)
	case Size8:
		b.emitMemOp(true, false, []byte{0x89}, src, mem)
	}
}

// EmitLoadBaseIndex appends `dst = *(size *)(base + index*scale)` for the
// register+extend/shift addressing mode (spec.md §4.3 "register with
// optional extension").
func (b *CodeBuffer) EmitLoadBaseIndex(size AccessSize, dst, base, index Reg, scale byte) {
	mem := memOperand{Base: base, Index: index, Scale: scale, HasIndex: true}
	switch size {
	case Size1:
		b.emitMemOpMOVZXByte(dst, mem)
	case Size2:
		b.emitMemOpMOVZXWord(dst, mem)
	case Size4:
		b.emitMemOp(false, false, []byte{0x8B}, dst, mem)
	case Size8:
		b.emitMemOp(true, false, []byte{0x8B}, dst, mem)
	}
}

// EmitStoreBaseIndex appends `*(size *)(base + index*scale) = src`.
func (b *CodeBuffer) EmitStoreBaseIndex(size AccessSize, src, base, index Reg, scale byte) {
	mem := memOperand{Base: base, Index: index, Scale: scale, HasIndex: true}
	switch size {
	case Size1:
		b.emitMemOpByte(0x88, src, mem)
	case Size2:
		b.emitMemOp(false, true, []byte{0x89}, src, mem)
	case Size4:
		b.emitMemOp(false, false, []byte{0x89}, src, mem)
	case Size8:
		b.emitMemOp(true, false, []byte{0x89}, src, mem)
	}
}

// byte-sized register-direct forms need a REX prefix whenever any operand
// register is R8-R15, same machinery as emitMemOp but with the MOVZX/MOVSX
//0F-prefixed opcodes which are always full-width destinations.

func (b *CodeBuffer) emitMemOpMOVZXByte(dst Reg, mem memOperand) {
	b.emitMemOp(true, false, []byte{0x0F, 0xB6}, dst, mem)
}
func (b *CodeBuffer) emitMemOpMOVZXWord(dst Reg, mem memOperand) {
	b.emitMemOp(true, false, []byte{0x0F, 0xB7}, dst, mem)
}
func (b *CodeBuffer) emitMemOpMOVSXByte(w bool, dst Reg, mem memOperand) {
	b.emitMemOp(w, false, []byte{0x0F, 0xBE}, dst, mem)
}
func (b *CodeBuffer) emitMemOpMOVSXWord(w bool, dst Reg, mem memOperand) {
	b.emitMemOp(w, false, []byte{0x0F, 0xBF}, dst, mem)
}
func (b *CodeBuffer) emitMemOpMOVSXDword(dst Reg, mem memOperand) {
	b.emitMemOp(true, false, []byte{0x63}, dst, mem)
}
func (b *CodeBuffer) emitMemOpByte(opcode byte, regField Reg, mem memOperand) {
	b.emitMemOp(false, false, []byte{opcode}, regField, mem)
}

// EmitPush appends `push reg` (64-bit, implicit operand size on x86_64).
func (b *CodeBuffer) EmitPush(reg Reg) {
	if needsRexB(reg) {
		b.append(rexByte(false, false, false, true))
	}
	b.append(0x50 + byte(reg)&7)
}

// EmitPop appends `pop reg`.
func (b *CodeBuffer) EmitPop(reg Reg) {
	if needsRexB(reg) {
		b.append(rexByte(false, false, false, true))
	}
	b.append(0x58 + byte(reg)&7)
}
