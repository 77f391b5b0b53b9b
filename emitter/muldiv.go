package emitter

// High-half multiply and divide on x86_64 are two-operand-implicit forms
// (RDX:RAX = RAX * r/m; RAX,RDX = RDX:RAX /% r/m) so, unlike the rest of the
// ALU primitives, these always operate on the fixed RAX/RDX pair. The
// multiply/divide-extend translator is responsible for moving guest
// operands into RAX and reading the result back out of RAX/RDX.

// EmitMulFull appends `RDX:RAX = RAX * src` (unsigned if !signed), used for
// the high-half multiply translators (spec.md §4.3 "High-half multiplies").
func (b *CodeBuffer) EmitMulFull(w, signed bool, src Reg) {
	b.append(rexByte(w, false, false, needsRexB(src)))
	b.append(0xF7)
	ext := byte(4) // MUL
	if signed {
		ext = 5 // IMUL
	}
	b.append(modrm(3, ext, byte(src)))
}

// EmitDiv appends `RAX,RDX = RDX:RAX /% src` (unsigned if !signed). Callers
// must zero (unsigned) or sign-extend into RDX (signed, via CQO/CDQ) before
// calling this, and must special-case a zero divisor themselves per
// spec.md §4.3 ("divisor zero yields zero, not a fault") since the host DIV
// instruction traps on divide-by-zero.
func (b *CodeBuffer) EmitDiv(w, signed bool, src Reg) {
	b.append(rexByte(w, false, false, needsRexB(src)))
	b.append(0xF7)
	ext := byte(6) // DIV
	if signed {
		ext = 7 // IDIV
	}
	b.append(modrm(3, ext, byte(src)))
}

// EmitCqoCdq appends the sign-extension of RAX into RDX:RAX (CQO, 64-bit)
// or EAX into EDX:EAX (CDQ, 32-bit) required before a signed divide.
func (b *CodeBuffer) EmitCqoCdq(w bool) {
	if w {
		b.append(rexByte(true, false, false, false))
	}
	b.append(0x99)
}

// EmitXorSelf appends `reg = 0` via XOR reg,reg, the idiom used to zero RDX
// before an unsigned divide.
func (b *CodeBuffer) EmitXorSelf(w bool, reg Reg) {
	b.emitRegReg(w, []byte{0x31}, reg, reg)
}
