package core

import "unsafe"

// invokeBlock calls a translated block's host entry point with the SysV
// AMD64 calling convention spec.md §6 fixes: the thread-state pointer in
// RDI, the guest PC (or an ExitReason sentinel) returned in RAX. The
// function body lives in invoke_amd64.s; this is the no-body forward
// declaration Go's assembler linkage requires, the same shape as a JIT's
// call-into-generated-code trampoline.
//
//go:noescape
func invokeBlock(entry uintptr, ts unsafe.Pointer) uint64
