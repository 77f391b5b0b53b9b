// Package core ties the decoder, emitter, xlate, tcache, and codecache
// packages into the external interface spec.md §6 names: JITContext and the
// Translation API (jit_init/jit_reset/jit_cleanup/translation_*/
// translate_block/dispatch), plus the supplementary Statistics, Trace,
// peephole pass, and DumpBlock. guestmem and hostsyscall are wired in here
// only — everything upstream depends solely on state.AddressSpace and never
// imports either package directly, matching the teacher's layering where
// vm.VM is the one package that wires memory and syscalls together.
package core

import (
	"fmt"

	"github.com/riftjit/rift64/codecache"
	"github.com/riftjit/rift64/emitter"
	"github.com/riftjit/rift64/state"
	"github.com/riftjit/rift64/tcache"
)

// Status is the core.Status enum spec.md §7 names (InvalidArgument,
// OutOfMemory, CacheFull, BufferOverflow, Fault), following the teacher's
// encoder.EncodingError pattern of a small typed error carrying context
// rather than a bare sentinel.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidArgument
	StatusOutOfMemory
	StatusCacheFull
	StatusBufferOverflow
	StatusFault
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidArgument:
		return "invalid-argument"
	case StatusOutOfMemory:
		return "out-of-memory"
	case StatusCacheFull:
		return "cache-full"
	case StatusBufferOverflow:
		return "buffer-overflow"
	case StatusFault:
		return "fault"
	default:
		return "unknown-status"
	}
}

// Error wraps a Status with the operation that produced it, following the
// teacher's EncodingError{Op, Cause} shape.
type Error struct {
	Op     string
	Status Status
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("core: %s: %s: %v", e.Op, e.Status, e.Cause)
	}
	return fmt.Sprintf("core: %s: %s", e.Op, e.Status)
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrGuestTrap is returned by Dispatch when a guest BRK/HLT/undefined
// instruction fired (spec.md §7 "guest trap"). PC is the guest address the
// trap fired at.
type ErrGuestTrap struct {
	Reason state.ExitReason
	PC     uint64
}

func (e *ErrGuestTrap) Error() string {
	return fmt.Sprintf("core: guest trap (%s) at pc=0x%x", e.Reason, e.PC)
}

// StopSentinel is the guest PC value dispatch treats as "halt the loop
// cleanly", matching config.Execution.StopSentinel's default. A caller that
// seeds the guest link register (X30) with it makes the program's final RET
// end the loop, as scenario S1 of spec.md §8 exercises.
const StopSentinel uint64 = 0xFFFFFFFFFFFFFFFF

// JITContext is the spec.md §6 jit_context: one code cache, one translation
// table, and the aggregate statistics/trace state a dispatch loop consults
// across many translate_block/dispatch calls.
type JITContext struct {
	Code  *codecache.CodeCache
	Cache *tcache.Cache
	Stats *Statistics
	Trace *Trace

	maxBlockInstructions int
	enableChaining       bool
}

// Options configures a JITContext at construction. Zero values fall back to
// spec.md §6's reference defaults.
type Options struct {
	CodeCacheBytes       int
	TranslationTableSize int
	MaxBlockInstructions int
	EnableChaining       bool
	Trace                *Trace
}

// New implements jit_init: allocate a code cache of the requested size
// (zero means the reference 16 MiB default) and a translation table (zero
// means the reference 4096-entry default). Fails with StatusOutOfMemory if
// either allocation fails.
func New(opts Options) (*JITContext, error) {
	code, err := codecache.New(opts.CodeCacheBytes)
	if err != nil {
		return nil, &Error{Op: "jit_init", Status: StatusOutOfMemory, Cause: err}
	}
	cache, err := tcache.New(opts.TranslationTableSize)
	if err != nil {
		code.Close()
		return nil, &Error{Op: "jit_init", Status: StatusOutOfMemory, Cause: err}
	}

	maxInstr := opts.MaxBlockInstructions
	if maxInstr == 0 {
		maxInstr = 64
	}

	return &JITContext{
		Code:                 code,
		Cache:                cache,
		Stats:                NewStatistics(),
		Trace:                opts.Trace,
		maxBlockInstructions: maxInstr,
		enableChaining:       opts.EnableChaining,
	}, nil
}

// Reset implements jit_reset: flush the translation cache, reset the code
// cache's bump offset, and zero statistics. Allocations (the mmap'd
// regions themselves) are kept.
func (ctx *JITContext) Reset() error {
	ctx.Cache.Flush()
	if err := ctx.Code.Reset(); err != nil {
		return &Error{Op: "jit_reset", Status: StatusFault, Cause: err}
	}
	ctx.Cache.ResetStats()
	ctx.Stats.Reset()
	return nil
}

// Close implements jit_cleanup: release the translation table (garbage
// collected along with the JITContext itself) and unmap the code cache.
func (ctx *JITContext) Close() error {
	if err := ctx.Code.Close(); err != nil {
		return &Error{Op: "jit_cleanup", Status: StatusFault, Cause: err}
	}
	return nil
}

// newCodeBuffer carves out a fresh page-aligned allocation for one block
// translation attempt, sized generously enough that ordinary blocks never
// overflow it (emitter.CodeBuffer itself enforces the hard cap via
// Overflowed).
func (ctx *JITContext) newCodeBuffer(hint int) (*emitter.CodeBuffer, int, error) {
	if hint <= 0 {
		hint = ctx.maxBlockInstructions * 64 // generous per-instruction byte budget
	}
	backing, at, err := ctx.Code.AllocBlock(hint)
	if err != nil {
		return nil, 0, &Error{Op: "translate_block", Status: StatusOutOfMemory, Cause: err}
	}
	return emitter.NewCodeBuffer(backing), at, nil
}
