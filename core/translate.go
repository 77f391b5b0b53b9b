package core

import (
	"github.com/riftjit/rift64/state"
	"github.com/riftjit/rift64/tcache"
	"github.com/riftjit/rift64/xlate"
)

// Lookup implements translation_lookup: a cache hit returns the block's
// descriptor (its HostEntry field is the host entry pointer), a miss
// returns ok=false.
func (ctx *JITContext) Lookup(guestPC uint64) (*tcache.Block, bool) {
	return ctx.Cache.Lookup(guestPC)
}

// Invalidate implements translation_invalidate.
func (ctx *JITContext) Invalidate(guestPC uint64) bool {
	return ctx.Cache.Invalidate(guestPC)
}

// Flush implements translation_flush.
func (ctx *JITContext) Flush() {
	ctx.Cache.Flush()
}

// TranslateBlock implements translate_block: run the xlate block translator
// starting at guestPC into a fresh code-cache allocation, apply the narrow
// peephole pass, commit the pages read+execute, and insert the result into
// the translation cache. A cache hit at guestPC short-circuits straight to
// the existing descriptor rather than re-translating (spec.md §8 property,
// scenario S3).
func (ctx *JITContext) TranslateBlock(mem state.AddressSpace, guestPC uint64) (*tcache.Block, error) {
	if b, ok := ctx.Cache.Lookup(guestPC); ok {
		return b, nil
	}

	b, at, err := ctx.newCodeBuffer(0)
	if err != nil {
		return nil, err
	}

	instrCount, byteLen, xerr := xlate.TranslateBlock(mem, guestPC, b)
	if xerr != nil {
		return nil, &Error{Op: "translate_block", Status: StatusBufferOverflow, Cause: xerr}
	}

	hostLen := peephole(b)

	if err := ctx.Code.Commit(at, hostLen); err != nil {
		return nil, &Error{Op: "translate_block", Status: StatusFault, Cause: err}
	}

	hostEntry := ctx.Code.Base() + uintptr(at)
	block := ctx.Cache.Insert(guestPC, hostEntry, hostLen, instrCount, byteLen)
	ctx.Stats.RecordTranslation(instrCount, hostLen)
	return block, nil
}
