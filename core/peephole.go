package core

import "github.com/riftjit/rift64/emitter"

// peephole applies the one post-emission cleanup this core performs (spec.md
// §1's non-goal carves out exactly "optimization beyond a narrow peephole")
// and returns the block's final host byte length.
func peephole(b *emitter.CodeBuffer) int {
	folded := emitter.FoldRedundantStoreLoad(b.Bytes())
	b.Rewrite(folded)
	return b.Len()
}
