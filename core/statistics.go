package core

// Statistics aggregates the execution counters a JIT core tracks, trimmed
// (per SPEC_FULL.md's "Supplemented Features") from the teacher's
// vm/statistics.go PerformanceStatistics down to what a block-granularity
// translator has visibility into: it has no per-guest-instruction cycle
// table since it never single-steps. Translation-cache hit/miss/translation
// counters live on tcache.Cache itself (spec.md §4.7) and are reported
// alongside these via JITContext.Snapshot rather than duplicated here.
type Statistics struct {
	BlocksTranslated       uint64
	InstructionsTranslated uint64
	HostBytesEmitted       uint64
	BlocksExecuted         uint64
	MemoryOpsServiced      uint64
	SyscallsServiced       uint64
	Traps                  uint64
}

// NewStatistics returns a zeroed counter set.
func NewStatistics() *Statistics { return &Statistics{} }

// RecordTranslation is called once per successful translate_block.
func (s *Statistics) RecordTranslation(instrCount, hostBytes int) {
	s.BlocksTranslated++
	s.InstructionsTranslated += uint64(instrCount)
	s.HostBytesEmitted += uint64(hostBytes)
}

// RecordBlockExecuted is called once per host-code invocation from the
// dispatch loop, regardless of whether it ran to a real next PC or an exit
// sentinel.
func (s *Statistics) RecordBlockExecuted() { s.BlocksExecuted++ }

// RecordMemoryOp is called once per ExitMemoryOp the dispatch loop services.
func (s *Statistics) RecordMemoryOp() { s.MemoryOpsServiced++ }

// RecordSyscall is called once per ExitSyscall the dispatch loop services.
func (s *Statistics) RecordSyscall() { s.SyscallsServiced++ }

// RecordTrap is called once per ExitUndefined/ExitBreakpoint/ExitHalt the
// dispatch loop reports to its caller.
func (s *Statistics) RecordTrap() { s.Traps++ }

// Reset zeroes every counter (spec.md §6 jit_reset: "zero statistics").
func (s *Statistics) Reset() { *s = Statistics{} }

// Snapshot combines a JITContext's execution counters with its translation
// cache's hit/miss/translation counters for a single reporting point (the
// shape cmd/rift64's CLI prints at exit).
type Snapshot struct {
	Statistics
	CacheHits             uint64
	CacheMisses           uint64
	CacheBlocksTranslated uint64
}

// Snapshot reads the current counters without mutating them.
func (ctx *JITContext) Snapshot() Snapshot {
	cs := ctx.Cache.Stats()
	return Snapshot{
		Statistics:            *ctx.Stats,
		CacheHits:             cs.Hits,
		CacheMisses:           cs.Misses,
		CacheBlocksTranslated: cs.BlocksTranslated,
	}
}
