package core

import (
	"unsafe"

	"github.com/riftjit/rift64/hostsyscall"
	"github.com/riftjit/rift64/state"
	"github.com/riftjit/rift64/tcache"
)

// DispatchResult reports how a dispatch loop stopped, per spec.md §6's
// dispatch operation: either the guest asked to exit (Exited, carrying its
// exit code) or the loop ran out of work because the caller's step budget
// was exhausted (more blocks remain at NextPC).
type DispatchResult struct {
	Exited   bool
	ExitCode int
	NextPC   uint64
}

// Dispatch implements translate-and-run: it looks up or translates the
// block at ts.PC, invokes its host code, and handles whatever the block
// returns — either a real next guest PC (loop again) or one of the
// state.ExitReason sentinels, which it services itself (memory op, syscall)
// or reports as a guest trap (spec.md §4.9). maxSteps bounds the number of
// blocks run in one call so a caller (the CLI, a debugger single-step
// command) can regain control periodically; zero means run until the guest
// exits or traps.
func (ctx *JITContext) Dispatch(mem state.AddressSpace, ts *state.ThreadState, maxSteps int) (DispatchResult, error) {
	ts.Mem = mem
	var prev *tcache.Block

	for steps := 0; maxSteps <= 0 || steps < maxSteps; steps++ {
		if ts.PC == StopSentinel {
			return DispatchResult{Exited: true, NextPC: ts.PC}, nil
		}

		block, err := ctx.TranslateBlock(mem, ts.PC)
		if err != nil {
			return DispatchResult{}, err
		}

		if ctx.enableChaining && prev != nil {
			ctx.Cache.Link(prev, block)
		}

		entryPC := ts.PC
		raw := invokeBlock(block.HostEntry, unsafe.Pointer(ts))
		block.ExecuteCount++
		ctx.Stats.RecordBlockExecuted()
		ctx.Trace.Record(TraceEntry{GuestPC: entryPC, HostEntry: block.HostEntry, InstrCount: block.GuestInstrCount})

		if raw == StopSentinel {
			ts.PC = raw
			return DispatchResult{Exited: true, NextPC: ts.PC}, nil
		}

		if !state.IsExitReason(raw) {
			ts.PC = raw
			if ctx.enableChaining {
				prev = block
			}
			continue
		}

		switch state.ExitReason(raw) {
		case state.ExitMemoryOp:
			if err := ctx.serviceMemOp(ts); err != nil {
				return DispatchResult{}, err
			}
			prev = nil
			continue

		case state.ExitSyscall:
			ctx.Stats.RecordSyscall()
			exited, code := hostsyscall.Dispatch(ts)
			if exited {
				return DispatchResult{Exited: true, ExitCode: code, NextPC: ts.PC}, nil
			}
			prev = nil
			continue

		case state.ExitUndefined, state.ExitHalt, state.ExitBreakpoint:
			ctx.Stats.RecordTrap()
			return DispatchResult{}, &ErrGuestTrap{Reason: state.ExitReason(raw), PC: ts.PC}

		default:
			return DispatchResult{}, &Error{Op: "dispatch", Status: StatusFault}
		}
	}

	return DispatchResult{NextPC: ts.PC}, nil
}

func (ctx *JITContext) serviceMemOp(ts *state.ThreadState) error {
	ctx.Stats.RecordMemoryOp()
	op := &ts.MemOp
	host, ok := ts.Mem.Translate(op.Addr, op.Size, op.Write)
	if !ok {
		return &ErrGuestTrap{Reason: state.ExitMemoryOp, PC: ts.PC}
	}
	if op.Write {
		storeHost(host, op.Size, op.Value)
		if op.Pair {
			host2, ok2 := ts.Mem.Translate(op.Addr+uint64(op.Size), op.Size, true)
			if !ok2 {
				return &ErrGuestTrap{Reason: state.ExitMemoryOp, PC: ts.PC}
			}
			storeHost(host2, op.Size, op.Value2)
		}
		return nil
	}

	val := loadHost(host, op.Size, op.Signed)
	ts.SetReg(op.Reg, val)
	if op.Pair {
		host2, ok2 := ts.Mem.Translate(op.Addr+uint64(op.Size), op.Size, false)
		if !ok2 {
			return &ErrGuestTrap{Reason: state.ExitMemoryOp, PC: ts.PC}
		}
		val2 := loadHost(host2, op.Size, op.Signed)
		ts.SetReg(op.Reg2, val2)
	}
	return nil
}

func storeHost(host uintptr, size int, value uint64) {
	p := unsafe.Pointer(host)
	switch size {
	case 1:
		*(*uint8)(p) = uint8(value)
	case 2:
		*(*uint16)(p) = uint16(value)
	case 4:
		*(*uint32)(p) = uint32(value)
	case 8:
		*(*uint64)(p) = value
	}
}

func loadHost(host uintptr, size int, signed bool) uint64 {
	p := unsafe.Pointer(host)
	switch size {
	case 1:
		v := *(*uint8)(p)
		if signed {
			return uint64(int64(int8(v)))
		}
		return uint64(v)
	case 2:
		v := *(*uint16)(p)
		if signed {
			return uint64(int64(int16(v)))
		}
		return uint64(v)
	case 4:
		v := *(*uint32)(p)
		if signed {
			return uint64(int64(int32(v)))
		}
		return uint64(v)
	case 8:
		return *(*uint64)(p)
	}
	return 0
}
