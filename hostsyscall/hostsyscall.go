// Package hostsyscall implements the syscall veneer spec.md §1(b) assumes:
// "a single dispatch_syscall(thread_state) entry." TranslateSupervisorCall
// stashes the guest's syscall number (read from X8, the Linux AArch64
// convention) into ThreadState.Syscall before exiting; Dispatch here forwards
// a narrow subset of that number space to the real host kernel via
// golang.org/x/sys/unix and writes the result back into ThreadState.Syscall
// and X0, the same split between "VM integrity" and "expected operation
// failure" the teacher's vm/syscall.go documents, adapted to the Linux
// calling convention (negative errno in X0, not a teacher-specific sentinel).
package hostsyscall

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/riftjit/rift64/state"
)

// Linux AArch64 syscall numbers for the narrow set this veneer forwards.
// Full coverage of the syscall table is explicitly out of scope; unhandled
// numbers return -ENOSYS, matching what a real kernel does for an unknown
// syscall rather than halting the guest.
const (
	sysRead  = 63
	sysWrite = 64
	sysExit  = 93
	sysExitGroup = 94
)

// Dispatch services one guest SVC, reading ThreadState.Syscall.Number and
// the argument registers X0-X2 (the only arguments the implemented syscalls
// take under the AArch64 syscall convention) and writing the result back into Syscall.Result/Errno
// and guest X0. It reports whether the guest asked to terminate the process
// (exit/exit_group), in which case the caller should stop the dispatch loop
// rather than resume translation.
func Dispatch(ts *state.ThreadState) (exited bool, exitCode int) {
	num := ts.Syscall.Number
	a0, a1, a2 := ts.General[0], ts.General[1], ts.General[2]

	switch num {
	case sysExit, sysExitGroup:
		return true, int(int32(a0))

	case sysRead:
		n, errno := doRead(ts, a0, a1, a2)
		setResult(ts, n, errno)

	case sysWrite:
		n, errno := doWrite(ts, a0, a1, a2)
		setResult(ts, n, errno)

	default:
		setResult(ts, 0, int32(unix.ENOSYS))
	}
	return false, 0
}

func setResult(ts *state.ThreadState, result uint64, errno int32) {
	if errno != 0 {
		ts.Syscall.Result = uint64(int64(-errno))
		ts.Syscall.Errno = errno
	} else {
		ts.Syscall.Result = result
		ts.Syscall.Errno = 0
	}
	ts.General[0] = ts.Syscall.Result
}

func doRead(ts *state.ThreadState, fd, bufAddr, count uint64) (uint64, int32) {
	buf, ok := guestSlice(ts, bufAddr, int(count), true)
	if !ok {
		return 0, int32(unix.EFAULT)
	}
	n, err := unix.Read(int(fd), buf)
	if err != nil {
		return 0, errnoOf(err)
	}
	return uint64(n), 0
}

func doWrite(ts *state.ThreadState, fd, bufAddr, count uint64) (uint64, int32) {
	buf, ok := guestSlice(ts, bufAddr, int(count), false)
	if !ok {
		return 0, int32(unix.EFAULT)
	}
	n, err := unix.Write(int(fd), buf)
	if err != nil {
		return 0, errnoOf(err)
	}
	return uint64(n), 0
}

// guestSlice resolves a guest buffer through the address-translation
// collaborator rather than assuming any particular AddressSpace layout —
// this veneer never cast a guest address to a host pointer on its own
// account, matching the same REDESIGN FLAG the core's memory translators
// observe.
func guestSlice(ts *state.ThreadState, guestAddr uint64, length int, write bool) ([]byte, bool) {
	if length == 0 {
		return nil, true
	}
	host, ok := ts.Mem.Translate(guestAddr, length, write)
	if !ok {
		return nil, false
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(host)), length), true
}

func errnoOf(err error) int32 {
	if errno, ok := err.(unix.Errno); ok {
		return int32(errno)
	}
	return int32(unix.EIO)
}
