package hostsyscall

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riftjit/rift64/guestmem"
	"github.com/riftjit/rift64/state"
)

func newThread(t *testing.T) (*state.ThreadState, *guestmem.Space) {
	t.Helper()
	mem := guestmem.New()
	_, err := mem.Map(0x10000, 0x1000, state.ProtRead|state.ProtWrite)
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	ts := &state.ThreadState{Mem: mem}
	return ts, mem
}

func TestDispatchWriteForwardsToFD(t *testing.T) {
	ts, mem := newThread(t)
	require.NoError(t, mem.LoadImage(0x10000, []byte("hi\n")))

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	ts.Syscall.Number = sysWrite
	ts.General[0] = uint64(w.Fd())
	ts.General[1] = 0x10000
	ts.General[2] = 3

	exited, _ := Dispatch(ts)
	w.Close()
	require.False(t, exited)
	require.Equal(t, uint64(3), ts.General[0])

	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hi\n", string(buf[:n]))
}

func TestDispatchExitReportsCode(t *testing.T) {
	ts, _ := newThread(t)
	ts.Syscall.Number = sysExit
	ts.General[0] = 7

	exited, code := Dispatch(ts)
	require.True(t, exited)
	require.Equal(t, 7, code)
}

func TestDispatchUnknownSyscallReturnsENOSYS(t *testing.T) {
	ts, _ := newThread(t)
	ts.Syscall.Number = 0xffff

	exited, _ := Dispatch(ts)
	require.False(t, exited)
	require.Equal(t, uint64(int64(-int32(38))), ts.General[0]) // ENOSYS == 38 on linux/amd64
}

func TestDispatchReadFaultsOnUnmappedBuffer(t *testing.T) {
	ts, _ := newThread(t)
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ts.Syscall.Number = sysRead
	ts.General[0] = uint64(r.Fd())
	ts.General[1] = 0xdead0000 // not mapped
	ts.General[2] = 16

	exited, _ := Dispatch(ts)
	require.False(t, exited)
	require.Equal(t, int32(14), ts.Syscall.Errno) // EFAULT == 14 on linux/amd64
}
