package syscall

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arctir/pennos/internal/fat"
	"github.com/arctir/pennos/internal/jobcontrol"
	"github.com/arctir/pennos/internal/kernel"
	"github.com/arctir/pennos/internal/process"
	"github.com/arctir/pennos/internal/scheduler"
)

type noopNotifier struct{}

func (noopNotifier) BackgroundDone(*kernel.PCB) {}

func newHarness(t *testing.T) (*Table, *kernel.Registry, int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image")
	require.Equal(t, kernel.OK, fat.Mkfs(path, 2, 1))

	fs := &fat.FS{}
	require.Equal(t, kernel.OK, fs.Mount(path))
	t.Cleanup(func() { fs.Unmount() })

	reg := kernel.NewRegistry()
	log, err := kernel.NewLogger("")
	require.NoError(t, err)
	sched := scheduler.New(reg, log, noopNotifier{}, kernel.DefaultConfig().ScheduleRatio)
	ps := process.New(reg, sched, log)
	job := jobcontrol.New(reg, ps)
	tbl := New(fs, ps, job, reg)

	reg.Lock()
	pcb := reg.Create(0, 1, "test", []string{"test"})
	reg.Unlock()

	return tbl, reg, pcb.PID
}

// TestOpenReadWriteCloseRoundTripsThroughTwoLevelFDModel exercises the
// per-process-FD-to-global-slot translation spec.md 4.6 describes: s_open
// allocates the first free per-process slot, s_write/s_read advance the
// per-process offset by the returned count, and s_close releases both.
func TestOpenReadWriteCloseRoundTripsThroughTwoLevelFDModel(t *testing.T) {
	tbl, _, pid := newHarness(t)

	wfd, errno := tbl.SOpen(pid, "greeting", "w")
	require.Equal(t, kernel.OK, errno)
	require.GreaterOrEqual(t, wfd, 3, "expected a per-process fd at or above the reserved 0/1/2")

	n, errno := tbl.SWrite(pid, wfd, []byte("hello"))
	require.Equal(t, kernel.OK, errno)
	require.Equal(t, 5, n)
	require.Equal(t, kernel.OK, tbl.SClose(pid, wfd))

	rfd, errno := tbl.SOpen(pid, "greeting", "r")
	require.Equal(t, kernel.OK, errno)
	buf, errno := tbl.SRead(pid, rfd, 5)
	require.Equal(t, kernel.OK, errno)
	require.Equal(t, "hello", string(buf))
	require.Equal(t, kernel.OK, tbl.SClose(pid, rfd))
}

// TestGlobalSlotRefcountMatchesOpenFDEntries exercises spec.md 8's
// quantified invariant: "the refcount of F's global slot equals the number
// of per-process FD entries pointing to that slot" across two independent
// opens and closes of the same file.
func TestGlobalSlotRefcountMatchesOpenFDEntries(t *testing.T) {
	tbl, reg, pid := newHarness(t)

	require.Equal(t, kernel.OK, tbl.STouch("shared"))

	fd1, errno := tbl.SOpen(pid, "shared", "r")
	require.Equal(t, kernel.OK, errno)
	fd2, errno := tbl.SOpen(pid, "shared", "r")
	require.Equal(t, kernel.OK, errno)
	require.NotEqual(t, fd1, fd2, "expected distinct per-process fds for two opens of the same file")

	reg.RLock()
	pcb := reg.Get(pid)
	slot1 := pcb.FDTable[fd1].GlobalSlot
	slot2 := pcb.FDTable[fd2].GlobalSlot
	reg.RUnlock()
	require.Equal(t, slot1, slot2, "expected both opens to share one global open-file slot")

	require.Equal(t, kernel.OK, tbl.SClose(pid, fd1))
	// The slot must still be usable through the second fd: refcount tracks
	// live per-process entries, so closing one of two never frees the slot
	// out from under the other.
	_, errno = tbl.SRead(pid, fd2, 0)
	require.Equal(t, kernel.OK, errno)
	require.Equal(t, kernel.OK, tbl.SClose(pid, fd2))
}

// TestSOpenRejectsNonPortableFilename exercises spec.md 4.6's filename
// validation ("POSIX portable character set: alphanumerics, ., -, _").
func TestSOpenRejectsNonPortableFilename(t *testing.T) {
	tbl, _, pid := newHarness(t)
	_, errno := tbl.SOpen(pid, "bad name!", "w")
	require.Equal(t, kernel.ErrInvalidArgument, errno)
}
