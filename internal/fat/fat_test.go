package fat

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arctir/pennos/internal/kernel"
)

func newImage(t *testing.T, fatBlocks, blockSizeConfig int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image")
	require.Equal(t, kernel.OK, Mkfs(path, fatBlocks, blockSizeConfig))
	return path
}

// TestMkfsMountTouchUnmountMountLs exercises spec.md 8's round-trip
// property: "mkfs -> mount -> touch f -> unmount -> mount -> ls reveals f
// with size 0."
func TestMkfsMountTouchUnmountMountLs(t *testing.T) {
	path := newImage(t, 2, 1) // block_size 512

	fs := &FS{}
	require.Equal(t, kernel.OK, fs.Mount(path))
	require.Equal(t, kernel.OK, fs.Touch("f"))
	require.Equal(t, kernel.OK, fs.Unmount())

	fs2 := &FS{}
	require.Equal(t, kernel.OK, fs2.Mount(path))
	defer fs2.Unmount()

	listing, errno := fs2.Ls("f")
	require.Equal(t, kernel.OK, errno)
	require.Len(t, listing, 1)
	require.Equal(t, uint32(0), listing[0].Size)
}

// TestWriteThenReadRoundTrips exercises "write(f, s) then read(f, |s|)
// from offset 0 returns s."
func TestWriteThenReadRoundTrips(t *testing.T) {
	path := newImage(t, 2, 2) // block_size 1024
	fs := &FS{}
	require.Equal(t, kernel.OK, fs.Mount(path))
	defer fs.Unmount()

	slot, errno := fs.Open("f", ModeWrite)
	require.Equal(t, kernel.OK, errno)
	payload := []byte("hello, pennos filesystem, spanning more than one block maybe")
	_, errno = fs.Write(slot, payload)
	require.Equal(t, kernel.OK, errno)
	fs.Close(slot)

	rslot, errno := fs.Open("f", ModeRead)
	require.Equal(t, kernel.OK, errno)
	defer fs.Close(rslot)
	got, errno := fs.Read(rslot, len(payload))
	require.Equal(t, kernel.OK, errno)
	require.Equal(t, string(payload), string(got))
}

// TestDiskFull exercises spec.md 8 scenario 4: mkfs(1,0) -> block_size
// 256, fat_entries 128, data_blocks 127. Block 1 of those 127 is
// permanently occupied by the root directory (spec.md 3: "the root
// directory ... stored on the chain beginning at block 1"), so a single
// file can occupy at most the remaining 126 blocks; writing that capacity
// succeeds, the next byte fails with disk full, and size stops growing.
func TestDiskFull(t *testing.T) {
	path := newImage(t, 1, 0)
	fs := &FS{}
	require.Equal(t, kernel.OK, fs.Mount(path))
	defer fs.Unmount()

	require.Equal(t, 127, fs.dataBlocks)

	slot, errno := fs.Open("big", ModeWrite)
	require.Equal(t, kernel.OK, errno)
	capacity := 126 * 256
	payload := make([]byte, capacity)
	for i := range payload {
		payload[i] = byte(i)
	}
	_, errno = fs.Write(slot, payload)
	require.Equal(t, kernel.OK, errno)

	_, errno = fs.Write(slot, []byte{0xAA})
	require.Equal(t, kernel.ErrResourceExhausted, errno)
	require.Equal(t, capacity, int(fs.dir[fs.open[slot].EntryIndex].Size))
}

// TestDeleteWhileOpenDefersRelease exercises spec.md 8 scenario 5.
func TestDeleteWhileOpenDefersRelease(t *testing.T) {
	path := newImage(t, 2, 1)
	fs := &FS{}
	require.Equal(t, kernel.OK, fs.Mount(path))
	defer fs.Unmount()

	wslot, _ := fs.Open("f", ModeWrite)
	fs.Write(wslot, []byte("data"))
	fs.Close(wslot)

	rslot, errno := fs.Open("f", ModeRead)
	require.Equal(t, kernel.OK, errno)

	require.Equal(t, kernel.OK, fs.Unlink("f"))

	_, errno = fs.Ls("f")
	require.NotEqual(t, kernel.OK, errno, "expected f to be invisible to Ls after unlink")
	_, errno = fs.Open("f", ModeRead)
	require.Equal(t, kernel.ErrNotFound, errno)

	require.Equal(t, kernel.OK, fs.Close(rslot))
}

// TestChmodRoundTripLeavesPermUnchanged exercises spec.md 8's idempotence
// property: "chmod \"+r\" f; chmod \"-r\" f leaves perm unchanged."
func TestChmodRoundTripLeavesPermUnchanged(t *testing.T) {
	path := newImage(t, 2, 1)
	fs := &FS{}
	require.Equal(t, kernel.OK, fs.Mount(path))
	defer fs.Unmount()

	require.Equal(t, kernel.OK, fs.Touch("f"))
	// A new file starts with read and write set; clear read first so the
	// "+r" step stays inside chmod's 0..7 range.
	require.Equal(t, kernel.OK, fs.Chmod("f", -PermRead))
	before, errno := fs.Perm("f")
	require.Equal(t, kernel.OK, errno)

	require.Equal(t, kernel.OK, fs.Chmod("f", PermRead))
	require.Equal(t, kernel.OK, fs.Chmod("f", -PermRead))

	after, errno := fs.Perm("f")
	require.Equal(t, kernel.OK, errno)
	require.Equal(t, before, after)
}

// TestOpenWriteOnExistingFileTruncates exercises spec.md 8's quantified
// invariant: "open(f, WRITE) on an existing file resets size to 0 and
// releases its non-head blocks to FREE."
func TestOpenWriteOnExistingFileTruncates(t *testing.T) {
	path := newImage(t, 2, 2) // block_size 1024
	fs := &FS{}
	require.Equal(t, kernel.OK, fs.Mount(path))
	defer fs.Unmount()

	slot, errno := fs.Open("f", ModeWrite)
	require.Equal(t, kernel.OK, errno)
	payload := make([]byte, 3*1024) // spans three blocks
	_, errno = fs.Write(slot, payload)
	require.Equal(t, kernel.OK, errno)
	require.Equal(t, kernel.OK, fs.Close(slot))

	freeBefore, _, _ := fs.Df()

	slot2, errno := fs.Open("f", ModeWrite)
	require.Equal(t, kernel.OK, errno)
	require.Equal(t, uint32(0), fs.dir[fs.open[slot2].EntryIndex].Size)
	require.Equal(t, kernel.OK, fs.Close(slot2))

	freeAfter, _, _ := fs.Df()
	require.Greater(t, freeAfter, freeBefore, "expected non-head blocks released to FREE")
}
