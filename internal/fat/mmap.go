package fat

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFAT maps the first n bytes of f for shared read/write, per spec.md
// 4.5's mount contract ("memory-maps the FAT region for shared read/write").
func mmapFAT(f *os.File, n int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// msync flushes a memory-mapped region back to its backing file.
func msync(b []byte) error {
	return unix.Msync(b, unix.MS_SYNC)
}

// munmapFAT releases a mapping obtained from mmapFAT.
func munmapFAT(b []byte) error {
	return unix.Munmap(b)
}
