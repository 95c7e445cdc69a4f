// Package fat implements the PennOS FAT-style filesystem (spec.md 3 and
// 4.5): a disk image holding a memory-mapped FAT table followed by a data
// region of fixed-size blocks, a single root directory chained through the
// FAT, and a global open-file table referenced by the two-level
// file-descriptor model internal/syscall builds on top of it.
package fat

import (
	"os"

	deadlock "github.com/sasha-s/go-deadlock"
)

// Sentinel FAT entry values (spec.md 3).
const (
	blockFree uint16 = 0
	blockLast uint16 = 0xFFFF
)

// blockSizes is the block_size_config lookup table (spec.md 3: "0..4 →
// 256,512,1024,2048,4096").
var blockSizes = [5]int{256, 512, 1024, 2048, 4096}

// EntryType distinguishes directory entry kinds. PennOS has no
// subdirectories, so TypeRegular is the only kind real files use;
// TypeSynthetic marks the stdin/stdout/stderr descriptors mount creates
// outside the on-disk directory.
type EntryType uint8

const (
	TypeRegular EntryType = iota
	TypeSynthetic
)

// Name byte-0 markers (spec.md 3).
const (
	nameEnd          byte = 0
	nameDeleted      byte = 1
	nameDeletedInUse byte = 2
)

// Permission bits (spec.md 3).
const (
	PermRead  = 4
	PermWrite = 2
	PermExec  = 1
)

// OpenMode is the mode open(2) was called with.
type OpenMode int

const (
	ModeRead OpenMode = iota
	ModeWrite
	ModeAppend
)

// MaxOpenSlots bounds the global open-file table.
const MaxOpenSlots = 64

// dirEntrySize is the fixed on-disk directory entry size (spec.md 3).
const dirEntrySize = 64

// DirEntry is the 64-byte on-disk directory entry (spec.md 3, 6).
// name(32) + size(4) + first_block(2) + type(1) + perm(1) + mtime(4) +
// reserved(20) = 64 bytes.
type DirEntry struct {
	Name       [32]byte
	Size       uint32
	FirstBlock uint16
	Type       EntryType
	Perm       uint8
	Mtime      uint32
	_          [20]byte
}

func (e *DirEntry) nameString() string {
	n := 0
	for n < len(e.Name) && e.Name[n] != 0 {
		n++
	}
	return string(e.Name[:n])
}

func (e *DirEntry) setName(name string) {
	e.Name = [32]byte{}
	copy(e.Name[:], name)
}

// OpenFileSlot is one entry of the global open-file table (spec.md 3).
type OpenFileSlot struct {
	Used      bool
	Synthetic bool
	Name      string // synthetic slots only ("stdin"/"stdout"/"stderr")

	EntryIndex   int // index into FS.dir, valid when !Synthetic
	CurrentBlock uint16
	Offset       int64
	Mode         OpenMode
	RefCount     int
}

// FS is a mounted PennOS filesystem. All fields are guarded by mu; the
// concurrency note in spec.md 5 applies equally here since the FAT, root
// directory, and open-file table are shared by every process.
type FS struct {
	mu deadlock.Mutex

	path string
	file *os.File

	fatMmap   []byte
	blockSize int
	fatBlocks int

	fatEntries int
	dataBlocks int
	dataStart  int64

	dir      []DirEntry
	dirBlocks []uint16 // chain of block numbers backing dir, in order

	open [MaxOpenSlots]OpenFileSlot

	mounted bool
}

func (fs *FS) entriesPerBlock() int { return fs.blockSize / dirEntrySize }

func blockSizeConfigFor(size int) (int, bool) {
	for cfg, sz := range blockSizes {
		if sz == size {
			return cfg, true
		}
	}
	return 0, false
}
