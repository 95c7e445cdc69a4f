package fat

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/arctir/pennos/internal/kernel"
)

// Mount implements spec.md 4.5's mount. Fails with ErrInUse if fs is
// already mounted.
func (fs *FS) Mount(name string) kernel.Errno {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.mounted {
		return kernel.ErrInUse
	}

	f, err := os.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		return kernel.ErrNotFound
	}

	header := make([]byte, 2)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return kernel.ErrInvalidArgument
	}
	raw := binary.LittleEndian.Uint16(header)
	fatBlocks := int(raw >> 8)
	blockSizeConfig := int(raw & 0xff)
	if blockSizeConfig < 0 || blockSizeConfig > 4 || fatBlocks < 1 || fatBlocks > 32 {
		f.Close()
		return kernel.ErrInvalidArgument
	}
	blockSize := blockSizes[blockSizeConfig]

	mapping, err := mmapFAT(f, fatBlocks*blockSize)
	if err != nil {
		f.Close()
		return kernel.ErrInvalidArgument
	}

	fs.path = name
	fs.file = f
	fs.fatMmap = mapping
	fs.blockSize = blockSize
	fs.fatBlocks = fatBlocks
	fs.fatEntries = fatBlocks * blockSize / 2
	fs.dataBlocks = fs.fatEntries - 1
	fs.dataStart = int64(fatBlocks) * int64(blockSize)

	fs.loadDirectory()
	fs.initSyntheticDescriptors()
	fs.mounted = true
	return kernel.OK
}

// loadDirectory follows the chain from block 1 and decodes every entry in
// every block of the chain into fs.dir.
func (fs *FS) loadDirectory() {
	fs.dirBlocks = fs.chainBlocks(1)
	perBlock := fs.entriesPerBlock()
	fs.dir = make([]DirEntry, 0, len(fs.dirBlocks)*perBlock)
	raw := make([]byte, fs.blockSize)
	for _, block := range fs.dirBlocks {
		fs.file.ReadAt(raw, fs.blockOffset(block))
		fs.dir = append(fs.dir, decodeDirBlock(raw, perBlock)...)
	}
}

// initSyntheticDescriptors sets up global slots 0/1/2 for stdin, stdout,
// and stderr (spec.md 4.5: "initializes global descriptors 0/1/2 ... with
// synthetic directory entries whose permission bits reflect their role").
func (fs *FS) initSyntheticDescriptors() {
	fs.open[0] = OpenFileSlot{Used: true, Synthetic: true, Name: "stdin", Mode: ModeRead, RefCount: 1}
	fs.open[1] = OpenFileSlot{Used: true, Synthetic: true, Name: "stdout", Mode: ModeWrite, RefCount: 1}
	fs.open[2] = OpenFileSlot{Used: true, Synthetic: true, Name: "stderr", Mode: ModeWrite, RefCount: 1}
}

// Unmount implements spec.md 4.5's unmount: refuses while any
// non-standard descriptor remains open, otherwise flushes the directory
// and FAT, releases the mapping, and closes the image.
func (fs *FS) Unmount() kernel.Errno {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.mounted {
		return kernel.ErrNotMounted
	}
	for i := 3; i < MaxOpenSlots; i++ {
		if fs.open[i].Used {
			return kernel.ErrInUse
		}
	}

	if err := fs.flushDirectory(); err != nil {
		return kernel.ErrInvalidArgument
	}
	munmapFAT(fs.fatMmap)
	fs.file.Close()

	fs.path = ""
	fs.file = nil
	fs.fatMmap = nil
	fs.dir = nil
	fs.dirBlocks = nil
	fs.open = [MaxOpenSlots]OpenFileSlot{}
	fs.mounted = false
	return kernel.OK
}

func now() uint32 { return uint32(time.Now().Unix()) }

// Mounted reports whether fs currently has an image mounted, the same
// `state.is_mounted` flag original_source/src/pennfat/pennfat.c's mkfs
// guards on.
func (fs *FS) Mounted() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mounted
}
