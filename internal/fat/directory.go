package fat

import "encoding/binary"

// decodeDirBlock unpacks a raw block's bytes into its fixed-size entries.
func decodeDirBlock(raw []byte, n int) []DirEntry {
	entries := make([]DirEntry, n)
	for i := 0; i < n; i++ {
		decodeDirEntry(raw[i*dirEntrySize:(i+1)*dirEntrySize], &entries[i])
	}
	return entries
}

func decodeDirEntry(raw []byte, e *DirEntry) {
	copy(e.Name[:], raw[0:32])
	e.Size = binary.LittleEndian.Uint32(raw[32:36])
	e.FirstBlock = binary.LittleEndian.Uint16(raw[36:38])
	e.Type = EntryType(raw[38])
	e.Perm = raw[39]
	e.Mtime = binary.LittleEndian.Uint32(raw[40:44])
}

func encodeDirEntry(e *DirEntry, raw []byte) {
	copy(raw[0:32], e.Name[:])
	binary.LittleEndian.PutUint32(raw[32:36], e.Size)
	binary.LittleEndian.PutUint16(raw[36:38], e.FirstBlock)
	raw[38] = byte(e.Type)
	raw[39] = e.Perm
	binary.LittleEndian.PutUint32(raw[40:44], e.Mtime)
}

// encodeDirBlock packs entries back into a raw block-sized byte slice.
func encodeDirBlock(entries []DirEntry, blockSize int) []byte {
	raw := make([]byte, blockSize)
	for i, e := range entries {
		encodeDirEntry(&e, raw[i*dirEntrySize:(i+1)*dirEntrySize])
	}
	return raw
}

// findLive returns the index of the live (non-deleted) directory entry
// named name, or (-1, false).
func (fs *FS) findLive(name string) (int, bool) {
	for i := range fs.dir {
		if fs.dir[i].Name[0] == nameEnd {
			break
		}
		if fs.dir[i].Name[0] != nameDeleted && fs.dir[i].Name[0] != nameDeletedInUse && fs.dir[i].nameString() == name {
			return i, true
		}
	}
	return -1, false
}

// insert returns an index usable for a brand-new entry named name: a
// previously deleted slot if one exists before the terminator, otherwise
// the terminator slot itself (growing the directory by one block first if
// the terminator is the last entry currently backed by storage). The slot
// immediately after the returned index remains (or becomes) the new
// terminator automatically, since directory growth appends zeroed entries.
func (fs *FS) insert() int {
	for i := range fs.dir {
		if fs.dir[i].Name[0] == nameDeleted {
			return i
		}
		if fs.dir[i].Name[0] == nameEnd {
			if i == len(fs.dir)-1 {
				fs.growDirectory()
			}
			return i
		}
	}
	fs.growDirectory()
	return len(fs.dir) - 1
}

// growDirectory allocates a new FAT block, chains it after the directory's
// current last block, and appends a block's worth of zeroed entries to
// fs.dir. Disk-full is a normal condition, not an invariant violation: when
// no free block is left it returns false and leaves the directory as it
// was.
func (fs *FS) growDirectory() bool {
	newBlock, ok := fs.allocBlock()
	if !ok {
		return false
	}
	last := fs.dirBlocks[len(fs.dirBlocks)-1]
	fs.setFATEntry(int(last), newBlock)
	fs.setFATEntry(int(newBlock), blockLast)
	fs.dirBlocks = append(fs.dirBlocks, newBlock)
	fs.dir = append(fs.dir, make([]DirEntry, fs.entriesPerBlock())...)
	return true
}

// flushDirectory writes the in-memory directory back to its block chain
// and syncs the FAT mapping, per spec.md 4.5's unmount contract and the
// "sync the directory block" requirement of write/unlink.
func (fs *FS) flushDirectory() error {
	perBlock := fs.entriesPerBlock()
	for bi, block := range fs.dirBlocks {
		start := bi * perBlock
		end := start + perBlock
		if end > len(fs.dir) {
			end = len(fs.dir)
		}
		raw := encodeDirBlock(fs.dir[start:end], fs.blockSize)
		if _, err := fs.file.WriteAt(raw, fs.blockOffset(block)); err != nil {
			return err
		}
	}
	return fs.flushFAT()
}

func (fs *FS) blockOffset(block uint16) int64 {
	return fs.dataStart + int64(block-1)*int64(fs.blockSize)
}
