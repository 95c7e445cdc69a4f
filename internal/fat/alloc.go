package fat

import "encoding/binary"

// fatEntry reads FAT entry block (block numbers start at 1; block 0 is the
// header) from the memory-mapped FAT region.
func (fs *FS) fatEntry(block int) uint16 {
	return binary.LittleEndian.Uint16(fs.fatMmap[block*2:])
}

// setFATEntry writes FAT entry block. Callers are responsible for
// msync-ing the mapping (see flushFAT) at the points spec.md 4.5
// describes ("sync the directory block", "flush FAT and image").
func (fs *FS) setFATEntry(block int, val uint16) {
	binary.LittleEndian.PutUint16(fs.fatMmap[block*2:], val)
}

// allocBlock finds the first FREE block in [1, dataBlocks], marks it LAST,
// and returns it. Returns (0, false) when the disk is full (spec.md 7:
// ErrResourceExhausted).
func (fs *FS) allocBlock() (uint16, bool) {
	for b := 1; b <= fs.dataBlocks; b++ {
		if fs.fatEntry(b) == blockFree {
			fs.setFATEntry(b, blockLast)
			return uint16(b), true
		}
	}
	return 0, false
}

// freeChain walks the FAT chain starting at head, setting every block to
// FREE. Bounded by fatEntries total iterations, per spec.md 9: "a bounded
// traversal is required everywhere the chain is walked to tolerate
// corrupted images."
func (fs *FS) freeChain(head uint16) {
	block := head
	for i := 0; i < fs.fatEntries && block != blockLast && block != blockFree; i++ {
		next := fs.fatEntry(int(block))
		fs.setFATEntry(int(block), blockFree)
		block = next
	}
}

// chainBlocks returns every block number in the chain starting at head, in
// order, bounded the same way freeChain is.
func (fs *FS) chainBlocks(head uint16) []uint16 {
	var blocks []uint16
	block := head
	for i := 0; i < fs.fatEntries && block != blockFree; i++ {
		blocks = append(blocks, block)
		if fs.fatEntry(int(block)) == blockLast {
			break
		}
		block = fs.fatEntry(int(block))
	}
	return blocks
}

// flushFAT syncs the memory-mapped FAT region to disk.
func (fs *FS) flushFAT() error {
	return msync(fs.fatMmap)
}
