package fat

import (
	"bufio"
	"os"

	"github.com/arctir/pennos/internal/kernel"
)

// Open implements spec.md 4.5's open(name, mode). Returns the global
// open-file slot index.
func (fs *FS) Open(name string, mode OpenMode) (int, kernel.Errno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.mounted {
		return -1, kernel.ErrNotMounted
	}

	for i := range fs.open {
		if !fs.open[i].Used || fs.open[i].Synthetic || fs.open[i].Name != name {
			continue
		}
		entry := &fs.dir[fs.open[i].EntryIndex]
		if entry.Name[0] == nameDeleted || entry.Name[0] == nameDeletedInUse {
			// Unlinked while this slot was still open (spec.md 3's deferred
			// release): the name no longer resolves to a live entry, so a
			// fresh open must fall through to findLive/createEntry below
			// instead of reusing the dying slot.
			continue
		}
		if !modeCompatible(mode, entry.Perm) {
			return -1, kernel.ErrPermissionDenied
		}
		fs.open[i].RefCount++
		return i, kernel.OK
	}

	idx, found := fs.findLive(name)
	if !found {
		if mode != ModeWrite {
			return -1, kernel.ErrNotFound
		}
		idx = fs.createEntry(name)
		if idx < 0 {
			return -1, kernel.ErrResourceExhausted
		}
	}
	entry := &fs.dir[idx]
	if !modeCompatible(mode, entry.Perm) {
		return -1, kernel.ErrPermissionDenied
	}

	slot, ok := fs.freeSlot()
	if !ok {
		return -1, kernel.ErrResourceExhausted
	}
	offset := int64(0)
	if mode == ModeAppend {
		offset = int64(entry.Size)
	}
	fs.open[slot] = OpenFileSlot{
		Used:         true,
		EntryIndex:   idx,
		Name:         name,
		CurrentBlock: entry.FirstBlock,
		Offset:       0,
		Mode:         mode,
		RefCount:     1,
	}
	if mode == ModeWrite {
		fs.truncateEntry(entry)
	}
	fs.open[slot].Offset = offset
	if mode == ModeAppend {
		fs.seekToOffset(slot, offset)
	}
	return slot, kernel.OK
}

// createEntry allocates a fresh directory slot and first data block for a
// new file named name.
func (fs *FS) createEntry(name string) int {
	block, ok := fs.allocBlock()
	if !ok {
		return -1
	}
	idx := fs.insert()
	fs.dir[idx] = DirEntry{
		Size:       0,
		FirstBlock: block,
		Type:       TypeRegular,
		Perm:       PermRead | PermWrite,
		Mtime:      now(),
	}
	fs.dir[idx].setName(name)
	fs.flushDirectory()
	return idx
}

// truncateEntry frees every block after the first and resets size to 0,
// per spec.md 4.5's open(f, WRITE) contract.
func (fs *FS) truncateEntry(entry *DirEntry) {
	chain := fs.chainBlocks(entry.FirstBlock)
	for i, block := range chain {
		if i == 0 {
			continue
		}
		fs.setFATEntry(int(block), blockFree)
	}
	if len(chain) > 0 {
		fs.setFATEntry(int(chain[0]), blockLast)
	}
	entry.Size = 0
}

func (fs *FS) freeSlot() (int, bool) {
	for i := 3; i < MaxOpenSlots; i++ {
		if !fs.open[i].Used {
			return i, true
		}
	}
	return -1, false
}

func modeCompatible(mode OpenMode, perm uint8) bool {
	switch mode {
	case ModeRead:
		return perm&PermRead != 0
	case ModeWrite, ModeAppend:
		return perm&PermWrite != 0
	default:
		return false
	}
}

// seekToOffset repositions slot's current_block to match a newly set
// per-slot Offset, by walking the chain from the entry's first_block.
func (fs *FS) seekToOffset(slot int, offset int64) {
	s := &fs.open[slot]
	if s.Synthetic {
		return
	}
	entry := &fs.dir[s.EntryIndex]
	chain := fs.chainBlocks(entry.FirstBlock)
	blockIdx := int(offset) / fs.blockSize
	if len(chain) == 0 {
		s.CurrentBlock = 0
		return
	}
	if blockIdx >= len(chain) {
		blockIdx = len(chain) - 1
	}
	s.CurrentBlock = chain[blockIdx]
}

// Read implements spec.md 4.5's read(fd, n, buf). fd 0 backed by "stdin"
// reads one line from the host standard input, stripping the newline.
func (fs *FS) Read(slot int, n int) ([]byte, kernel.Errno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.mounted {
		return nil, kernel.ErrNotMounted
	}
	if slot < 0 || slot >= MaxOpenSlots || !fs.open[slot].Used {
		return nil, kernel.ErrBadFD
	}
	s := &fs.open[slot]
	if s.Synthetic {
		if s.Name != "stdin" {
			return nil, kernel.ErrBadFD
		}
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		line = trimNewline(line)
		return []byte(line), kernel.OK
	}

	entry := &fs.dir[s.EntryIndex]
	if entry.Perm&PermRead == 0 {
		return nil, kernel.ErrPermissionDenied
	}

	buf := make([]byte, 0, n)
	remaining := n
	for remaining > 0 && s.Offset < int64(entry.Size) {
		offsetInBlock := int(s.Offset) % fs.blockSize
		blockRemainder := fs.blockSize - offsetInBlock
		toRead := remaining
		if toRead > blockRemainder {
			toRead = blockRemainder
		}
		if int64(toRead) > int64(entry.Size)-s.Offset {
			toRead = int(int64(entry.Size) - s.Offset)
		}
		if toRead <= 0 {
			break
		}
		chunk := make([]byte, toRead)
		at := fs.blockOffset(s.CurrentBlock) + int64(offsetInBlock)
		if _, err := fs.file.ReadAt(chunk, at); err != nil {
			return buf, kernel.OK
		}
		buf = append(buf, chunk...)
		s.Offset += int64(toRead)
		remaining -= toRead
		if offsetInBlock+toRead >= fs.blockSize {
			next := fs.fatEntry(int(s.CurrentBlock))
			if next != blockLast && next != blockFree {
				s.CurrentBlock = next
			}
		}
	}
	return buf, kernel.OK
}

func trimNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}
	return s
}

// Write implements spec.md 4.5's write(fd, buf, n). fd 1 and 2 delegate to
// the host write.
func (fs *FS) Write(slot int, buf []byte) (int, kernel.Errno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.mounted {
		return 0, kernel.ErrNotMounted
	}
	if slot < 0 || slot >= MaxOpenSlots || !fs.open[slot].Used {
		return 0, kernel.ErrBadFD
	}
	s := &fs.open[slot]
	if s.Synthetic {
		switch s.Name {
		case "stdout":
			n, _ := os.Stdout.Write(buf)
			return n, kernel.OK
		case "stderr":
			n, _ := os.Stderr.Write(buf)
			return n, kernel.OK
		default:
			return 0, kernel.ErrBadFD
		}
	}

	entry := &fs.dir[s.EntryIndex]
	if entry.Perm&PermWrite == 0 {
		return 0, kernel.ErrPermissionDenied
	}

	written := 0
	remaining := len(buf)
	for remaining > 0 {
		if s.CurrentBlock == 0 || s.CurrentBlock == blockLast {
			newBlock, ok := fs.allocBlock()
			if !ok {
				return written, kernel.ErrResourceExhausted
			}
			if entry.FirstBlock == 0 {
				entry.FirstBlock = newBlock
			} else {
				fs.setFATEntry(int(fs.lastAllocatedBlockOf(s)), newBlock)
			}
			s.CurrentBlock = newBlock
		}
		offsetInBlock := int(s.Offset) % fs.blockSize
		if offsetInBlock == 0 && s.Offset > 0 {
			chain := fs.chainBlocks(entry.FirstBlock)
			if idx := int(s.Offset) / fs.blockSize; idx < len(chain) {
				s.CurrentBlock = chain[idx]
			} else {
				newBlock, ok := fs.allocBlock()
				if !ok {
					return written, kernel.ErrResourceExhausted
				}
				fs.setFATEntry(int(chain[len(chain)-1]), newBlock)
				s.CurrentBlock = newBlock
			}
		}
		blockRemainder := fs.blockSize - offsetInBlock
		toWrite := remaining
		if toWrite > blockRemainder {
			toWrite = blockRemainder
		}
		at := fs.blockOffset(s.CurrentBlock) + int64(offsetInBlock)
		if _, err := fs.file.WriteAt(buf[written:written+toWrite], at); err != nil {
			return written, kernel.ErrResourceExhausted
		}
		written += toWrite
		s.Offset += int64(toWrite)
		remaining -= toWrite
		if int64(entry.Size) < s.Offset {
			entry.Size = uint32(s.Offset)
		}
	}
	fs.flushDirectory()
	return written, kernel.OK
}

// lastAllocatedBlockOf finds the current tail of entry's chain so a fresh
// append can be linked onto it.
func (fs *FS) lastAllocatedBlockOf(s *OpenFileSlot) uint16 {
	entry := &fs.dir[s.EntryIndex]
	chain := fs.chainBlocks(entry.FirstBlock)
	if len(chain) == 0 {
		return entry.FirstBlock
	}
	return chain[len(chain)-1]
}

// Lseek implements spec.md 4.5's lseek(fd, offset, whence).
func (fs *FS) Lseek(slot int, offset int64, whence int) (int64, kernel.Errno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.mounted {
		return 0, kernel.ErrNotMounted
	}
	if slot < 0 || slot >= MaxOpenSlots || !fs.open[slot].Used || fs.open[slot].Synthetic {
		return 0, kernel.ErrBadFD
	}
	s := &fs.open[slot]
	entry := &fs.dir[s.EntryIndex]

	var newOffset int64
	switch whence {
	case SeekSet:
		newOffset = offset
	case SeekCur:
		newOffset = s.Offset + offset
	case SeekEnd:
		newOffset = int64(entry.Size) + offset
	default:
		return 0, kernel.ErrInvalidArgument
	}
	if newOffset < 0 {
		return 0, kernel.ErrInvalidArgument
	}
	if s.Mode == ModeRead && newOffset > int64(entry.Size) {
		newOffset = int64(entry.Size)
	}
	s.Offset = newOffset
	fs.seekToOffset(slot, newOffset)
	return newOffset, kernel.OK
}

// Seek whence values (spec.md 4.5).
const (
	SeekSet = iota
	SeekCur
	SeekEnd
)

// Close implements spec.md 4.5's close(fd): decrement refcount; clear the
// slot once it reaches 0.
func (fs *FS) Close(slot int) kernel.Errno {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if slot < 0 || slot >= MaxOpenSlots || !fs.open[slot].Used {
		return kernel.ErrBadFD
	}
	fs.open[slot].RefCount--
	if fs.open[slot].RefCount <= 0 {
		wasDeferred := !fs.open[slot].Synthetic && fs.dir[fs.open[slot].EntryIndex].Name[0] == nameDeletedInUse
		entryIdx := fs.open[slot].EntryIndex
		fs.open[slot] = OpenFileSlot{}
		if wasDeferred {
			fs.reclaimDeferred(entryIdx)
		}
	}
	return kernel.OK
}

// reclaimDeferred finishes an unlink that was deferred because the file
// was still open (spec.md 3: "Deleting an in-use file ... defers FAT chain
// release until refcount reaches zero"). Spec.md's Open Questions flags
// that the reference design never automatically reclaims on close; we
// choose to sweep here rather than leave it to a separate pass.
func (fs *FS) reclaimDeferred(entryIdx int) {
	entry := &fs.dir[entryIdx]
	fs.freeChain(entry.FirstBlock)
	entry.Name[0] = nameDeleted
	fs.flushDirectory()
}

// Unlink implements spec.md 4.5's unlink(name).
func (fs *FS) Unlink(name string) kernel.Errno {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.mounted {
		return kernel.ErrNotMounted
	}
	idx, ok := fs.findLive(name)
	if !ok {
		return kernel.ErrNotFound
	}
	for i := range fs.open {
		if fs.open[i].Used && !fs.open[i].Synthetic && fs.open[i].EntryIndex == idx {
			fs.dir[idx].Name[0] = nameDeletedInUse
			return kernel.OK
		}
	}
	fs.freeChain(fs.dir[idx].FirstBlock)
	fs.dir[idx] = DirEntry{}
	fs.dir[idx].Name[0] = nameDeleted
	fs.flushDirectory()
	return kernel.OK
}
