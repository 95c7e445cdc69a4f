package fat

import (
	"os"

	"github.com/arctir/pennos/internal/kernel"
)

// Perm implements spec.md 4.5's perm(name): returns the entry's raw perm
// byte.
func (fs *FS) Perm(name string) (uint8, kernel.Errno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	idx, ok := fs.findLive(name)
	if !ok {
		return 0, kernel.ErrNotFound
	}
	return fs.dir[idx].Perm, kernel.OK
}

// DirListing is one row of spec.md 4.5's ls(name|all) output.
type DirListing struct {
	Name       string
	Size       uint32
	Perm       uint8
	FirstBlock uint16
	Mtime      int64
}

// Ls implements spec.md 4.5's ls. An empty name lists every live entry;
// otherwise only the named entry.
func (fs *FS) Ls(name string) ([]DirListing, kernel.Errno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if name != "" {
		idx, ok := fs.findLive(name)
		if !ok {
			return nil, kernel.ErrNotFound
		}
		return []DirListing{listingOf(&fs.dir[idx])}, kernel.OK
	}

	var out []DirListing
	for i := range fs.dir {
		if fs.dir[i].Name[0] == nameEnd {
			break
		}
		if fs.dir[i].Name[0] == nameDeleted || fs.dir[i].Name[0] == nameDeletedInUse {
			continue
		}
		out = append(out, listingOf(&fs.dir[i]))
	}
	return out, kernel.OK
}

func listingOf(e *DirEntry) DirListing {
	return DirListing{Name: e.nameString(), Size: e.Size, Perm: e.Perm, FirstBlock: e.FirstBlock, Mtime: int64(e.Mtime)}
}

// Chmod implements spec.md 4.5's chmod(name, delta): adds a signed delta
// to the perm byte, rejecting results outside 0..7.
func (fs *FS) Chmod(name string, delta int) kernel.Errno {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	idx, ok := fs.findLive(name)
	if !ok {
		return kernel.ErrNotFound
	}
	newPerm := int(fs.dir[idx].Perm) + delta
	if newPerm < 0 || newPerm > 7 {
		return kernel.ErrInvalidArgument
	}
	fs.dir[idx].Perm = uint8(newPerm)
	fs.flushDirectory()
	return kernel.OK
}

// Mv implements spec.md 4.5's mv(src,dst): requires R on src and, if
// overwriting, W on dst; renames the directory entry in place.
func (fs *FS) Mv(src, dst string) kernel.Errno {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	srcIdx, ok := fs.findLive(src)
	if !ok {
		return kernel.ErrNotFound
	}
	if fs.dir[srcIdx].Perm&PermRead == 0 {
		return kernel.ErrPermissionDenied
	}
	if dstIdx, exists := fs.findLive(dst); exists {
		if fs.dir[dstIdx].Perm&PermWrite == 0 {
			return kernel.ErrPermissionDenied
		}
		fs.freeChain(fs.dir[dstIdx].FirstBlock)
		fs.dir[dstIdx] = DirEntry{}
		fs.dir[dstIdx].Name[0] = nameDeleted
	}
	fs.dir[srcIdx].setName(dst)
	fs.flushDirectory()
	return kernel.OK
}

// Cp implements the in-FS branch of spec.md 4.5's cp: copies src's bytes
// into a freshly created dst via the same allocation path Open(WRITE)
// uses.
func (fs *FS) Cp(src, dst string) kernel.Errno {
	srcSlot, errno := fs.Open(src, ModeRead)
	if errno != kernel.OK {
		return errno
	}
	defer fs.Close(srcSlot)

	dstSlot, errno := fs.Open(dst, ModeWrite)
	if errno != kernel.OK {
		return errno
	}
	defer fs.Close(dstSlot)

	const chunk = 4096
	for {
		buf, errno := fs.Read(srcSlot, chunk)
		if errno != kernel.OK {
			return errno
		}
		if len(buf) == 0 {
			break
		}
		if _, errno := fs.Write(dstSlot, buf); errno != kernel.OK {
			return errno
		}
	}
	return kernel.OK
}

// CpFromHost implements the host->FS branch of cp (`cp -h hostfile dst`).
func (fs *FS) CpFromHost(hostPath, dst string) kernel.Errno {
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return kernel.ErrNotFound
	}
	slot, errno := fs.Open(dst, ModeWrite)
	if errno != kernel.OK {
		return errno
	}
	defer fs.Close(slot)
	if _, errno := fs.Write(slot, data); errno != kernel.OK {
		return errno
	}
	return kernel.OK
}

// CpToHost implements the FS->host branch of cp (`cp src -h hostfile`).
func (fs *FS) CpToHost(src, hostPath string) kernel.Errno {
	slot, errno := fs.Open(src, ModeRead)
	if errno != kernel.OK {
		return errno
	}
	defer fs.Close(slot)

	out, err := os.Create(hostPath)
	if err != nil {
		return kernel.ErrInvalidArgument
	}
	defer out.Close()

	const chunk = 4096
	for {
		buf, errno := fs.Read(slot, chunk)
		if errno != kernel.OK {
			return errno
		}
		if len(buf) == 0 {
			break
		}
		if _, err := out.Write(buf); err != nil {
			return kernel.ErrInvalidArgument
		}
	}
	return kernel.OK
}

// Touch implements original_source's pennfat_help.c ptouch(): open(WRITE)
// then immediately close, for both a missing file (created empty) and an
// existing one. allocate_fd()'s F_WRITE path truncates unconditionally, so
// touching an existing file truncates it exactly like a plain
// open(name, WRITE) would -- there is no separate "just refresh mtime"
// case.
func (fs *FS) Touch(name string) kernel.Errno {
	slot, errno := fs.Open(name, ModeWrite)
	if errno != kernel.OK {
		return errno
	}
	fs.mu.Lock()
	fs.dir[fs.open[slot].EntryIndex].Mtime = now()
	fs.flushDirectory()
	fs.mu.Unlock()
	return fs.Close(slot)
}

// Df implements the free-space report original_source's pennfat.c exposes
// (`df` is not named in spec.md 4.5's operation list but the filesystem's
// allocator makes it a natural, low-cost addition restored from the
// original implementation; see SPEC_FULL.md 4.5.1).
func (fs *FS) Df() (freeBlocks, totalBlocks int, errno kernel.Errno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.mounted {
		return 0, 0, kernel.ErrNotMounted
	}
	free := 0
	for b := 1; b <= fs.dataBlocks; b++ {
		if fs.fatEntry(b) == blockFree {
			free++
		}
	}
	return free, fs.dataBlocks, kernel.OK
}
