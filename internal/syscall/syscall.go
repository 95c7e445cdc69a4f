// Package syscall implements the s_* system-call surface of spec.md 4.6:
// the only layer allowed to translate between a process's own per-process
// FD table and the fat package's global open-file table, and the thin
// process-primitive wrappers (s_spawn, s_waitpid, s_kill, ...) user
// commands call instead of touching internal/process or internal/fat
// directly.
package syscall

import (
	"strings"

	"github.com/arctir/pennos/internal/fat"
	"github.com/arctir/pennos/internal/jobcontrol"
	"github.com/arctir/pennos/internal/kernel"
	"github.com/arctir/pennos/internal/process"
)

// Table bundles every subsystem the syscall surface fronts.
type Table struct {
	FS  *fat.FS
	Ps  *process.Kernel
	Job *jobcontrol.Control
	Reg *kernel.Registry
}

func New(fs *fat.FS, ps *process.Kernel, job *jobcontrol.Control, reg *kernel.Registry) *Table {
	return &Table{FS: fs, Ps: ps, Job: job, Reg: reg}
}

// validFilename enforces spec.md 4.6's "POSIX portable character set:
// alphanumerics, ., -, _".
func validFilename(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// withPCB runs fn against the caller's PCB under the registry lock.
func (t *Table) withPCB(pid int, fn func(pcb *kernel.PCB)) {
	t.Reg.Lock()
	defer t.Reg.Unlock()
	if pcb := t.Reg.Get(pid); pcb != nil {
		fn(pcb)
	}
}

// firstFreeFD finds the first unused per-process descriptor at or above 3
// (0/1/2 are reserved for stdin/stdout/stderr and are only ever set up by
// spawn's FD-table inheritance, never allocated here).
func firstFreeFD(pcb *kernel.PCB) (int, bool) {
	for i := 3; i < kernel.MaxOpenFiles; i++ {
		if !pcb.FDTable[i].Used {
			return i, true
		}
	}
	return -1, false
}

// openModeOf maps the small set of mode tokens user commands pass (r, w,
// a) to fat.OpenMode.
func openModeOf(token string) (fat.OpenMode, bool) {
	switch strings.ToLower(token) {
	case "r", "read":
		return fat.ModeRead, true
	case "w", "write":
		return fat.ModeWrite, true
	case "a", "append":
		return fat.ModeAppend, true
	default:
		return 0, false
	}
}

// SOpen implements s_open.
func (t *Table) SOpen(pid int, name, modeToken string) (int, kernel.Errno) {
	if !validFilename(name) {
		return -1, kernel.ErrInvalidArgument
	}
	mode, ok := openModeOf(modeToken)
	if !ok {
		return -1, kernel.ErrInvalidArgument
	}
	globalSlot, errno := t.FS.Open(name, mode)
	if errno != kernel.OK {
		return -1, errno
	}

	offset := int64(0)
	if mode == fat.ModeAppend {
		if end, e := t.FS.Lseek(globalSlot, 0, fat.SeekEnd); e == kernel.OK {
			offset = end
		}
	}

	var fd int
	var allocErrno kernel.Errno
	t.withPCB(pid, func(pcb *kernel.PCB) {
		free, ok := firstFreeFD(pcb)
		if !ok {
			allocErrno = kernel.ErrResourceExhausted
			return
		}
		pcb.FDTable[free] = kernel.FDEntry{Used: true, GlobalSlot: globalSlot, Offset: offset, Mode: int(mode)}
		fd = free
	})
	if allocErrno != kernel.OK {
		t.FS.Close(globalSlot)
		return -1, allocErrno
	}
	return fd, kernel.OK
}

// SClose implements s_close.
func (t *Table) SClose(pid int, fd int) kernel.Errno {
	var globalSlot int
	var errno kernel.Errno
	t.withPCB(pid, func(pcb *kernel.PCB) {
		if fd < 0 || fd >= kernel.MaxOpenFiles || !pcb.FDTable[fd].Used {
			errno = kernel.ErrBadFD
			return
		}
		globalSlot = pcb.FDTable[fd].GlobalSlot
		pcb.FDTable[fd] = kernel.FDEntry{}
	})
	if errno != kernel.OK {
		return errno
	}
	return t.FS.Close(globalSlot)
}

// SRead implements s_read: seeks the global slot to the per-process
// offset, reads, and advances the per-process offset by the returned
// count.
func (t *Table) SRead(pid int, fd int, n int) ([]byte, kernel.Errno) {
	globalSlot, offset, ok := t.fdLookup(pid, fd)
	if !ok {
		return nil, kernel.ErrBadFD
	}
	if _, errno := t.FS.Lseek(globalSlot, offset, fat.SeekSet); errno != kernel.OK {
		return nil, errno
	}
	buf, errno := t.FS.Read(globalSlot, n)
	if errno != kernel.OK {
		return nil, errno
	}
	t.advanceOffset(pid, fd, int64(len(buf)))
	return buf, kernel.OK
}

// SWrite implements s_write, mirroring SRead's seek-then-operate-then-
// advance shape.
func (t *Table) SWrite(pid int, fd int, buf []byte) (int, kernel.Errno) {
	globalSlot, offset, ok := t.fdLookup(pid, fd)
	if !ok {
		return 0, kernel.ErrBadFD
	}
	if _, errno := t.FS.Lseek(globalSlot, offset, fat.SeekSet); errno != kernel.OK {
		return 0, errno
	}
	n, errno := t.FS.Write(globalSlot, buf)
	if errno != kernel.OK {
		return n, errno
	}
	t.advanceOffset(pid, fd, int64(n))
	return n, kernel.OK
}

// SLseek implements s_lseek.
func (t *Table) SLseek(pid int, fd int, offset int64, whence int) (int64, kernel.Errno) {
	if whence != fat.SeekSet && whence != fat.SeekCur && whence != fat.SeekEnd {
		return 0, kernel.ErrInvalidArgument
	}
	globalSlot, _, ok := t.fdLookup(pid, fd)
	if !ok {
		return 0, kernel.ErrBadFD
	}
	newOffset, errno := t.FS.Lseek(globalSlot, offset, whence)
	if errno != kernel.OK {
		return 0, errno
	}
	t.withPCB(pid, func(pcb *kernel.PCB) {
		pcb.FDTable[fd].Offset = newOffset
	})
	return newOffset, kernel.OK
}

func (t *Table) fdLookup(pid, fd int) (globalSlot int, offset int64, ok bool) {
	t.Reg.RLock()
	defer t.Reg.RUnlock()
	pcb := t.Reg.Get(pid)
	if pcb == nil || fd < 0 || fd >= kernel.MaxOpenFiles || !pcb.FDTable[fd].Used {
		return 0, 0, false
	}
	return pcb.FDTable[fd].GlobalSlot, pcb.FDTable[fd].Offset, true
}

func (t *Table) advanceOffset(pid, fd int, n int64) {
	t.withPCB(pid, func(pcb *kernel.PCB) {
		pcb.FDTable[fd].Offset += n
	})
}

// SUnlink, SPerm, SLs, SChmod, SMv, SCp are trivial passthroughs to the
// fat layer (spec.md 4.6).
func (t *Table) SUnlink(name string) kernel.Errno                { return t.FS.Unlink(name) }
func (t *Table) SPerm(name string) (uint8, kernel.Errno)          { return t.FS.Perm(name) }
func (t *Table) SLs(name string) ([]fat.DirListing, kernel.Errno) { return t.FS.Ls(name) }
func (t *Table) SChmod(name string, delta int) kernel.Errno       { return t.FS.Chmod(name, delta) }
func (t *Table) SMv(src, dst string) kernel.Errno                 { return t.FS.Mv(src, dst) }
func (t *Table) SCp(src, dst string, hostSrc, hostDst bool) kernel.Errno {
	switch {
	case hostSrc:
		return t.FS.CpFromHost(src, dst)
	case hostDst:
		return t.FS.CpToHost(src, dst)
	default:
		return t.FS.Cp(src, dst)
	}
}
func (t *Table) STouch(name string) kernel.Errno { return t.FS.Touch(name) }
func (t *Table) SRm(name string) kernel.Errno    { return t.FS.Unlink(name) }

// SMkfs implements s_mkfs, guarded the way
// original_source/src/pennfat/pennfat.c's mkfs() is: refuses while this
// filesystem already has an image mounted (any path, not just name),
// rather than fabricating a "valid image signature" check -- the real
// source's only guard is `if (state.is_mounted) return ...`.
func (t *Table) SMkfs(name string, blocksInFAT, blockSizeConfig int) kernel.Errno {
	if t.FS.Mounted() {
		return kernel.ErrInUse
	}
	return fat.Mkfs(name, blocksInFAT, blockSizeConfig)
}
