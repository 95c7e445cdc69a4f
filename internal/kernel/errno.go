package kernel

import goerrors "github.com/go-errors/errors"

// Errno is the kind-based error taxonomy kernel operations return in place
// of a Go error. It is never wrapped or annotated by the kernel itself; the
// syscall layer is the only place an Errno becomes a per-process errno field
// and a -1 return value (spec.md 7).
type Errno int

const (
	// OK means the operation succeeded. Kernel functions that can fail return
	// (value, OK) on success.
	OK Errno = iota
	// ErrPermissionDenied is returned when a requested mode or operation is
	// incompatible with a directory entry's permission bits.
	ErrPermissionDenied
	// ErrNotFound is returned when a directory entry is missing on read,
	// open(READ), unlink, or perm.
	ErrNotFound
	// ErrBadFD is returned when a file descriptor is out of range,
	// unallocated, or open in the wrong mode for the requested operation.
	ErrBadFD
	// ErrInvalidArgument is returned for a bad mode, whence, priority,
	// signal, or filename character.
	ErrInvalidArgument
	// ErrResourceExhausted is returned when there is no free FAT block (disk
	// full) or the per-process FD table is full.
	ErrResourceExhausted
	// ErrNotMounted is returned when no image is mounted by open, read,
	// write, lseek, unlink, df and unmount (and by the calls built on open,
	// such as touch and cp). perm, ls, chmod and mv do not check the mount
	// state, and close of an unknown slot reports ErrBadFD instead.
	ErrNotMounted
	// ErrInUse is returned when unmount is requested with live descriptors
	// still open, when mount is called on an already-mounted filesystem, and
	// by mkfs while an image is mounted. Unlinking an open file defers the
	// release and returns OK.
	ErrInUse
	// ErrNoChildren is returned by waitpid when the caller has no children.
	ErrNoChildren
	// ErrNoParent is returned by waitpid when the caller has no parent
	// record. spec.md's Open Questions note this is reported distinctly from
	// ErrNoChildren even though callers often treat both the same way.
	ErrNoParent
)

func (e Errno) String() string {
	switch e {
	case OK:
		return "OK"
	case ErrPermissionDenied:
		return "PERMISSION_DENIED"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrBadFD:
		return "BAD_FD"
	case ErrInvalidArgument:
		return "INVALID_ARGUMENT"
	case ErrResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case ErrNotMounted:
		return "NOT_MOUNTED"
	case ErrInUse:
		return "IN_USE"
	case ErrNoChildren:
		return "NO_CHILDREN"
	case ErrNoParent:
		return "NO_PARENT"
	default:
		return "UNKNOWN_ERRNO"
	}
}

func (e Errno) Error() string { return e.String() }

// Fatal wraps a condition that should never occur at runtime (e.g. the init
// PCB is missing from the registry) with a stack trace and terminates the
// host process. Reserved for invariant violations, never for ordinary
// recoverable error conditions.
func Fatal(msg string) {
	panic(goerrors.New(msg))
}
