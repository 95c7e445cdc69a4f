package shellglue

import (
	"github.com/arctir/pennos/internal/kernel"
	"github.com/arctir/pennos/internal/syscall"
)

// stdoutWriter adapts a process's fd 1 to io.Writer, so the shell's own
// prompt and builtin output go through the same s_write path a spawned
// child's output would, honoring whatever redirection is in place on
// that fd.
type stdoutWriter struct {
	sys *syscall.Table
	pid int
}

func (w stdoutWriter) Write(p []byte) (int, error) {
	n, errno := w.sys.SWrite(w.pid, kernel.StdoutFD, p)
	if errno != kernel.OK {
		return n, errno
	}
	return n, nil
}

// stdinAdapter adapts a process's fd 0 to io.Reader via repeated s_read
// calls, each returning one line from the synthetic stdin slot.
type stdinAdapter struct {
	sys *syscall.Table
	pid int
	buf []byte
}

func newStdinAdapter(sys *syscall.Table, pid int) *stdinAdapter {
	return &stdinAdapter{sys: sys, pid: pid}
}

func (r *stdinAdapter) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		buf, errno := r.sys.SRead(r.pid, kernel.StdinFD, 4096)
		if errno != kernel.OK {
			return 0, errno
		}
		r.buf = append(buf, '\n')
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
