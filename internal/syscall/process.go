package syscall

import (
	"strings"

	"github.com/arctir/pennos/internal/kernel"
	"github.com/arctir/pennos/internal/process"
)

// SSpawn implements s_spawn: wraps process.Kernel.Spawn, translating the
// caller's own fd 0/1 table entries into the child's if the caller hasn't
// arranged an explicit redirection via opts.
func (t *Table) SSpawn(parentPID int, fn process.TaskFunc, cmd string, argv []string, priority int, opts process.SpawnOpts) int {
	return t.Ps.Spawn(parentPID, fn, cmd, argv, priority, opts)
}

// SWaitpid implements s_waitpid.
func (t *Table) SWaitpid(callerPID, targetPID int, nohang bool, ctl *process.Control) (int, int, kernel.Errno) {
	return t.Ps.Waitpid(callerPID, targetPID, nohang, ctl)
}

// SKill implements s_kill. sig is validated against the known signal set
// here, since spec.md 7 lists an invalid signal as ErrInvalidArgument.
func (t *Table) SKill(pid int, sig kernel.Signal) kernel.Errno {
	switch sig {
	case kernel.SigStop, kernel.SigCont, kernel.SigTerm, kernel.SigQuit, kernel.SigExit:
		return t.Ps.Signal(pid, sig)
	default:
		return kernel.ErrInvalidArgument
	}
}

// SExit implements s_exit.
func (t *Table) SExit(pid int, code int) { t.Ps.Exit(pid, code) }

// SNice implements s_nice, enforcing the {0,1,2} priority bound (the
// kernel's Nice applies the same bound).
func (t *Table) SNice(pid int, newPriority int) kernel.Errno {
	if newPriority < 0 || newPriority > 2 {
		return kernel.ErrInvalidArgument
	}
	return t.Ps.Nice(pid, newPriority)
}

// SSleep implements s_sleep.
func (t *Table) SSleep(pid int, ticks int64, ctl *process.Control) {
	t.Ps.Sleep(pid, ticks, ctl)
}

// SPs implements s_ps.
func (t *Table) SPs() string { return t.Job.Ps() }

// SJobs implements s_jobs.
func (t *Table) SJobs() string { return t.Job.Jobs() }

// SFg implements s_fg.
func (t *Table) SFg(jobID int) (int, kernel.Errno) { return t.Job.Fg(jobID) }

// SBg implements s_bg.
func (t *Table) SBg(jobID int) (int, kernel.Errno) { return t.Job.Bg(jobID) }

// SCat implements s_cat: reads each named file in full and writes it to
// the caller's fd 1, so output redirection set up before spawn is honored.
func (t *Table) SCat(pid int, names []string) kernel.Errno {
	for _, name := range names {
		fd, errno := t.SOpen(pid, name, "r")
		if errno != kernel.OK {
			return errno
		}
		for {
			buf, errno := t.SRead(pid, fd, 4096)
			if errno != kernel.OK {
				t.SClose(pid, fd)
				return errno
			}
			if len(buf) == 0 {
				break
			}
			if _, errno := t.SWrite(pid, 1, buf); errno != kernel.OK {
				t.SClose(pid, fd)
				return errno
			}
		}
		t.SClose(pid, fd)
	}
	return kernel.OK
}

// SEcho implements s_echo: writes the joined argv plus a trailing newline
// to the caller's fd 1.
func (t *Table) SEcho(pid int, args []string) kernel.Errno {
	_, errno := t.SWrite(pid, 1, []byte(strings.Join(args, " ")+"\n"))
	return errno
}
