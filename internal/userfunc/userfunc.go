// Package userfunc holds the schedulable function bodies spawn runs:
// init's reap_zombies loop, an idle loop, and the small set of
// filesystem/stress user commands spec.md 1 calls "mere clients of the
// system-call surface." Each is a process.TaskFunc, grounded the way
// other_examples' toysched-step6 goroutine bodies are plain functions
// driven entirely through the Control handle they're given, never a
// global.
package userfunc

import (
	"context"
	"fmt"
	"strconv"

	"github.com/arctir/pennos/internal/kernel"
	"github.com/arctir/pennos/internal/process"
	"github.com/arctir/pennos/internal/syscall"
)

// Commands bundles the syscall table every builtin needs to do anything.
type Commands struct {
	Sys *syscall.Table
}

// Init implements spec.md 4.2's reap_zombies: drain every reapable child
// with non-blocking waitpid(-1), then block fully until the scheduler
// re-admits init on the next zombification. A caller with no children yet
// yields one quantum and retries rather than treating ErrNoChildren as
// fatal, since init's children arrive over time as orphans are reparented
// to it.
func (c *Commands) Init(ctx context.Context, argv []string, ctl *process.Control) int {
	for {
		select {
		case <-ctx.Done():
			return 0
		default:
		}

		for {
			pid, _, errno := c.Sys.SWaitpid(ctl.PID, -1, true, ctl)
			if errno == kernel.ErrNoChildren {
				ctl.Yield()
				break
			}
			if errno != kernel.OK || pid == 0 {
				break
			}
		}

		_, _, errno := c.Sys.SWaitpid(ctl.PID, -1, false, ctl)
		if errno == kernel.ErrNoChildren {
			ctl.Yield()
		}
	}
}

// Idle is a task body that yields immediately, forever, until its context
// is canceled. Nothing in the kernel spawns it; an idle tick is reported
// by the scheduler itself when no queue has a runnable pid.
func (c *Commands) Idle(ctx context.Context, argv []string, ctl *process.Control) int {
	for {
		select {
		case <-ctx.Done():
			return 0
		default:
			ctl.Yield()
		}
	}
}

// Cat implements the `cat` builtin over s_cat.
func (c *Commands) Cat(ctx context.Context, argv []string, ctl *process.Control) int {
	if errno := c.Sys.SCat(ctl.PID, argv[1:]); errno != kernel.OK {
		return 1
	}
	return 0
}

// Echo implements the `echo` builtin over s_echo.
func (c *Commands) Echo(ctx context.Context, argv []string, ctl *process.Control) int {
	if errno := c.Sys.SEcho(ctl.PID, argv[1:]); errno != kernel.OK {
		return 1
	}
	return 0
}

// Ls implements the `ls` builtin: no args lists everything.
func (c *Commands) Ls(ctx context.Context, argv []string, ctl *process.Control) int {
	name := ""
	if len(argv) > 1 {
		name = argv[1]
	}
	listing, errno := c.Sys.SLs(name)
	if errno != kernel.OK {
		return 1
	}
	for _, e := range listing {
		line := fmt.Sprintf("%d\t%s\n", e.Size, e.Name)
		c.Sys.SWrite(ctl.PID, 1, []byte(line))
	}
	return 0
}

// Touch implements the `touch` builtin.
func (c *Commands) Touch(ctx context.Context, argv []string, ctl *process.Control) int {
	status := 0
	for _, name := range argv[1:] {
		if errno := c.Sys.STouch(name); errno != kernel.OK {
			status = 1
		}
	}
	return status
}

// Rm implements the `rm` builtin.
func (c *Commands) Rm(ctx context.Context, argv []string, ctl *process.Control) int {
	status := 0
	for _, name := range argv[1:] {
		if errno := c.Sys.SRm(name); errno != kernel.OK {
			status = 1
		}
	}
	return status
}

// Chmod implements the `chmod` builtin. argv[1] is a signed delta like
// "+r"/"-w"/"+x" translated to a perm-bit delta; argv[2] is the filename.
func (c *Commands) Chmod(ctx context.Context, argv []string, ctl *process.Control) int {
	if len(argv) < 3 {
		return 1
	}
	delta, ok := parseChmodToken(argv[1])
	if !ok {
		return 1
	}
	if errno := c.Sys.SChmod(argv[2], delta); errno != kernel.OK {
		return 1
	}
	return 0
}

func parseChmodToken(tok string) (int, bool) {
	if len(tok) < 2 {
		return 0, false
	}
	sign := 1
	switch tok[0] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return 0, false
	}
	bit := 0
	switch tok[1] {
	case 'r':
		bit = 4
	case 'w':
		bit = 2
	case 'x':
		bit = 1
	default:
		return 0, false
	}
	return sign * bit, true
}

// Mv implements the `mv` builtin.
func (c *Commands) Mv(ctx context.Context, argv []string, ctl *process.Control) int {
	if len(argv) < 3 {
		return 1
	}
	if errno := c.Sys.SMv(argv[1], argv[2]); errno != kernel.OK {
		return 1
	}
	return 0
}

// Cp implements the `cp` builtin, including the `-h` host-boundary flag
// at argv[1] or argv[2] per spec.md 4.5.
func (c *Commands) Cp(ctx context.Context, argv []string, ctl *process.Control) int {
	args := argv[1:]
	hostSrc, hostDst := false, false
	var files []string
	for i, a := range args {
		if a == "-h" {
			if i == 0 {
				hostSrc = true
			} else {
				hostDst = true
			}
			continue
		}
		files = append(files, a)
	}
	if len(files) != 2 {
		return 1
	}
	if errno := c.Sys.SCp(files[0], files[1], hostSrc, hostDst); errno != kernel.OK {
		return 1
	}
	return 0
}

// Df implements the `df` builtin restored from original_source (SPEC_FULL
// 4.5.1).
func (c *Commands) Df(ctx context.Context, argv []string, ctl *process.Control) int {
	free, total, errno := c.Sys.FS.Df()
	if errno != kernel.OK {
		return 1
	}
	line := fmt.Sprintf("%d/%d blocks free\n", free, total)
	c.Sys.SWrite(ctl.PID, 1, []byte(line))
	return 0
}

// Sleep implements the `sleep n` builtin test workload.
func (c *Commands) Sleep(ctx context.Context, argv []string, ctl *process.Control) int {
	if len(argv) < 2 {
		return 1
	}
	n, err := strconv.ParseInt(argv[1], 10, 64)
	if err != nil {
		return 1
	}
	c.Sys.SSleep(ctl.PID, n, ctl)
	return 0
}

// Stress is the CPU-bound workload from original_source's
// userfunctions/stress.c: loop yielding every iteration forever (until
// killed), useful for exercising the priority scheduler's fairness
// property (spec.md 8 scenario 6).
func (c *Commands) Stress(ctx context.Context, argv []string, ctl *process.Control) int {
	for {
		select {
		case <-ctx.Done():
			return 0
		default:
			ctl.Yield()
		}
	}
}
