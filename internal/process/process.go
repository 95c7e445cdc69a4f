// Package process implements the process-control operations of spec.md
// 4.2: spawn, waitpid, exit, kill, nice, and sleep, all operating over a
// shared kernel.Registry and scheduler.Scheduler.
package process

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/arctir/pennos/internal/kernel"
)

// Scheduler is the subset of *scheduler.Scheduler process needs. Declared
// as an interface here (rather than importing the scheduler package
// directly) so internal/scheduler and internal/process can both depend on
// internal/kernel without a cycle between the two of them.
type Scheduler interface {
	Admit(pid int)
	RemoveFromQueue(pid int, priority int)
	CurrentTick() int64
}

// TaskFunc is the body a spawned PCB's thread runs: it receives its own
// argv and a Control handle for cooperating with the scheduler. The int it
// returns is the exit code Spawn's wrapper passes to exit when the body
// finishes.
type TaskFunc func(ctx context.Context, argv []string, ctl *Control) int

// Control is handed to a running TaskFunc so it can cooperatively yield to
// the scheduler (the only legal suspension point for CPU-bound work) and
// discover its own pid.
type Control struct {
	PID     int
	resume  <-chan struct{}
	suspend chan<- struct{}
}

// Yield cooperatively suspends back to the scheduler for the remainder of
// the current quantum and blocks until next resumed. CPU-bound TaskFuncs
// (e.g. internal/userfunc's stress workload) must call this periodically;
// spec.md 5 notes "preemption occurs only inside the timer-signal handler"
// -- in this cooperative model, only at a call to Yield.
func (c *Control) Yield() {
	c.suspend <- struct{}{}
	<-c.resume
}

// Kernel bundles the registry, scheduler, and logger every process
// operation needs, per spec.md 9's "single kernel state record passed
// through all kernel operations".
type Kernel struct {
	Reg  *kernel.Registry
	Sched Scheduler
	Log  *logrus.Logger
}

// New returns a Kernel wired to reg/sched/log.
func New(reg *kernel.Registry, sched Scheduler, log *logrus.Logger) *Kernel {
	return &Kernel{Reg: reg, Sched: sched, Log: log}
}

// SpawnOpts carries the optional parameters of spec.md 4.2's spawn
// contract beyond (fn, argv, priority).
type SpawnOpts struct {
	// FDOverrides replaces the copied-from-parent entries at the given
	// per-process descriptor indices (conventionally 0 and 1, for stdin and
	// stdout redirection) with entries the caller has already arranged --
	// including bumping the target global slot's refcount -- before
	// calling Spawn. Spawn never touches the global open-file table
	// itself.
	FDOverrides map[int]kernel.FDEntry
	IsBackground bool
	// InitialStatus is STOPPED for a PCB that starts stopped; any other
	// value, including the zero value, admits the PCB as RUNNING.
	InitialStatus kernel.Status
}

// Spawn implements spec.md 4.2's spawn: allocate a PCB, copy the parent's
// FD table, assign a job_id, create the task, and admit it to its
// priority queue. Returns the child pid.
func (k *Kernel) Spawn(parentPID int, fn TaskFunc, cmd string, argv []string, priority int, opts SpawnOpts) int {
	k.Reg.Lock()
	defer k.Reg.Unlock()

	pcb := k.Reg.Create(parentPID, priority, cmd, argv)
	for idx, entry := range opts.FDOverrides {
		pcb.FDTable[idx] = entry
	}
	pcb.IsBackground = opts.IsBackground

	pcb.Task = kernel.NewTask(pcb.PID, func(ctx context.Context, resume <-chan struct{}, suspend chan<- struct{}) {
		<-resume
		ctl := &Control{PID: pcb.PID, resume: resume, suspend: suspend}
		status := fn(ctx, argv, ctl)
		k.exitSelf(pcb.PID, status)
	})

	if opts.InitialStatus == kernel.STOPPED {
		pcb.Status = kernel.STOPPED
		k.Reg.AddStopped(pcb.PID)
	} else {
		pcb.Status = kernel.RUNNING
		k.Sched.Admit(pcb.PID)
	}

	if parentPID == kernel.ShellPID && opts.IsBackground {
		k.Reg.AddBackground(pcb.PID)
	}

	kernel.Log(k.Log, k.Sched.CurrentTick(), kernel.EventCreate, pcb)
	return pcb.PID
}
