package kernel

import (
	"github.com/samber/lo"
	deadlock "github.com/sasha-s/go-deadlock"
)

// Registry is the single kernel-state record every operation in
// internal/process, internal/scheduler, and internal/jobcontrol is passed
// (spec.md 9: "model as fields of a single kernel state record"). A
// go-deadlock RWMutex guards every field; the scheduler's tick handler is
// the only caller that may hold it across a full dispatch decision.
type Registry struct {
	mu deadlock.RWMutex

	pcbs   map[int]*PCB
	nextPID int
	nextJob int

	// JobList holds every shell-child PCB ever created, in creation order
	// (pids, since the PCB itself may later be reaped).
	JobList []int
	// BackgroundJobs and StoppedJobs hold pids currently in each set. A PCB
	// may appear in at most one of the two at a time.
	BackgroundJobs []int
	StoppedJobs    []int

	// Sleeping holds pids with Status == BLOCKED and WakeTick > 0.
	Sleeping map[int]struct{}
}

// NewRegistry returns an empty Registry. pid 0 is never assigned; the first
// call to Create assigns pid 1 (conventionally init).
func NewRegistry() *Registry {
	return &Registry{
		pcbs:     map[int]*PCB{},
		nextPID:  1,
		nextJob:  1,
		Sleeping: map[int]struct{}{},
	}
}

// Lock/Unlock/RLock/RUnlock expose the registry's mutex directly to
// internal/scheduler, which needs to hold it across an entire dispatch
// decision (enumerate sleepers, suspend the running PCB, select the next
// one) rather than per field access.
func (r *Registry) Lock()    { r.mu.Lock() }
func (r *Registry) Unlock()  { r.mu.Unlock() }
func (r *Registry) RLock()   { r.mu.RLock() }
func (r *Registry) RUnlock() { r.mu.RUnlock() }

// Create allocates a new PCB with the next monotonic pid and inserts it
// into the registry. It does not enqueue the PCB anywhere; callers
// (internal/process.Spawn) are responsible for admission to a run queue.
// Must be called with the registry lock held.
func (r *Registry) Create(ppid int, priority int, cmd string, argv []string) *PCB {
	pid := r.nextPID
	r.nextPID++

	pcb := &PCB{
		PID:      pid,
		PPID:     ppid,
		Priority: priority,
		Status:   BLOCKED,
		Cmd:      cmd,
		Argv:     argv,
		WaitedBy: 0,
	}
	r.pcbs[pid] = pcb

	if parent, ok := r.pcbs[ppid]; ok {
		parent.Children = append(parent.Children, pid)
		pcb.InheritFDTable(parent)
		if ppid == ShellPID {
			pcb.JobID = r.nextJob
			r.nextJob++
			r.JobList = append(r.JobList, pid)
		} else {
			pcb.JobID = parent.JobID
		}
	}

	return pcb
}

// ShellPID is the well-known pid of the interactive shell (spec.md 3: "pid
// 1 for init, 2 for shell, 3+ for others").
const (
	InitPID  = 1
	ShellPID = 2
)

// Get returns the PCB for pid, or nil if it does not exist (already reaped,
// or never created). Must be called with at least a read lock held.
func (r *Registry) Get(pid int) *PCB { return r.pcbs[pid] }

// All returns every live PCB in the registry, in an unspecified order.
// Must be called with at least a read lock held.
func (r *Registry) All() []*PCB {
	return lo.Values(r.pcbs)
}

// Remove deletes a PCB from the registry entirely. Only the reaping parent
// (internal/process.Waitpid) may call this, per spec.md 3: "destroyed only
// by the reaping parent in wait". Must be called with the write lock held.
func (r *Registry) Remove(pid int) {
	if pcb, ok := r.pcbs[pid]; ok {
		if parent, ok := r.pcbs[pcb.PPID]; ok {
			parent.Children = lo.Reject(parent.Children, func(c int, _ int) bool { return c == pid })
		}
	}
	delete(r.pcbs, pid)
}

// Reparent changes a surviving child's ppid to init and appends it to
// init's Children, per spec.md's Reparent glossary entry. Must be called
// with the write lock held.
func (r *Registry) Reparent(childPID int) {
	child, ok := r.pcbs[childPID]
	if !ok {
		return
	}
	if oldParent, ok := r.pcbs[child.PPID]; ok {
		oldParent.Children = lo.Reject(oldParent.Children, func(c int, _ int) bool { return c == childPID })
	}
	child.PPID = InitPID
	if initPCB, ok := r.pcbs[InitPID]; ok {
		initPCB.Children = append(initPCB.Children, childPID)
	}
}

// AddSleeping/RemoveSleeping maintain the sleeping set (spec.md 3). Must be
// called with the write lock held.
func (r *Registry) AddSleeping(pid int)    { r.Sleeping[pid] = struct{}{} }
func (r *Registry) RemoveSleeping(pid int) { delete(r.Sleeping, pid) }

// SleepingPIDs returns a snapshot of the sleeping set's pids. Must be
// called with at least a read lock held.
func (r *Registry) SleepingPIDs() []int {
	return lo.Keys(r.Sleeping)
}

// AddBackground/RemoveBackground and AddStopped/RemoveStopped maintain the
// mutually-exclusive background/stopped job lists (spec.md 3: "A given PCB
// may appear in at most one of background/stopped at any moment"). Must be
// called with the write lock held.
func (r *Registry) AddBackground(pid int) {
	r.StoppedJobs = lo.Reject(r.StoppedJobs, func(p int, _ int) bool { return p == pid })
	if !lo.Contains(r.BackgroundJobs, pid) {
		r.BackgroundJobs = append(r.BackgroundJobs, pid)
	}
}

func (r *Registry) RemoveBackground(pid int) {
	r.BackgroundJobs = lo.Reject(r.BackgroundJobs, func(p int, _ int) bool { return p == pid })
}

func (r *Registry) AddStopped(pid int) {
	r.BackgroundJobs = lo.Reject(r.BackgroundJobs, func(p int, _ int) bool { return p == pid })
	r.StoppedJobs = lo.Reject(r.StoppedJobs, func(p int, _ int) bool { return p == pid })
	r.StoppedJobs = append(r.StoppedJobs, pid)
}

func (r *Registry) RemoveStopped(pid int) {
	r.StoppedJobs = lo.Reject(r.StoppedJobs, func(p int, _ int) bool { return p == pid })
}

// LastStopped returns the most recently stopped job's pid, or 0 if none.
// Must be called with at least a read lock held.
func (r *Registry) LastStopped() int {
	if len(r.StoppedJobs) == 0 {
		return 0
	}
	return r.StoppedJobs[len(r.StoppedJobs)-1]
}

// LastBackground returns the most recently backgrounded job's pid, or 0 if
// none. Must be called with at least a read lock held.
func (r *Registry) LastBackground() int {
	if len(r.BackgroundJobs) == 0 {
		return 0
	}
	return r.BackgroundJobs[len(r.BackgroundJobs)-1]
}
