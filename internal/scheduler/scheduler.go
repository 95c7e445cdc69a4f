package scheduler

import (
	"github.com/sirupsen/logrus"

	"github.com/arctir/pennos/internal/kernel"
)

// Notifier receives the "done" notification the scheduler emits before
// re-admitting a background job whose sleep has just woken it (spec.md
// 4.1, step 2). Tick calls it directly; the CLI's notifier writes the line
// to stdout at once, from inside Tick, so there is no print queue and the
// notice can interleave with output of a running process.
type Notifier interface {
	BackgroundDone(pcb *kernel.PCB)
}

// Scheduler owns the three priority run queues, the sleeping set lookups
// (via the registry), the 19-slot cyclic schedule vector, and the single
// "currently resumed" task handle. It is the only component permitted to
// call Task.Resume/Task.Suspend (spec.md 4.1).
type Scheduler struct {
	reg    *kernel.Registry
	log    *logrus.Logger
	notify Notifier

	queues [3]FIFO

	schedule      []int
	scheduleIndex int

	currentTick int64
	runningPID  int
}

// New constructs a Scheduler bound to reg. cfg.ScheduleRatio must be a
// non-empty slice of priorities in {0,1,2}; spec.md's fixed 9:6:4 ratio is
// produced by kernel.DefaultConfig().
func New(reg *kernel.Registry, log *logrus.Logger, notify Notifier, schedule []int) *Scheduler {
	return &Scheduler{
		reg:      reg,
		log:      log,
		notify:   notify,
		schedule: schedule,
	}
}

// CurrentTick returns the current tick counter.
func (s *Scheduler) CurrentTick() int64 { return s.currentTick }

// Admit enqueues pid at the tail of its PCB's priority queue. Used by
// internal/process on spawn/resume and by internal/process.Signal on
// CONT.
func (s *Scheduler) Admit(pid int) {
	pcb := s.reg.Get(pid)
	if pcb == nil {
		return
	}
	s.queues[pcb.Priority].PushBack(pid)
}

// RemoveFromQueue removes pid from whichever priority queue it is
// currently sitting in. Used on stop/sleep/exit/nice.
func (s *Scheduler) RemoveFromQueue(pid int, priority int) {
	s.queues[priority].Remove(pid)
}

// Tick implements the four-step dispatch protocol of spec.md 4.1. It
// returns the pid selected to run this tick, or 0 if the scheduler is
// idle (no runnable PCB in any queue).
func (s *Scheduler) Tick() int {
	s.reg.Lock()
	defer s.reg.Unlock()

	// 1. Increment current_tick.
	s.currentTick++

	// 2. Wake any sleeper whose wake_tick has arrived.
	for _, pid := range s.reg.SleepingPIDs() {
		pcb := s.reg.Get(pid)
		if pcb == nil || pcb.Status != kernel.BLOCKED || pcb.WakeTick > s.currentTick {
			continue
		}
		if pcb.IsBackground && s.notify != nil {
			s.notify.BackgroundDone(pcb)
		}
		pcb.Status = kernel.RUNNING
		pcb.WakeTick = 0
		s.reg.RemoveSleeping(pid)
		s.queues[pcb.Priority].PushBack(pid)
	}

	// 3. Suspend the currently running PCB and re-enqueue it if it is still
	// runnable.
	if s.runningPID != 0 {
		running := s.reg.Get(s.runningPID)
		if running != nil && running.Task != nil {
			running.Task.Suspend()
			if running.Status == kernel.RUNNING {
				s.queues[running.Priority].PushBack(running.PID)
			}
		}
		s.runningPID = 0
	}

	// 4. Select the next PCB under the fixed 9:6:4 weighted round robin.
	next := s.selectNext()
	if next == 0 {
		return 0
	}

	pcb := s.reg.Get(next)
	pcb.Status = kernel.RUNNING
	s.runningPID = next
	kernel.Log(s.log, s.currentTick, kernel.EventSchedule, pcb)
	if pcb.Task != nil {
		pcb.Task.Resume()
	}
	return next
}

// selectNext tries queue[scheduleIndex]; if empty, advances and retries,
// up to one full cycle of the schedule vector (spec.md 4.1). Must be
// called with the registry lock held.
func (s *Scheduler) selectNext() int {
	n := len(s.schedule)
	if n == 0 {
		return 0
	}
	for attempt := 0; attempt < n; attempt++ {
		priority := s.schedule[s.scheduleIndex]
		s.scheduleIndex = (s.scheduleIndex + 1) % n
		if pid, ok := s.queues[priority].PopFront(); ok {
			return pid
		}
	}
	return 0
}

// RunningPID returns the pid currently selected to run, or 0 when idle.
func (s *Scheduler) RunningPID() int { return s.runningPID }
