// Package scheduler implements the three-level priority scheduler from
// spec.md 4.1: a 19-slot cyclic weighted round robin (9:6:4) across
// priorities 0, 1, 2, driven by a periodic tick.
package scheduler

// FIFO is a strictly-ordered run queue. PCBs are identified by pid only;
// the scheduler looks up the PCB itself through the kernel.Registry so
// this package never imports kernel types into its hot path.
type FIFO struct {
	pids []int
}

// PushBack enqueues pid at the tail, per spec.md 4.1: "enqueued at the tail
// on admit/resume".
func (q *FIFO) PushBack(pid int) {
	q.pids = append(q.pids, pid)
}

// PopFront dequeues and returns the pid at the head, or (0, false) if the
// queue is empty. The scheduler removes from the head "when selected"
// (spec.md 3).
func (q *FIFO) PopFront() (int, bool) {
	if len(q.pids) == 0 {
		return 0, false
	}
	pid := q.pids[0]
	q.pids = q.pids[1:]
	return pid, true
}

// Remove deletes pid from the queue wherever it is (stop/sleep/exit remove
// a PCB by pid rather than only from the head, per spec.md 3).
func (q *FIFO) Remove(pid int) {
	out := q.pids[:0]
	for _, p := range q.pids {
		if p != pid {
			out = append(out, p)
		}
	}
	q.pids = out
}

// Len reports the number of pids currently queued.
func (q *FIFO) Len() int { return len(q.pids) }
