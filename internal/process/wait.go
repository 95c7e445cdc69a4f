package process

import "github.com/arctir/pennos/internal/kernel"

// Waitpid implements spec.md 4.2's waitpid. callerPID identifies the
// waiting process (its own pid, resolved by the caller via
// kernel.PIDFromContext or, for init's reaper loop, the well-known
// kernel.InitPID). targetPID of -1 matches any child. When nohang is
// false and no child is immediately reapable, Waitpid blocks the caller
// (registering it BLOCKED and removing it from its run queue) and
// cooperatively yields through ctl until re-admitted by a child's
// zombification or signal delivery, then retries.
//
// Returns (reaped pid, encoded wait status, kernel.OK) on success; (0, 0,
// kernel.OK) for a nohang miss; or (-1, 0, err) for ErrNoChildren /
// ErrNoParent.
func (k *Kernel) Waitpid(callerPID int, targetPID int, nohang bool, ctl *Control) (int, int, kernel.Errno) {
	for {
		k.Reg.Lock()
		caller := k.Reg.Get(callerPID)
		if caller == nil {
			k.Reg.Unlock()
			return -1, 0, kernel.ErrNoParent
		}
		if len(caller.Children) == 0 {
			k.Reg.Unlock()
			return -1, 0, kernel.ErrNoChildren
		}

		for _, cpid := range caller.Children {
			child := k.Reg.Get(cpid)
			if child == nil || (targetPID != -1 && child.PID != targetPID) {
				continue
			}
			switch child.Status {
			case kernel.ZOMBIED:
				pid, status := k.reapLocked(callerPID, child)
				k.Reg.Unlock()
				return pid, status, kernel.OK
			case kernel.STOPPED:
				pid := child.PID
				status := kernel.EncodeStopped(kernel.SigStop)
				k.Reg.Unlock()
				return pid, status, kernel.OK
			}
		}

		if nohang {
			k.Reg.Unlock()
			return 0, 0, kernel.OK
		}

		for _, cpid := range caller.Children {
			if child := k.Reg.Get(cpid); child != nil {
				child.WaitedBy = callerPID
			}
		}
		caller.Status = kernel.BLOCKED
		k.Sched.RemoveFromQueue(callerPID, caller.Priority)
		k.Reg.Unlock()

		ctl.Yield()
	}
}

// reapLocked performs the reap: orphan child's surviving children to init
// (logging ORPHAN for each), detach child from its parent, and free it.
// Must be called with the registry lock held.
func (k *Kernel) reapLocked(callerPID int, child *kernel.PCB) (int, int) {
	for _, gcpid := range append([]int(nil), child.Children...) {
		k.Reg.Reparent(gcpid)
		if gc := k.Reg.Get(gcpid); gc != nil {
			kernel.Log(k.Log, k.Sched.CurrentTick(), kernel.EventOrphan, gc)
		}
	}

	pid := child.PID
	status := child.ExitStatus
	k.Reg.Remove(pid)

	if caller := k.Reg.Get(callerPID); caller != nil {
		event := kernel.EventWaited
		if callerPID == kernel.InitPID {
			event = kernel.EventWaitedInit
		}
		kernel.Log(k.Log, k.Sched.CurrentTick(), event, caller)
	}
	return pid, status
}
