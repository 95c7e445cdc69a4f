package process

import "github.com/arctir/pennos/internal/kernel"

// Signal implements spec.md 4.3's kill(pid, signal). It always logs
// SIGNALED on entry, then dispatches the STOP/CONT/TERM/QUIT/EXIT
// semantics described there. EXIT is accepted as a synonym a caller can
// use to request the same zombification TERM does (the reference spec
// lists EXIT alongside the signal set without separate semantics).
func (k *Kernel) Signal(pid int, sig kernel.Signal) kernel.Errno {
	k.Reg.Lock()
	defer k.Reg.Unlock()

	pcb := k.Reg.Get(pid)
	if pcb == nil {
		return kernel.ErrInvalidArgument
	}
	kernel.Log(k.Log, k.Sched.CurrentTick(), kernel.EventSignaled, pcb)

	switch sig {
	case kernel.SigStop:
		k.stopLocked(pcb)
	case kernel.SigCont:
		k.continueLocked(pcb)
	case kernel.SigTerm:
		k.terminateLocked(pcb, kernel.SigTerm, false)
	case kernel.SigQuit:
		k.terminateLocked(pcb, kernel.SigQuit, true)
	case kernel.SigExit:
		k.terminateLocked(pcb, kernel.SigTerm, false)
	default:
		return kernel.ErrInvalidArgument
	}

	k.wakeWaitedByLocked(pcb)
	return kernel.OK
}

func (k *Kernel) stopLocked(pcb *kernel.PCB) {
	pcb.Status = kernel.STOPPED
	k.Sched.RemoveFromQueue(pcb.PID, pcb.Priority)
	if _, sleeping := k.Reg.Sleeping[pcb.PID]; sleeping {
		pcb.RemainingSleepTicks = pcb.WakeTick - k.Sched.CurrentTick()
		pcb.WakeTick = 0
		k.Reg.RemoveSleeping(pcb.PID)
	}
	k.Reg.AddStopped(pcb.PID)
	kernel.Log(k.Log, k.Sched.CurrentTick(), kernel.EventStopped, pcb)
}

func (k *Kernel) continueLocked(pcb *kernel.PCB) {
	if pcb.RemainingSleepTicks > 0 {
		pcb.WakeTick = k.Sched.CurrentTick() + pcb.RemainingSleepTicks
		pcb.RemainingSleepTicks = 0
		pcb.Status = kernel.BLOCKED
		k.Reg.AddSleeping(pcb.PID)
	} else {
		pcb.Status = kernel.RUNNING
		k.Sched.Admit(pcb.PID)
	}
	kernel.Log(k.Log, k.Sched.CurrentTick(), kernel.EventContinued, pcb)
}

func (k *Kernel) terminateLocked(pcb *kernel.PCB, sig kernel.Signal, coreDump bool) {
	pcb.Status = kernel.ZOMBIED
	pcb.ExitStatus = kernel.EncodeSignaled(sig, coreDump)
	k.Sched.RemoveFromQueue(pcb.PID, pcb.Priority)
	k.Reg.RemoveBackground(pcb.PID)
	k.Reg.RemoveStopped(pcb.PID)
	if _, sleeping := k.Reg.Sleeping[pcb.PID]; sleeping {
		k.Reg.RemoveSleeping(pcb.PID)
	}
	if coreDump {
		kernel.Log(k.Log, k.Sched.CurrentTick(), kernel.EventQuit, pcb)
	} else {
		kernel.Log(k.Log, k.Sched.CurrentTick(), kernel.EventZombie, pcb)
	}
	if pcb.Task != nil {
		pcb.Task.Cancel()
	}
}

// wakeWaitedByLocked re-admits pcb's blocked waiter, if any, per spec.md
// 4.3: "For every signal that completes, if the target's parent is
// BLOCKED, re-admit the parent." Must be called with the registry lock
// held.
func (k *Kernel) wakeWaitedByLocked(pcb *kernel.PCB) {
	if pcb.WaitedBy == 0 {
		return
	}
	parent := k.Reg.Get(pcb.WaitedBy)
	if parent == nil || parent.Status != kernel.BLOCKED {
		return
	}
	parent.Status = kernel.RUNNING
	k.Sched.Admit(parent.PID)
}
