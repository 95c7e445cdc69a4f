package process

import "github.com/arctir/pennos/internal/kernel"

// Exit implements spec.md 4.2's exit: transition pid to ZOMBIED, drop it
// from its run queue, log ZOMBIE, and re-admit a blocked waiter. Called by
// the Spawn wrapper once a TaskFunc returns; status is the raw exit(2)-style
// code, encoded via kernel.EncodeExited before being stored.
func (k *Kernel) Exit(pid int, code int) {
	k.Reg.Lock()
	defer k.Reg.Unlock()
	k.exitLocked(pid, kernel.EncodeExited(code))
}

// exitSelf is the Spawn wrapper's hook: it runs after a TaskFunc returns,
// with the raw exit code the TaskFunc returned, which it encodes via
// kernel.EncodeExited.
func (k *Kernel) exitSelf(pid int, code int) {
	k.Reg.Lock()
	defer k.Reg.Unlock()
	k.exitLocked(pid, kernel.EncodeExited(code))
}

// exitLocked does the zombification common to Exit and the TERM/QUIT
// branches of Signal. Must be called with the registry lock held.
func (k *Kernel) exitLocked(pid int, status int) {
	pcb := k.Reg.Get(pid)
	if pcb == nil {
		return
	}
	pcb.Status = kernel.ZOMBIED
	pcb.ExitStatus = status
	k.Sched.RemoveFromQueue(pid, pcb.Priority)
	k.Reg.RemoveBackground(pid)
	k.Reg.RemoveStopped(pid)
	kernel.Log(k.Log, k.Sched.CurrentTick(), kernel.EventZombie, pcb)

	if pcb.WaitedBy != 0 {
		if parent := k.Reg.Get(pcb.WaitedBy); parent != nil && parent.Status == kernel.BLOCKED {
			parent.Status = kernel.RUNNING
			k.Sched.Admit(parent.PID)
		}
	}
}
