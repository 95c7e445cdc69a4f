package process

import "github.com/arctir/pennos/internal/kernel"

// Nice implements spec.md 4.2's nice: move pid to a new priority queue.
// A newPriority outside {0,1,2} is rejected with ErrInvalidArgument, the
// same bound the syscall layer's SNice applies, since the scheduler has
// only three run queues.
func (k *Kernel) Nice(pid int, newPriority int) kernel.Errno {
	if newPriority < 0 || newPriority > 2 {
		return kernel.ErrInvalidArgument
	}
	k.Reg.Lock()
	defer k.Reg.Unlock()

	pcb := k.Reg.Get(pid)
	if pcb == nil {
		return kernel.ErrInvalidArgument
	}
	wasRunnable := pcb.Status == kernel.RUNNING
	k.Sched.RemoveFromQueue(pid, pcb.Priority)
	pcb.Priority = newPriority
	if wasRunnable {
		k.Sched.Admit(pid)
	}
	return kernel.OK
}
