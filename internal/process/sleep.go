package process

import "github.com/arctir/pennos/internal/kernel"

// Sleep implements spec.md 4.2's sleep(n_ticks): remove the caller from
// its run queue, register it in the sleeping set with the computed
// wake_tick, and cooperatively yield until the scheduler's tick-2 wake-up
// re-admits it. A zero n_ticks is a no-op, matching "if n_ticks = 0,
// no-op."
func (k *Kernel) Sleep(pid int, nTicks int64, ctl *Control) {
	if nTicks == 0 {
		return
	}

	k.Reg.Lock()
	pcb := k.Reg.Get(pid)
	if pcb == nil {
		k.Reg.Unlock()
		return
	}
	k.Sched.RemoveFromQueue(pid, pcb.Priority)
	pcb.Status = kernel.BLOCKED
	pcb.WakeTick = k.Sched.CurrentTick() + nTicks
	k.Reg.AddSleeping(pid)
	k.Reg.Unlock()

	ctl.Yield()
}
