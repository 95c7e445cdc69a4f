// Package jobcontrol implements fg, bg, jobs, and ps (spec.md 4.4) over a
// shared kernel.Registry and process.Kernel. jobs and ps render through
// tablewriter the way proctor/cmd/cmd.go renders its process table,
// adapted here to job-status letters and fatih/color highlighting instead
// of a plain PID/name/location/SHA table.
package jobcontrol

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/arctir/pennos/internal/kernel"
	"github.com/arctir/pennos/internal/process"
)

// Control bundles the registry and process kernel jobcontrol operates
// over.
type Control struct {
	Reg *kernel.Registry
	Ps  *process.Kernel
}

func New(reg *kernel.Registry, ps *process.Kernel) *Control {
	return &Control{Reg: reg, Ps: ps}
}

// Fg implements spec.md 4.4's fg: select a target job (explicit jobID, or
// the most recent stopped job, falling back to the most recent background
// job), remove it from the stopped/background lists, send it CONT, and
// return its pid so the caller can block-wait on it.
func (c *Control) Fg(jobID int) (int, kernel.Errno) {
	c.Reg.Lock()
	pid := c.selectTargetLocked(jobID)
	if pid == 0 {
		c.Reg.Unlock()
		return 0, kernel.ErrInvalidArgument
	}
	c.Reg.RemoveStopped(pid)
	c.Reg.RemoveBackground(pid)
	c.Reg.Unlock()

	if errno := c.Ps.Signal(pid, kernel.SigCont); errno != kernel.OK {
		return 0, errno
	}
	return pid, kernel.OK
}

// Bg implements spec.md 4.4's bg: same selection policy as Fg, but the
// target is re-admitted to the run queue in the background rather than
// waited on.
func (c *Control) Bg(jobID int) (int, kernel.Errno) {
	c.Reg.Lock()
	pid := c.selectTargetLocked(jobID)
	if pid == 0 {
		c.Reg.Unlock()
		return 0, kernel.ErrInvalidArgument
	}
	if pcb := c.Reg.Get(pid); pcb != nil {
		pcb.IsBackground = true
	}
	c.Reg.AddBackground(pid)
	c.Reg.Unlock()

	if errno := c.Ps.Signal(pid, kernel.SigCont); errno != kernel.OK {
		return 0, errno
	}
	return pid, kernel.OK
}

// selectTargetLocked resolves the pid fg/bg should act on. jobID == 0
// means "no explicit job_id given": pick the most recent stopped job,
// falling back to the most recent background job. Must be called with
// the registry lock held.
func (c *Control) selectTargetLocked(jobID int) int {
	if jobID != 0 {
		for _, pid := range c.Reg.JobList {
			pcb := c.Reg.Get(pid)
			if pcb != nil && pcb.JobID == jobID && (pcb.Status == kernel.RUNNING || pcb.Status == kernel.STOPPED) {
				return pid
			}
		}
		return 0
	}
	if pid := c.Reg.LastStopped(); pid != 0 {
		return pid
	}
	return c.Reg.LastBackground()
}

// Jobs implements spec.md 4.4's jobs: enumerate job_list, skipping nil and
// ZOMBIED entries, rendering `[job_id] pid argv... status-letter` rows
// through tablewriter with the status letter colorized via fatih/color
// (running green, stopped yellow, background cyan).
func (c *Control) Jobs() string {
	c.Reg.RLock()
	defer c.Reg.RUnlock()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"JOB", "PID", "CMD", "STATUS"})
	table.SetAutoWrapText(false)

	for _, pid := range c.Reg.JobList {
		pcb := c.Reg.Get(pid)
		if pcb == nil || pcb.Status == kernel.ZOMBIED {
			continue
		}
		letter := pcb.Status.Letter(pcb.IsBackground)
		table.Append([]string{
			"[" + strconv.Itoa(pcb.JobID) + "]",
			strconv.Itoa(pcb.PID),
			strings.Join(pcb.Argv, " "),
			colorizeLetter(letter),
		})
	}
	table.Render()
	return buf.String()
}

// Ps implements spec.md 4.4's ps: enumerate every PCB in the registry.
func (c *Control) Ps() string {
	c.Reg.RLock()
	defer c.Reg.RUnlock()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"PID", "PPID", "JOB", "PRI", "STATUS", "CMD"})

	for _, pcb := range c.Reg.All() {
		table.Append([]string{
			strconv.Itoa(pcb.PID),
			strconv.Itoa(pcb.PPID),
			strconv.Itoa(pcb.JobID),
			strconv.Itoa(pcb.Priority),
			pcb.Status.String(),
			strings.Join(pcb.Argv, " "),
		})
	}
	table.Render()
	return buf.String()
}

func colorizeLetter(letter string) string {
	switch letter {
	case "R":
		return color.GreenString(letter)
	case "S":
		return color.YellowString(letter)
	case "B":
		return color.CyanString(letter)
	default:
		return letter
	}
}
