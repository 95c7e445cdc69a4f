package jobcontrol

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/arctir/pennos/internal/kernel"
	"github.com/arctir/pennos/internal/process"
	"github.com/arctir/pennos/internal/scheduler"
)

type noopNotifier struct{}

func (noopNotifier) BackgroundDone(*kernel.PCB) {}

func TestJobsSkipsZombiedAndRendersStatusLetter(t *testing.T) {
	reg := kernel.NewRegistry()
	log, _ := kernel.NewLogger("")
	log.SetLevel(logrus.PanicLevel)
	sched := scheduler.New(reg, log, noopNotifier{}, kernel.DefaultConfig().ScheduleRatio)
	pk := process.New(reg, sched, log)
	jc := New(reg, pk)

	reg.Lock()
	reg.Create(0, 0, "init", nil)
	reg.Create(kernel.InitPID, 0, "shell", nil)
	child := reg.Create(kernel.ShellPID, 1, "sleep", []string{"sleep", "5"})
	child.Status = kernel.RUNNING
	zombie := reg.Create(kernel.ShellPID, 1, "cat", []string{"cat", "gone"})
	zombie.Status = kernel.ZOMBIED
	reg.Unlock()

	out := jc.Jobs()
	assert.True(t, strings.Contains(out, "sleep 5"), "expected jobs output to contain argv, got %q", out)
	assert.False(t, strings.Contains(out, "cat gone"), "expected zombied job to be skipped, got %q", out)
	assert.True(t, strings.Contains(out, colorizeLetter("R")), "expected running status letter, got %q", out)
}
