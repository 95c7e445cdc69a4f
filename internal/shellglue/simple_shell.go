package shellglue

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arctir/pennos/internal/fat"
	"github.com/arctir/pennos/internal/jobcontrol"
	"github.com/arctir/pennos/internal/kernel"
	"github.com/arctir/pennos/internal/process"
	"github.com/arctir/pennos/internal/scheduler"
	"github.com/arctir/pennos/internal/syscall"
	"github.com/arctir/pennos/internal/userfunc"
)

// SimpleShell is the minimal concrete shellglue.Contract implementation
// (SPEC_FULL.md 4.7): whitespace-split parsing, `&` backgrounding, `<`/`>`
// redirection, and a small builtin table, all driving the core exactly
// the way a real line-editing shell would.
type SimpleShell struct {
	Reg   *kernel.Registry
	FS    *fat.FS
	Log   *logrus.Logger
	Sched *scheduler.Scheduler
	Ps    *process.Kernel
	Job   *jobcontrol.Control
	Sys   *syscall.Table
	Cmds  *userfunc.Commands

	shellPID int
	stopTick chan struct{}
}

var _ Contract = (*SimpleShell)(nil)

// Mount implements Contract.Mount.
func (s *SimpleShell) Mount(image string) error {
	if errno := s.FS.Mount(image); errno != kernel.OK {
		return errno
	}
	return nil
}

// LogInit implements Contract.LogInit.
func (s *SimpleShell) LogInit(path string) error {
	log, err := kernel.NewLogger(path)
	if err != nil {
		return err
	}
	*s.Log = *log
	return nil
}

// SchedulerInit implements Contract.SchedulerInit: starts the periodic
// tick driver on its own goroutine, matching a dedicated scheduler task
// rather than a signal handler (spec.md 9's redesign hint).
func (s *SimpleShell) SchedulerInit() error {
	cfg := kernel.DefaultConfig()
	s.stopTick = make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Quantum)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sched.Tick()
			case <-s.stopTick:
				return
			}
		}
	}()
	return nil
}

// InitKernel implements Contract.InitKernel: creates pid 1 = init running
// the reap_zombies loop. Spawn itself allocates the PCB (via
// Registry.Create internally); calling Create here too would assign init
// a second, mismatched pid.
func (s *SimpleShell) InitKernel() error {
	s.Ps.Spawn(0, s.Cmds.Init, "init", []string{"init"}, 2, process.SpawnOpts{})
	return nil
}

// SpawnShellPCB implements Contract.SpawnShellPCB: spawns the shell's own
// PCB (pid 2) with its FD table pointed at the real stdin/stdout/stderr
// synthetic descriptors.
func (s *SimpleShell) SpawnShellPCB() (int, error) {
	pid := s.Ps.Spawn(kernel.InitPID, s.runREPL, "shell", []string{"shell"}, 1, process.SpawnOpts{
		FDOverrides: map[int]kernel.FDEntry{
			0: {Used: true, GlobalSlot: 0, Mode: int(fat.ModeRead)},
			1: {Used: true, GlobalSlot: 1, Mode: int(fat.ModeWrite)},
			2: {Used: true, GlobalSlot: 2, Mode: int(fat.ModeWrite)},
		},
	})
	s.shellPID = pid
	return pid, nil
}

// Join blocks until the shell PCB has exited, then stops the tick driver.
func (s *SimpleShell) Join() {
	for {
		s.Reg.RLock()
		pcb := s.Reg.Get(s.shellPID)
		done := pcb == nil || pcb.Status == kernel.ZOMBIED
		s.Reg.RUnlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	close(s.stopTick)
}

// runREPL is the shell PCB's TaskFunc: read a line, parse it, dispatch.
func (s *SimpleShell) runREPL(ctx context.Context, argv []string, ctl *process.Control) int {
	reader := bufio.NewReader(newStdinAdapter(s.Sys, ctl.PID))
	for {
		s.reapOnce(ctl)

		fmt.Fprint(stdoutWriter{s.Sys, ctl.PID}, "penn-shell$ ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return 0
			}
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			ctl.Yield()
			continue
		}
		s.dispatch(ctx, line, ctl)
		ctl.Yield()
	}
}

// reapOnce implements the shell glue contract's "reaping zombies
// periodically" via a single non-blocking waitpid(-1) per prompt.
func (s *SimpleShell) reapOnce(ctl *process.Control) {
	s.Sys.SWaitpid(ctl.PID, -1, true, ctl)
}

// dispatch parses one command line and runs it: control operations
// (ps/jobs/fg/bg/kill/nice/man) run synchronously in the shell's own
// task; everything else spawns a child PCB, honoring `&`, `<`, and `>`.
func (s *SimpleShell) dispatch(ctx context.Context, line string, ctl *process.Control) {
	background := false
	trimmed := strings.TrimSpace(line)
	if strings.HasSuffix(trimmed, "&") {
		background = true
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "&"))
	}

	argv, redirIn, redirOut := parseRedirection(strings.Fields(trimmed))
	if len(argv) == 0 {
		return
	}

	switch argv[0] {
	case "ps":
		fmt.Fprint(stdoutWriter{s.Sys, ctl.PID}, s.Job.Ps())
		return
	case "jobs":
		fmt.Fprint(stdoutWriter{s.Sys, ctl.PID}, s.Job.Jobs())
		return
	case "fg":
		s.Job.Fg(parseJobID(argv))
		return
	case "bg":
		s.Job.Bg(parseJobID(argv))
		return
	case "kill":
		s.builtinKill(argv, ctl)
		return
	case "nice":
		s.builtinNice(argv, ctl)
		return
	case "man":
		fmt.Fprint(stdoutWriter{s.Sys, ctl.PID}, manPage)
		return
	case "mkfs":
		s.builtinMkfs(argv, ctl)
		return
	}

	fn, ok := s.builtinTaskFunc(argv[0])
	if !ok {
		fmt.Fprintf(stdoutWriter{s.Sys, ctl.PID}, "%s: command not found\n", argv[0])
		return
	}

	// Opened directly against the filesystem (not through s_open) so the
	// new global slot's refcount reflects only the child's FD entry --
	// s_open would also consume one of the shell's own per-process FD
	// slots for no corresponding table entry on the child's side.
	overrides := map[int]kernel.FDEntry{}
	if redirIn != "" {
		slot, errno := s.Sys.FS.Open(redirIn, fat.ModeRead)
		if errno == kernel.OK {
			overrides[0] = kernel.FDEntry{Used: true, GlobalSlot: slot, Mode: int(fat.ModeRead)}
		}
	}
	if redirOut != "" {
		slot, errno := s.Sys.FS.Open(redirOut, fat.ModeWrite)
		if errno == kernel.OK {
			overrides[1] = kernel.FDEntry{Used: true, GlobalSlot: slot, Mode: int(fat.ModeWrite)}
		}
	}

	childPID := s.Ps.Spawn(ctl.PID, fn, argv[0], argv, 1, process.SpawnOpts{
		FDOverrides:  overrides,
		IsBackground: background,
	})

	if background {
		fmt.Fprintf(stdoutWriter{s.Sys, ctl.PID}, "[%d] %d\n", s.jobIDOf(childPID), childPID)
		return
	}
	s.Sys.SWaitpid(ctl.PID, childPID, false, ctl)
}

func (s *SimpleShell) jobIDOf(pid int) int {
	s.Reg.RLock()
	defer s.Reg.RUnlock()
	if pcb := s.Reg.Get(pid); pcb != nil {
		return pcb.JobID
	}
	return 0
}

func (s *SimpleShell) builtinKill(argv []string, ctl *process.Control) {
	if len(argv) < 2 {
		return
	}
	sig := kernel.SigTerm
	target := argv[1]
	if len(argv) >= 3 {
		target = argv[2]
		switch strings.ToUpper(strings.TrimPrefix(argv[1], "-")) {
		case "STOP":
			sig = kernel.SigStop
		case "CONT":
			sig = kernel.SigCont
		case "QUIT":
			sig = kernel.SigQuit
		}
	}
	pid, err := strconv.Atoi(target)
	if err != nil {
		return
	}
	s.Sys.SKill(pid, sig)
}

func (s *SimpleShell) builtinNice(argv []string, ctl *process.Control) {
	if len(argv) < 3 {
		return
	}
	priority, err1 := strconv.Atoi(argv[1])
	pid, err2 := strconv.Atoi(argv[2])
	if err1 != nil || err2 != nil {
		return
	}
	s.Sys.SNice(pid, priority)
}

// builtinMkfs implements the `mkfs <name> <blocks_in_fat> <block_size_config>`
// builtin pennfat.c's REPL exposes (spec.md 4.5's mkfs, guarded per
// syscall.Table.SMkfs against rebuilding an already-mounted image).
func (s *SimpleShell) builtinMkfs(argv []string, ctl *process.Control) {
	if len(argv) < 4 {
		fmt.Fprintln(stdoutWriter{s.Sys, ctl.PID}, "usage: mkfs <name> <blocks_in_fat> <block_size_config>")
		return
	}
	blocksInFAT, err1 := strconv.Atoi(argv[2])
	blockSizeConfig, err2 := strconv.Atoi(argv[3])
	if err1 != nil || err2 != nil {
		fmt.Fprintln(stdoutWriter{s.Sys, ctl.PID}, "mkfs: blocks_in_fat and block_size_config must be integers")
		return
	}
	if errno := s.Sys.SMkfs(argv[1], blocksInFAT, blockSizeConfig); errno != kernel.OK {
		fmt.Fprintf(stdoutWriter{s.Sys, ctl.PID}, "mkfs: %s\n", errno)
	}
}

func (s *SimpleShell) builtinTaskFunc(name string) (process.TaskFunc, bool) {
	switch name {
	case "cat":
		return s.Cmds.Cat, true
	case "echo":
		return s.Cmds.Echo, true
	case "ls":
		return s.Cmds.Ls, true
	case "touch":
		return s.Cmds.Touch, true
	case "rm":
		return s.Cmds.Rm, true
	case "chmod":
		return s.Cmds.Chmod, true
	case "mv":
		return s.Cmds.Mv, true
	case "cp":
		return s.Cmds.Cp, true
	case "df":
		return s.Cmds.Df, true
	case "sleep":
		return s.Cmds.Sleep, true
	case "stress":
		return s.Cmds.Stress, true
	default:
		return nil, false
	}
}

func parseJobID(argv []string) int {
	if len(argv) < 2 {
		return 0
	}
	id, err := strconv.Atoi(strings.Trim(argv[1], "[]"))
	if err != nil {
		return 0
	}
	return id
}

// parseRedirection pulls `<file` and `>file` tokens out of argv, per
// spec.md 6's "redirecting stdin/stdout ... by manipulating the
// per-process FD table slots 0 and 1 before calling spawn."
func parseRedirection(tokens []string) (argv []string, in, out string) {
	for i := 0; i < len(tokens); i++ {
		switch {
		case tokens[i] == "<" && i+1 < len(tokens):
			in = tokens[i+1]
			i++
		case tokens[i] == ">" && i+1 < len(tokens):
			out = tokens[i+1]
			i++
		case strings.HasPrefix(tokens[i], "<"):
			in = tokens[i][1:]
		case strings.HasPrefix(tokens[i], ">"):
			out = tokens[i][1:]
		default:
			argv = append(argv, tokens[i])
		}
	}
	return argv, in, out
}

const manPage = `builtins: cat echo ls touch rm chmod mv cp df mkfs ps jobs kill nice sleep fg bg man stress
redirection: < file, > file; background: &
`
