// Command pennos is the CLI entrypoint spec.md 6 describes: mount an
// image, initialize logging and the scheduler, init_kernel, spawn the
// shell, and join -- the same sequence SetupCommands wires a cobra.Command
// through in the teacher's proctor CLI, adapted here to a single `pennos`
// command instead of a multi-subcommand tool, since PennOS itself is the
// interactive program rather than a query tool over one.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/arctir/pennos/internal/fat"
	"github.com/arctir/pennos/internal/jobcontrol"
	"github.com/arctir/pennos/internal/kernel"
	"github.com/arctir/pennos/internal/process"
	"github.com/arctir/pennos/internal/scheduler"
	"github.com/arctir/pennos/internal/shellglue"
	"github.com/arctir/pennos/internal/syscall"
	"github.com/arctir/pennos/internal/userfunc"
)

var rootCmd = &cobra.Command{
	Use:   "pennos <fs-image> [log-file]",
	Short: "A cooperative user-space OS simulation over a FAT-backed filesystem image.",
	Args:  cobra.RangeArgs(1, 2),
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := newOptions(cmd.Flags(), args)
		if opts.aio {
			if err := unix.SetNonblock(int(os.Stdin.Fd()), true); err != nil {
				return fmt.Errorf("--aio: %w", err)
			}
		}
		return run(opts.image, opts.logPath)
	},
}

func init() {
	rootCmd.Flags().Bool("aio", false, "put host stdin into non-blocking mode (spec.md 6)")
}

// options is the resolved set of CLI inputs, the way the teacher's
// proctorOpts is built out of a *pflag.FlagSet in proctor/cmd/cmd.go.
type options struct {
	image   string
	logPath string
	aio     bool
}

// newOptions resolves positional args and flags, defaulting an omitted
// logfile to the XDG state directory rather than silently discarding logs
// (the teacher's source.go resolves its cache directory off xdg.DataHome
// the same way).
func newOptions(fs *pflag.FlagSet, args []string) options {
	opts := options{image: args[0]}
	if len(args) > 1 {
		opts.logPath = args[1]
	} else {
		opts.logPath = filepath.Join(xdg.StateHome, "pennos", "pennos.log")
	}
	opts.aio, _ = fs.GetBool("aio")
	return opts
}

// stdoutNotifier prints a background job's completion notice
// (`[job_id] + Done argv...`) to stdout. The scheduler calls it from inside
// Tick and it writes at once; there is no separate print queue.
type stdoutNotifier struct{}

func (stdoutNotifier) BackgroundDone(pcb *kernel.PCB) {
	fmt.Printf("[%d] + Done %s\n", pcb.JobID, strings.Join(pcb.Argv, " "))
}

// run drives the shell glue contract (spec.md 6) end to end: mount,
// log_init, scheduler_init, init_kernel, spawn the shell, join.
func run(image, logPath string) error {
	fs := &fat.FS{}
	reg := kernel.NewRegistry()
	log, err := kernel.NewLogger(logPath)
	if err != nil {
		return fmt.Errorf("log_init: %w", err)
	}
	cfg := kernel.DefaultConfig()
	sched := scheduler.New(reg, log, stdoutNotifier{}, cfg.ScheduleRatio)
	ps := process.New(reg, sched, log)
	job := jobcontrol.New(reg, ps)
	sys := syscall.New(fs, ps, job, reg)
	cmds := &userfunc.Commands{Sys: sys}

	shell := &shellglue.SimpleShell{
		Reg:   reg,
		FS:    fs,
		Log:   log,
		Sched: sched,
		Ps:    ps,
		Job:   job,
		Sys:   sys,
		Cmds:  cmds,
	}

	if err := shell.Mount(image); err != nil {
		return fmt.Errorf("mount %s: %w", image, err)
	}
	if err := shell.LogInit(logPath); err != nil {
		return fmt.Errorf("log_init: %w", err)
	}
	if err := shell.SchedulerInit(); err != nil {
		return fmt.Errorf("scheduler_init: %w", err)
	}
	if err := shell.InitKernel(); err != nil {
		return fmt.Errorf("init_kernel: %w", err)
	}
	if _, err := shell.SpawnShellPCB(); err != nil {
		return fmt.Errorf("spawn shell: %w", err)
	}

	shell.Join()
	if errno := fs.Unmount(); errno != kernel.OK {
		return fmt.Errorf("unmount: %w", errno)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
