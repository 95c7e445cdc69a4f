// Package shellglue documents, and minimally implements, the shell glue
// contract spec.md 1 scopes out of core ("the interactive shell's line
// editor, command parser, history, and ANSI escape handling") but spec.md
// 6 still specifies the *sequence* an external shell must drive the core
// through. Contract is that documented interface; SimpleShell is a
// minimal concrete driver so the CLI built on top of internal/kernel,
// internal/scheduler, internal/process, internal/fat, and
// internal/syscall is runnable end to end without a real line-editing
// shell.
package shellglue

// Contract is the sequence spec.md 6 requires of any shell built on this
// core: mount(image), log_init(path), scheduler_init(), init_kernel()
// (creates pid 1 = init with a reaper loop), then spawn its own PCB (pid
// 2) and join on it.
type Contract interface {
	Mount(image string) error
	LogInit(path string) error
	SchedulerInit() error
	InitKernel() error
	SpawnShellPCB() (int, error)
}
