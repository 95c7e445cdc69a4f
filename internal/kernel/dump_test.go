package kernel

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// dumpOnFailure pretty-prints the registry's PCB table via go-spew when t has
// already failed, so a broken invariant test shows the PCBs it tripped over
// instead of a bare assertion message.
func dumpOnFailure(t *testing.T, r *Registry) {
	t.Helper()
	if !t.Failed() {
		return
	}
	r.RLock()
	defer r.RUnlock()
	t.Logf("registry state:\n%s", spew.Sdump(r.pcbs))
}

func TestCreateAssignsMonotonicPIDsAndJobIDs(t *testing.T) {
	r := NewRegistry()
	r.Lock()
	init := r.Create(0, 0, "init", nil)
	require.Equal(t, 1, init.PID)
	shell := r.Create(1, 0, "shell", nil)
	require.Equal(t, 2, shell.PID)
	child := r.Create(2, 1, "cat", []string{"cat", "f"})
	r.Unlock()

	require.Equal(t, 3, child.PID)
	require.NotZero(t, child.JobID, "expected non-zero job id for shell child")

	r.RLock()
	parent := r.Get(2)
	r.RUnlock()
	found := false
	for _, c := range parent.Children {
		if c == child.PID {
			found = true
		}
	}
	if !found {
		dumpOnFailure(t, r)
		t.Fatalf("expected shell(2) to list child %d", child.PID)
	}
}

func TestReparentMovesChildToInit(t *testing.T) {
	r := NewRegistry()
	r.Lock()
	r.Create(0, 0, "init", nil)
	a := r.Create(1, 0, "A", nil)
	b := r.Create(a.PID, 0, "B", nil)
	r.Reparent(b.PID)
	r.Unlock()

	r.RLock()
	defer r.RUnlock()
	if b.PPID != InitPID {
		dumpOnFailure(t, r)
		t.Fatalf("expected B reparented to init, got ppid %d", b.PPID)
	}
	initPCB := r.Get(InitPID)
	found := false
	for _, c := range initPCB.Children {
		if c == b.PID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected init to list reparented child %d", b.PID)
	}
}
