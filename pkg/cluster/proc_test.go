package cluster

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestProc_CapturesOutputAndExitCode(t *testing.T) {
	proc := newProc(exec.Command("/bin/sh", "-c", "echo hello; echo oops >&2; exit 3"))
	if err := proc.start(); err != nil {
		t.Fatal(err)
	}

	stdout, code, err := proc.Wait()
	if err == nil {
		t.Error("expected non-nil wait error on exit 3")
	}
	if code != 3 {
		t.Errorf("exit code: got %d, want 3", code)
	}
	if strings.TrimSpace(stdout) != "hello" {
		t.Errorf("stdout: got %q", stdout)
	}
	if strings.TrimSpace(proc.Stderr()) != "oops" {
		t.Errorf("stderr: got %q", proc.Stderr())
	}
	if proc.State() != ProcDone {
		t.Errorf("state: got %v, want done", proc.State())
	}
}

func TestProc_StateWhileRunning(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	proc := newProc(exec.CommandContext(ctx, "/bin/sh", "-c", "sleep 5"))
	if err := proc.start(); err != nil {
		t.Fatal(err)
	}
	if proc.State() != ProcRunning {
		t.Errorf("state: got %v, want running", proc.State())
	}
	if done, _ := proc.Done(); done {
		t.Error("Done() reported true while the child runs")
	}
	if proc.Stdout() != "" {
		t.Error("Stdout() should be empty while the child runs")
	}

	cancel()
	if _, _, err := proc.Wait(); err == nil {
		t.Error("expected error after cancel")
	}
}
