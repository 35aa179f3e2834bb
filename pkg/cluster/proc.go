package cluster

import (
	"bytes"
	"os/exec"
	"sync"
)

// ProcState is the lifecycle of one Helm subprocess handle.
type ProcState string

const (
	ProcPending ProcState = "pending"
	ProcRunning ProcState = "running"
	ProcDone    ProcState = "done"
)

// Proc tracks a live subprocess. It is process-local transient state:
// never persisted, never shared across processes.
type Proc struct {
	mu sync.Mutex

	state  ProcState
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer

	exitCode int
	waitErr  error
	waited   chan struct{}
}

func newProc(cmd *exec.Cmd) *Proc {
	p := &Proc{state: ProcPending, cmd: cmd, waited: make(chan struct{})}
	cmd.Stdout = &p.stdout
	cmd.Stderr = &p.stderr
	return p
}

func (p *Proc) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.cmd.Start(); err != nil {
		p.state = ProcDone
		p.exitCode = -1
		p.waitErr = err
		close(p.waited)
		return err
	}
	p.state = ProcRunning

	go func() {
		err := p.cmd.Wait()

		p.mu.Lock()
		p.state = ProcDone
		p.waitErr = err
		p.exitCode = p.cmd.ProcessState.ExitCode()
		p.mu.Unlock()

		close(p.waited)
	}()
	return nil
}

// State answers without blocking.
func (p *Proc) State() ProcState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done reports whether the subprocess has exited, and its exit code
// when it has.
func (p *Proc) Done() (bool, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != ProcDone {
		return false, 0
	}
	return true, p.exitCode
}

// Wait blocks until exit and returns (stdout, exit code, error).
func (p *Proc) Wait() (string, int, error) {
	<-p.waited
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stdout.String(), p.exitCode, p.waitErr
}

// Stdout returns captured output. Empty until the subprocess exits:
// the buffers are written by the child's pipes and are only safe to
// read after Wait completed.
func (p *Proc) Stdout() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != ProcDone {
		return ""
	}
	return p.stdout.String()
}

func (p *Proc) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != ProcDone {
		return ""
	}
	return p.stderr.String()
}
