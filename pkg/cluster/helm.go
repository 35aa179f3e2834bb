package cluster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// index refreshes are skipped while the cache file is younger than this
const indexTTL = 5 * time.Minute

// ErrReleaseNotFound is the non-fatal "nothing to uninstall" answer.
var ErrReleaseNotFound = errors.New("helm release not found")

// HelmError is a process-level Helm failure.
type HelmError struct {
	Op       string
	ExitCode int
	Stderr   string
	Timeout  bool
	Cause    error
}

func (e *HelmError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("helm %s timed out", e.Op)
	}
	return fmt.Sprintf("helm %s failed (exit %d): %s", e.Op, e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *HelmError) Unwrap() error {
	return e.Cause
}

// Helm runs the helm binary as a child process with captured output,
// explicit timeouts and a sanitised environment.
type Helm struct {
	bin       string
	repoName  string
	repoURL   string
	cachePath string
	logger    *log.Logger
}

type HelmOption func(*Helm) *Helm

func WithBinary(path string) HelmOption {
	return func(h *Helm) *Helm {
		h.bin = path
		return h
	}
}

func WithLogger(logger *log.Logger) HelmOption {
	return func(h *Helm) *Helm {
		h.logger = logger
		return h
	}
}

// NewHelm builds a runner for one chart repository. cachePath is the
// local repository index file shared between processes.
func NewHelm(repoName string, repoURL string, cachePath string, opts ...HelmOption) *Helm {
	h := &Helm{
		bin:       "helm",
		repoName:  repoName,
		repoURL:   repoURL,
		cachePath: cachePath,
		logger:    log.New(os.Stderr, "helm: ", log.LstdFlags),
	}
	for _, opt := range opts {
		h = opt(h)
	}
	return h
}

// sanitisedEnv is the process env without DEBUG: helm interprets the
// variable and floods stdout with trace output.
func sanitisedEnv() []string {
	env := []string{}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "DEBUG=") {
			continue
		}
		env = append(env, kv)
	}
	return env
}

func (h *Helm) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, h.bin, args...)
	cmd.Env = sanitisedEnv()
	return cmd
}

// run executes helm to completion. On non-zero exit the stderr is
// wrapped into a HelmError; on context expiry Timeout is set.
func (h *Helm) run(ctx context.Context, op string, args ...string) (string, error) {
	proc := newProc(h.command(ctx, args...))
	h.logger.Printf("exec: %s %s", h.bin, strings.Join(args, " "))
	if err := proc.start(); err != nil {
		return "", &HelmError{Op: op, ExitCode: -1, Cause: err}
	}

	stdout, code, err := proc.Wait()
	if ctx.Err() != nil {
		return "", &HelmError{Op: op, Timeout: true, Cause: ctx.Err()}
	}
	if err != nil || code != 0 {
		return "", &HelmError{Op: op, ExitCode: code, Stderr: proc.Stderr(), Cause: err}
	}
	return stdout, nil
}

// RepoUpdate refreshes the local chart index. The refresh is skipped
// while the cache file is younger than the index TTL, unless forced.
// Writers across processes serialise on an OS file lock next to the
// cache file.
func (h *Helm) RepoUpdate(ctx context.Context, force bool) error {
	if !force {
		if stat, err := os.Stat(h.cachePath); err == nil {
			if time.Since(stat.ModTime()) < indexTTL {
				return nil
			}
		}
	}

	unlock, err := h.lockIndex()
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := h.run(ctx, "repo add", "repo", "add", "--force-update", h.repoName, h.repoURL); err != nil {
		return err
	}
	_, err = h.run(ctx, "repo update", "repo", "update")
	return err
}

func (h *Helm) lockIndex() (func(), error) {
	lockPath := h.cachePath + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

// ShowValues returns the default values YAML of a chart.
func (h *Helm) ShowValues(ctx context.Context, chart string) (string, error) {
	return h.run(ctx, "show values", "show", "values", chart)
}

// UpgradeInstall starts `helm upgrade --install` and returns the live
// subprocess handle without waiting. Callers poll the handle for
// status; the Helm release lock serialises concurrent installs of the
// same release.
func (h *Helm) UpgradeInstall(ctx context.Context, release string, chart string, namespace string, setValues map[string]string, wait bool) (*Proc, error) {
	args := []string{"upgrade", "--install", release, chart, "--namespace", namespace}
	if wait {
		args = append(args, "--wait", "--force")
	}

	// deterministic argument order keeps logs and tests stable
	keys := make([]string, 0, len(setValues))
	for k := range setValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--set", fmt.Sprintf("%s=%s", k, setValues[k]))
	}

	proc := newProc(h.command(ctx, args...))
	h.logger.Printf("exec: %s %s", h.bin, strings.Join(args, " "))
	if err := proc.start(); err != nil {
		return nil, &HelmError{Op: "upgrade --install", ExitCode: -1, Cause: err}
	}
	return proc, nil
}

// Uninstall removes releases from a namespace, blocking up to
// timeout. A release that does not exist is reported as
// ErrReleaseNotFound, which callers treat as already-done.
func (h *Helm) Uninstall(ctx context.Context, namespace string, timeout time.Duration, releases ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append([]string{"uninstall", "--namespace", namespace}, releases...)
	stdout, err := h.run(ctx, "uninstall", args...)
	if err != nil {
		herr := new(HelmError)
		if errors.As(err, &herr) && strings.Contains(herr.Stderr, "not found") {
			return "", fmt.Errorf("%w: %s", ErrReleaseNotFound, strings.Join(releases, ", "))
		}
		return "", err
	}
	return stdout, nil
}

// ListReleases returns release names, optionally filtered by exact
// name and namespace.
func (h *Helm) ListReleases(ctx context.Context, release string, namespace string) ([]string, error) {
	args := []string{"list", "-q"}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	}
	if release != "" {
		args = append(args, "--filter", "^"+release+"$")
	}
	stdout, err := h.run(ctx, "list", args...)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, line := range strings.Split(stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}
