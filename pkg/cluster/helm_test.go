package cluster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeHelm writes a shell script standing in for the helm binary.
func fakeHelm(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helm")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHelm_ListReleases(t *testing.T) {
	bin := fakeHelm(t, `echo rstudio-alice
echo jupyter-alice`)
	helm := NewHelm("platform", "https://charts.example.com", filepath.Join(t.TempDir(), "index.yaml"), WithBinary(bin))

	releases, err := helm.ListReleases(context.Background(), "", "user-alice")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"rstudio-alice", "jupyter-alice"}
	if len(releases) != len(want) {
		t.Fatalf("releases: got %v, want %v", releases, want)
	}
	for i := range want {
		if releases[i] != want[i] {
			t.Errorf("releases[%d]: got %q, want %q", i, releases[i], want[i])
		}
	}
}

func TestHelm_RunFailureCarriesStderr(t *testing.T) {
	bin := fakeHelm(t, `echo "Error: something broke" >&2; exit 1`)
	helm := NewHelm("platform", "https://charts.example.com", filepath.Join(t.TempDir(), "index.yaml"), WithBinary(bin))

	_, err := helm.ListReleases(context.Background(), "", "")
	if err == nil {
		t.Fatal("expected error")
	}
	herr := new(HelmError)
	if !errors.As(err, &herr) {
		t.Fatalf("error type: got %T", err)
	}
	if herr.ExitCode != 1 {
		t.Errorf("exit code: got %d, want 1", herr.ExitCode)
	}
	if !strings.Contains(herr.Stderr, "something broke") {
		t.Errorf("stderr not carried: %q", herr.Stderr)
	}
}

func TestHelm_UninstallMissingRelease(t *testing.T) {
	bin := fakeHelm(t, `echo "Error: uninstall: Release not loaded: rstudio-bob: release: not found" >&2; exit 1`)
	helm := NewHelm("platform", "https://charts.example.com", filepath.Join(t.TempDir(), "index.yaml"), WithBinary(bin))

	_, err := helm.Uninstall(context.Background(), "user-bob", time.Minute, "rstudio-bob")
	if !errors.Is(err, ErrReleaseNotFound) {
		t.Errorf("error: got %v, want ErrReleaseNotFound", err)
	}
}

func TestHelm_RepoUpdateSkippedWithinTTL(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "index.yaml")
	if err := os.WriteFile(cache, []byte("entries: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// a binary that records its invocation, so a skip is observable
	marker := filepath.Join(t.TempDir(), "called")
	bin := fakeHelm(t, `touch `+marker)
	helm := NewHelm("platform", "https://charts.example.com", cache, WithBinary(bin))

	if err := helm.RepoUpdate(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("repo update ran despite a fresh cache")
	}

	if err := helm.RepoUpdate(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Error("forced repo update did not run")
	}
}

func TestHelm_UpgradeInstallArgsAreObservable(t *testing.T) {
	// the fake echoes its arguments, so the handle's stdout shows the
	// composed command line
	bin := fakeHelm(t, `echo "$@"`)
	helm := NewHelm("platform", "https://charts.example.com", filepath.Join(t.TempDir(), "index.yaml"), WithBinary(bin))

	proc, err := helm.UpgradeInstall(
		context.Background(),
		"rstudio-alice", "platform/rstudio", "user-alice",
		map[string]string{"username": "alice", "aws.iamRole": "dev_user_alice"},
		true,
	)
	if err != nil {
		t.Fatal(err)
	}
	stdout, code, err := proc.Wait()
	if err != nil || code != 0 {
		t.Fatalf("wait: code=%d err=%v", code, err)
	}

	for _, want := range []string{
		"upgrade --install rstudio-alice platform/rstudio",
		"--namespace user-alice",
		"--wait",
		"--set aws.iamRole=dev_user_alice",
		"--set username=alice",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("command line missing %q: %q", want, stdout)
		}
	}
}

func TestSanitisedEnv_DropsDebug(t *testing.T) {
	t.Setenv("DEBUG", "1")
	for _, kv := range sanitisedEnv() {
		if strings.HasPrefix(kv, "DEBUG=") {
			t.Fatal("DEBUG leaked into the helm environment")
		}
	}
}
