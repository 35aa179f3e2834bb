package cluster

import (
	"context"
	"os/exec"
	"testing"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

type mockK8sClient struct {
	t    *testing.T
	Impl struct {
		ListDeployments   func(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.Deployment, error)
		DeleteReplicaSets func(ctx context.Context, namespace string, labelSelector string) error
	}
	Calls struct {
		DeleteReplicaSets []string
	}
}

var _ K8sClient = &mockK8sClient{}

func (m *mockK8sClient) ListDeployments(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.Deployment, error) {
	if m.Impl.ListDeployments == nil {
		m.t.Fatal("ListDeployments should not be called")
	}
	return m.Impl.ListDeployments(ctx, namespace, labelSelector)
}

func (m *mockK8sClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	m.t.Fatal("GetDeployment should not be called")
	return nil, nil
}

func (m *mockK8sClient) ListPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error) {
	m.t.Fatal("ListPods should not be called")
	return nil, nil
}

func (m *mockK8sClient) DeleteReplicaSets(ctx context.Context, namespace string, labelSelector string) error {
	m.Calls.DeleteReplicaSets = append(m.Calls.DeleteReplicaSets, labelSelector)
	if m.Impl.DeleteReplicaSets == nil {
		return nil
	}
	return m.Impl.DeleteReplicaSets(ctx, namespace, labelSelector)
}

func deploymentFixture(available int32, labels map[string]string) kubeapps.Deployment {
	d := kubeapps.Deployment{}
	d.Labels = labels
	d.Status.AvailableReplicas = available
	return d
}

func TestTracker_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("running subprocess means deploying", func(t *testing.T) {
		mock := &mockK8sClient{t: t}
		tracker := NewTracker(mock)

		proc := newProc(exec.Command("/bin/sh", "-c", "sleep 5"))
		if err := proc.start(); err != nil {
			t.Fatal(err)
		}
		defer proc.cmd.Process.Kill()
		tracker.Track("user-alice", "rstudio-alice", proc)

		status, err := tracker.Status(ctx, "user-alice", "rstudio-alice")
		if err != nil {
			t.Fatal(err)
		}
		if status != domain.StatusDeploying {
			t.Errorf("status: got %v, want DEPLOYING", status)
		}
	})

	t.Run("failed subprocess means deploy failed", func(t *testing.T) {
		mock := &mockK8sClient{t: t}
		tracker := NewTracker(mock)

		proc := newProc(exec.Command("/bin/sh", "-c", "exit 1"))
		if err := proc.start(); err != nil {
			t.Fatal(err)
		}
		proc.Wait()
		tracker.Track("user-alice", "rstudio-alice", proc)

		status, err := tracker.Status(ctx, "user-alice", "rstudio-alice")
		if err != nil {
			t.Fatal(err)
		}
		if status != domain.StatusDeployFailed {
			t.Errorf("status: got %v, want DEPLOY_FAILED", status)
		}
	})

	t.Run("successful subprocess falls back to the cluster", func(t *testing.T) {
		mock := &mockK8sClient{t: t}
		mock.Impl.ListDeployments = func(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{deploymentFixture(1, nil)}, nil
		}
		tracker := NewTracker(mock)

		proc := newProc(exec.Command("/bin/sh", "-c", "exit 0"))
		if err := proc.start(); err != nil {
			t.Fatal(err)
		}
		proc.Wait()
		tracker.Track("user-alice", "rstudio-alice", proc)

		status, err := tracker.Status(ctx, "user-alice", "rstudio-alice")
		if err != nil {
			t.Fatal(err)
		}
		if status != domain.StatusReady {
			t.Errorf("status: got %v, want READY", status)
		}
	})

	for name, testcase := range map[string]struct {
		deployments []kubeapps.Deployment
		want        domain.ToolStatus
	}{
		"no deployment means absent": {
			deployments: nil,
			want:        domain.StatusAbsent,
		},
		"idled label wins": {
			deployments: []kubeapps.Deployment{
				deploymentFixture(0, map[string]string{IdledLabel: "true"}),
			},
			want: domain.StatusIdled,
		},
		"available replicas mean ready": {
			deployments: []kubeapps.Deployment{deploymentFixture(2, nil)},
			want:        domain.StatusReady,
		},
		"no available replicas mean unidling": {
			deployments: []kubeapps.Deployment{deploymentFixture(0, nil)},
			want:        domain.StatusUnidling,
		},
	} {
		t.Run(name, func(t *testing.T) {
			mock := &mockK8sClient{t: t}
			mock.Impl.ListDeployments = func(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.Deployment, error) {
				if namespace != "user-alice" {
					t.Errorf("namespace: got %q", namespace)
				}
				return testcase.deployments, nil
			}
			tracker := NewTracker(mock)

			status, err := tracker.Status(ctx, "user-alice", "rstudio-alice")
			if err != nil {
				t.Fatal(err)
			}
			if status != testcase.want {
				t.Errorf("status: got %v, want %v", status, testcase.want)
			}
		})
	}
}

func TestTracker_Restart(t *testing.T) {
	mock := &mockK8sClient{t: t}
	tracker := NewTracker(mock)

	if err := tracker.Restart(context.Background(), "user-alice", "rstudio-alice"); err != nil {
		t.Fatal(err)
	}
	if len(mock.Calls.DeleteReplicaSets) != 1 {
		t.Fatalf("DeleteReplicaSets calls: got %d, want 1", len(mock.Calls.DeleteReplicaSets))
	}
	if got := mock.Calls.DeleteReplicaSets[0]; got != "app.kubernetes.io/instance=rstudio-alice" {
		t.Errorf("selector: got %q", got)
	}
}
