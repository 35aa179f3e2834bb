package cluster

import (
	"context"
	"fmt"
	"sync"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

type deployKey struct {
	Namespace string
	Release   string
}

// Tracker resolves the observable status of deployed tools. It keeps
// the most recent install subprocess per release in memory; a handle
// is never shared across processes, so a restarted control panel falls
// back to cluster inspection.
type Tracker struct {
	client K8sClient

	mu    sync.Mutex
	procs map[deployKey]*Proc
}

func NewTracker(client K8sClient) *Tracker {
	return &Tracker{
		client: client,
		procs:  map[deployKey]*Proc{},
	}
}

// Track records the live install subprocess for a release, replacing
// any previous handle.
func (t *Tracker) Track(namespace string, release string, proc *Proc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs[deployKey{Namespace: namespace, Release: release}] = proc
}

// Forget drops the tracked subprocess, after an uninstall.
func (t *Tracker) Forget(namespace string, release string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, deployKey{Namespace: namespace, Release: release})
}

func (t *Tracker) proc(namespace string, release string) *Proc {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.procs[deployKey{Namespace: namespace, Release: release}]
}

// Status reports the lifecycle state of one release. A running install
// subprocess means DEPLOYING, a failed one DEPLOY_FAILED; otherwise
// the cluster is inspected: no deployment is ABSENT, the idled label
// IDLED, available replicas READY, and a deployment still scaling up
// UNIDLING.
func (t *Tracker) Status(ctx context.Context, namespace string, release string) (domain.ToolStatus, error) {
	if proc := t.proc(namespace, release); proc != nil {
		switch proc.State() {
		case ProcPending, ProcRunning:
			return domain.StatusDeploying, nil
		case ProcDone:
			if _, code := proc.Done(); code != 0 {
				return domain.StatusDeployFailed, nil
			}
		}
	}

	deployments, err := t.client.ListDeployments(ctx, namespace, releaseSelector(release))
	if err != nil {
		return "", err
	}
	if len(deployments) == 0 {
		return domain.StatusAbsent, nil
	}

	deployment := deployments[0]
	if deployment.Labels[IdledLabel] == "true" {
		return domain.StatusIdled, nil
	}
	if deployment.Status.AvailableReplicas > 0 {
		return domain.StatusReady, nil
	}
	return domain.StatusUnidling, nil
}

// releaseSelector matches the pods and deployments installed by a
// Helm release.
func releaseSelector(release string) string {
	return fmt.Sprintf("app.kubernetes.io/instance=%s", release)
}

// Restart deletes the replica sets of a release; their deployment
// recreates the pods.
func (t *Tracker) Restart(ctx context.Context, namespace string, release string) error {
	return t.client.DeleteReplicaSets(ctx, namespace, releaseSelector(release))
}
