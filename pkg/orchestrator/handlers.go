package orchestrator

import (
	"fmt"
	"log"
	"time"

	"github.com/analytical-platform/controlpanel/pkg/cloud"
	"github.com/analytical-platform/controlpanel/pkg/cluster"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	kapp "github.com/analytical-platform/controlpanel/pkg/domain/app/db"
	kbucket "github.com/analytical-platform/controlpanel/pkg/domain/bucket/db"
	kgrant "github.com/analytical-platform/controlpanel/pkg/domain/grant/db"
	kpolicydb "github.com/analytical-platform/controlpanel/pkg/domain/policy/db"
	ktool "github.com/analytical-platform/controlpanel/pkg/domain/tool/db"
	kuser "github.com/analytical-platform/controlpanel/pkg/domain/user/db"
	"github.com/analytical-platform/controlpanel/pkg/identity"
	"github.com/analytical-platform/controlpanel/pkg/policy"
)

// Handlers holds the planes and repositories the task bodies act on.
// Every handler is idempotent: a redelivered task converges instead
// of duplicating side-effects.
type Handlers struct {
	Env string

	Buckets  *cloud.Buckets
	Roles    *cloud.Roles
	Policies *policy.Manager
	Identity identity.Client

	Helm    *cluster.Helm
	Index   *cluster.ChartIndex
	Tracker *cluster.Tracker

	UserDB   kuser.Interface
	AppDB    kapp.Interface
	BucketDB kbucket.Interface
	GrantDB  kgrant.Interface
	PolicyDB kpolicydb.Interface
	ToolDB   ktool.Interface

	// policy names attached to every newly-created app role
	AppBasePolicies []string

	// external callback URL template for app auth, e.g.
	// "https://%s.apps.example.com/callback"
	AppCallbackTemplate string

	UninstallTimeout time.Duration

	Logger *log.Logger
}

// RegisterAll wires every task name to its handler.
func (h *Handlers) RegisterAll(registry *Registry) {
	registry.Register(domain.TaskAppCreateRole, h.AppCreateRole)
	registry.Register(domain.TaskAppCreateAuth, h.AppCreateAuth)
	registry.Register(domain.TaskS3CreateBucket, h.S3CreateBucket)
	registry.Register(domain.TaskS3ArchiveBucket, h.S3ArchiveBucket)
	registry.Register(domain.TaskS3GrantToUser, h.S3GrantToUser)
	registry.Register(domain.TaskS3GrantToApp, h.S3GrantToApp)
	registry.Register(domain.TaskS3RevokeFromUser, h.S3RevokeFromUser)
	registry.Register(domain.TaskS3RevokeFromApp, h.S3RevokeFromApp)
	registry.Register(domain.TaskPolicyUpdateForAllUsers, h.PolicyUpdateForAllUsers)
	registry.Register(domain.TaskToolDeploy, h.ToolDeploy)
	registry.Register(domain.TaskToolRestart, h.ToolRestart)
	registry.Register(domain.TaskToolUninstall, h.ToolUninstall)
	registry.Register(domain.TaskUserResetHome, h.UserResetHome)
}

// kwString reads a string kwarg; a missing key is a permanent error
// because retrying cannot fix a malformed submission.
func kwString(kwargs map[string]interface{}, key string) (string, error) {
	v, ok := kwargs[key]
	if !ok {
		return "", fmt.Errorf("missing kwarg %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("kwarg %q is not a string", key)
	}
	return s, nil
}

// kwInt reads an integer kwarg. JSON numbers decode as float64.
func kwInt(kwargs map[string]interface{}, key string) (int, error) {
	v, ok := kwargs[key]
	if !ok {
		return 0, fmt.Errorf("missing kwarg %q", key)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("kwarg %q is not a number", key)
	}
}

func kwBool(kwargs map[string]interface{}, key string) (bool, error) {
	v, ok := kwargs[key]
	if !ok {
		return false, fmt.Errorf("missing kwarg %q", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("kwarg %q is not a boolean", key)
	}
	return b, nil
}
