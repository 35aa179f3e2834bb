package domain

import "time"

// ToolRelease is one installable (chart, version) of an analytical
// tool, with curated values overrides.
type ToolRelease struct {
	ID          int
	Chart       string
	Name        string
	Version     string
	Description string

	// JSON-object values overrides applied at install
	Values map[string]string

	// Restricted releases are visible only to TargetUsers.
	Restricted  bool
	TargetUsers []string
	TargetInfra string
}

// VisibleTo reports whether the release is offered to the given user.
func (r ToolRelease) VisibleTo(username string) bool {
	if !r.Restricted {
		return true
	}
	for _, u := range r.TargetUsers {
		if u == username {
			return true
		}
	}
	return false
}

// ToolStatus is the observable lifecycle of one deployed tool.
//
//	ABSENT -> DEPLOYING -> READY | DEPLOY_FAILED
//	READY -> RESTARTING -> READY
//	* -> UNINSTALLING -> ABSENT
//
// IDLED and UNIDLING are reported from a cluster label owned by an
// external idler; the platform reads the label but never writes it.
type ToolStatus string

const (
	StatusAbsent       ToolStatus = "ABSENT"
	StatusDeploying    ToolStatus = "DEPLOYING"
	StatusDeployFailed ToolStatus = "DEPLOY_FAILED"
	StatusReady        ToolStatus = "READY"
	StatusIdled        ToolStatus = "IDLED"
	StatusUnidling     ToolStatus = "UNIDLING"
	StatusRestarting   ToolStatus = "RESTARTING"
	StatusUninstalling ToolStatus = "UNINSTALLING"
)

// ToolDeployment is one logical live deployment of a release for a
// user. The Helm subprocess handle is transient state tracked by the
// cluster adapter, never persisted.
type ToolDeployment struct {
	ID        int
	ReleaseID int
	UserSub   string

	// chart replaced by this deployment, set when an install must
	// uninstall an older chart name first
	OldChart  string
	CreatedAt time.Time
}
