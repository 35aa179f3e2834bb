package grants

import (
	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// UserGrant is the API representation of a user-to-bucket grant.
type UserGrant struct {
	ID          int      `json:"id"`
	UserSub     string   `json:"user_id"`
	Username    string   `json:"username"`
	Bucket      string   `json:"s3bucket"`
	AccessLevel string   `json:"access_level"`
	Paths       []string `json:"paths"`
	IsAdmin     bool     `json:"is_admin"`
}

func ComposeUserGrant(g domain.UserBucketGrant) UserGrant {
	return UserGrant{
		ID:          g.ID,
		UserSub:     g.UserSub,
		Username:    g.Username,
		Bucket:      g.Bucket,
		AccessLevel: string(g.AccessLevel),
		Paths:       g.Paths,
		IsAdmin:     g.IsAdmin,
	}
}

// AppGrant is the API representation of an app-to-bucket grant.
type AppGrant struct {
	ID          int      `json:"id"`
	AppID       int      `json:"app"`
	AppSlug     string   `json:"app_slug"`
	Bucket      string   `json:"s3bucket"`
	AccessLevel string   `json:"access_level"`
	Paths       []string `json:"paths"`
}

func ComposeAppGrant(g domain.AppBucketGrant) AppGrant {
	return AppGrant{
		ID:          g.ID,
		AppID:       g.AppID,
		AppSlug:     g.AppSlug,
		Bucket:      g.Bucket,
		AccessLevel: string(g.AccessLevel),
		Paths:       g.Paths,
	}
}

// PolicyGrant is the API representation of a policy-to-bucket grant.
type PolicyGrant struct {
	ID          int      `json:"id"`
	PolicyName  string   `json:"policy"`
	Bucket      string   `json:"s3bucket"`
	AccessLevel string   `json:"access_level"`
	Paths       []string `json:"paths"`
}

func ComposePolicyGrant(g domain.PolicyBucketGrant) PolicyGrant {
	return PolicyGrant{
		ID:          g.ID,
		PolicyName:  g.PolicyName,
		Bucket:      g.Bucket,
		AccessLevel: string(g.AccessLevel),
		Paths:       g.Paths,
	}
}

// CreationRequest creates or updates a grant. Principal fields are
// mutually exclusive; exactly one must be set on create.
type CreationRequest struct {
	Bucket      string   `json:"s3bucket"`
	UserSub     string   `json:"user_id,omitempty"`
	AppID       int      `json:"app,omitempty"`
	PolicyName  string   `json:"policy,omitempty"`
	AccessLevel string   `json:"access_level"`
	Paths       []string `json:"paths,omitempty"`
	IsAdmin     bool     `json:"is_admin,omitempty"`
}

// UpdateRequest mutates the level or paths of an existing grant.
type UpdateRequest struct {
	AccessLevel string   `json:"access_level"`
	Paths       []string `json:"paths,omitempty"`
}
