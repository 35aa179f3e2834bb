package domain

import (
	"fmt"
	"regexp"

	"github.com/analytical-platform/controlpanel/pkg/naming"
)

type AccessLevel string

const (
	ReadOnly  AccessLevel = "readonly"
	ReadWrite AccessLevel = "readwrite"
)

func (a AccessLevel) String() string {
	return string(a)
}

func AsAccessLevel(s string) (AccessLevel, error) {
	switch AccessLevel(s) {
	case ReadOnly:
		return ReadOnly, nil
	case ReadWrite:
		return ReadWrite, nil
	}
	return "", fmt.Errorf("unknown access level: %s", s)
}

// CarrierKind selects where a principal's policy document lives.
type CarrierKind string

const (
	// inline policy attached to a single IAM role
	CarrierRolePolicy CarrierKind = "role"

	// standalone customer-managed policy, versioned server-side
	CarrierManagedPolicy CarrierKind = "policy"
)

// PolicyCarrier identifies the policy document a grant is written
// into: an inline role policy or a managed policy, by name.
type PolicyCarrier struct {
	Kind CarrierKind
	Name string
}

// ErrUnknownCarrier signals a PolicyCarrier with a kind outside the
// two supported ones. It is an internal invariant violation.
var ErrUnknownCarrier = fmt.Errorf("unknown policy carrier kind")

var rePath = regexp.MustCompile(`^[A-Za-z0-9_/*-]+$`)

// ValidateGrantPaths checks every path sub-prefix of a grant.
// An empty list is valid and means the whole bucket.
func ValidateGrantPaths(paths []string) error {
	for _, p := range paths {
		if !rePath.MatchString(p) {
			return fmt.Errorf("invalid grant path: %q", p)
		}
	}
	return nil
}

// Grant is a recorded permission of one principal on one bucket.
// Three variants exist, one per principal kind; they share access
// level and optional path sub-prefixes.
type Grant interface {
	BucketName() string
	Level() AccessLevel
	PathPrefixes() []string

	// Carrier returns the policy document this grant is enacted on.
	// env is the environment tag role names are prefixed with.
	Carrier(env string) PolicyCarrier
}

// UserBucketGrant grants a user access to a bucket. At most one row
// exists per (user, bucket); changing level or paths updates in place.
type UserBucketGrant struct {
	ID          int
	UserSub     string
	Username    string
	Bucket      string
	AccessLevel AccessLevel
	Paths       []string
	IsAdmin     bool
}

func (g UserBucketGrant) BucketName() string     { return g.Bucket }
func (g UserBucketGrant) Level() AccessLevel     { return g.AccessLevel }
func (g UserBucketGrant) PathPrefixes() []string { return g.Paths }

func (g UserBucketGrant) Carrier(env string) PolicyCarrier {
	return PolicyCarrier{Kind: CarrierRolePolicy, Name: naming.UserRoleName(env, g.Username)}
}

// AppBucketGrant grants an app role access to a bucket.
type AppBucketGrant struct {
	ID          int
	AppID       int
	AppSlug     string
	Bucket      string
	AccessLevel AccessLevel
	Paths       []string
}

func (g AppBucketGrant) BucketName() string     { return g.Bucket }
func (g AppBucketGrant) Level() AccessLevel     { return g.AccessLevel }
func (g AppBucketGrant) PathPrefixes() []string { return g.Paths }

func (g AppBucketGrant) Carrier(env string) PolicyCarrier {
	return PolicyCarrier{Kind: CarrierRolePolicy, Name: naming.AppRoleName(env, g.AppSlug)}
}

// PolicyBucketGrant grants every role attached to a managed policy
// access to a bucket.
type PolicyBucketGrant struct {
	ID          int
	PolicyName  string
	Bucket      string
	AccessLevel AccessLevel
	Paths       []string
}

func (g PolicyBucketGrant) BucketName() string     { return g.Bucket }
func (g PolicyBucketGrant) Level() AccessLevel     { return g.AccessLevel }
func (g PolicyBucketGrant) PathPrefixes() []string { return g.Paths }

func (g PolicyBucketGrant) Carrier(string) PolicyCarrier {
	return PolicyCarrier{Kind: CarrierManagedPolicy, Name: g.PolicyName}
}

// ObjectARNs expands a grant into the object ARNs its level statement
// carries: the whole bucket when no paths are recorded, otherwise one
// ARN per sub-prefix.
func ObjectARNs(g Grant) []string {
	base := "arn:aws:s3:::" + g.BucketName()
	paths := g.PathPrefixes()
	if len(paths) == 0 {
		return []string{base + "/*"}
	}
	arns := make([]string, len(paths))
	for i, p := range paths {
		arns[i] = base + "/" + p + "/*"
	}
	return arns
}

// BucketARN of the bucket a grant points at, for the list statement.
func BucketARN(g Grant) string {
	return "arn:aws:s3:::" + g.BucketName()
}
