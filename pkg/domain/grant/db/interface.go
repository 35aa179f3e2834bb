package db

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Interface is the bucket-grant repository, covering user, app and
// managed-policy grants. A grant row records WHO may access WHICH
// bucket at WHAT level; the cloud-side policy document is owned by
// the policy package and converges onto these rows.
type Interface interface {
	// GetUserGrant fetches a user grant by id, joined with the
	// grantee's username.
	GetUserGrant(ctx context.Context, id int) (domain.UserBucketGrant, error)

	// FindUserGrantsByBucket lists user grants against one bucket.
	FindUserGrantsByBucket(ctx context.Context, bucket string) ([]domain.UserBucketGrant, error)

	// FindUserGrantsByUser lists a user's grants.
	FindUserGrantsByUser(ctx context.Context, sub string) ([]domain.UserBucketGrant, error)

	// RegisterUserGrant inserts a user grant and returns it with the
	// assigned id. A duplicate (user, bucket) pair is a conflict.
	RegisterUserGrant(ctx context.Context, grant domain.UserBucketGrant) (domain.UserBucketGrant, error)

	// UpdateUserGrant rewrites the level and paths of a grant.
	UpdateUserGrant(ctx context.Context, id int, level domain.AccessLevel, paths []string) (domain.UserBucketGrant, error)

	// DeleteUserGrant removes a user grant.
	DeleteUserGrant(ctx context.Context, id int) error

	GetAppGrant(ctx context.Context, id int) (domain.AppBucketGrant, error)
	FindAppGrantsByBucket(ctx context.Context, bucket string) ([]domain.AppBucketGrant, error)
	FindAppGrantsByApp(ctx context.Context, appID int) ([]domain.AppBucketGrant, error)
	RegisterAppGrant(ctx context.Context, grant domain.AppBucketGrant) (domain.AppBucketGrant, error)
	UpdateAppGrant(ctx context.Context, id int, level domain.AccessLevel, paths []string) (domain.AppBucketGrant, error)
	DeleteAppGrant(ctx context.Context, id int) error

	FindPolicyGrantsByBucket(ctx context.Context, bucket string) ([]domain.PolicyBucketGrant, error)
	RegisterPolicyGrant(ctx context.Context, grant domain.PolicyBucketGrant) (domain.PolicyBucketGrant, error)
	DeletePolicyGrant(ctx context.Context, id int) error

	// FindGrantsByBucket returns every grant of every kind against one
	// bucket, for archive-time revocation.
	FindGrantsByBucket(ctx context.Context, bucket string) ([]domain.Grant, error)
}
