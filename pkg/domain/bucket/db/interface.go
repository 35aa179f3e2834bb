package db

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Interface is the bucket repository. Bucket names are primary keys;
// the naming package validates them before any row is written.
type Interface interface {
	// Get fetches a bucket by name.
	//
	// Returns domain/errors.ErrMissing when no such bucket exists.
	Get(ctx context.Context, name string) (domain.Bucket, error)

	// Find lists buckets, ordered by name. Archived buckets are
	// included only when includeArchived is set.
	Find(ctx context.Context, includeArchived bool) ([]domain.Bucket, error)

	// Register inserts a bucket row.
	//
	// Returns domain/errors.ErrConflict when the name is taken.
	Register(ctx context.Context, bucket domain.Bucket) error

	// SetLocation records the object-storage location after the
	// cloud-side create.
	SetLocation(ctx context.Context, name string, location string) error

	// Archive flags the bucket archived. Rows are never deleted.
	Archive(ctx context.Context, name string) error
}
