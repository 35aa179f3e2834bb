package db

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Query filters task listings.
type Query struct {
	// UserSub restricts to one submitter when non-empty.
	UserSub string

	// IncompleteOnly drops completed and cancelled tasks.
	IncompleteOnly bool
}

// Interface is the durable-task repository. A row is written before
// the broker send, so a send failure leaves a discoverable
// incomplete task.
type Interface interface {
	// Get fetches a task by id.
	//
	// Returns domain/errors.ErrMissing when no such task exists.
	Get(ctx context.Context, id string) (domain.Task, error)

	// Find lists tasks matching the query, newest first.
	Find(ctx context.Context, query Query) ([]domain.Task, error)

	// Register inserts a task row.
	Register(ctx context.Context, task domain.Task) error

	// Complete flips the completed flag.
	Complete(ctx context.Context, id string) error

	// Cancel flips the cancelled flag. Completed tasks stay completed.
	Cancel(ctx context.Context, id string) error

	// MarkRetried timestamps the most recent redelivery.
	MarkRetried(ctx context.Context, id string) error
}
