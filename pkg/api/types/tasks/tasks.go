package tasks

import (
	"time"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Detail is the API representation of a queued task.
type Detail struct {
	ID                string     `json:"task_id"`
	EntityClass       string     `json:"entity_class"`
	EntityID          string     `json:"entity_id"`
	EntityDescription string     `json:"entity_description"`
	UserSub           string     `json:"user_id"`
	Name              string     `json:"task_name"`
	Queue             string     `json:"queue_name"`
	Completed         bool       `json:"completed"`
	Cancelled         bool       `json:"cancelled"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created"`
	RetriedAt         *time.Time `json:"retried,omitempty"`
}

// Lifecycle states a task is presented in. An incomplete task past
// the age cut-off will never run again, so it reads as failed.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

func statusOf(t domain.Task, now time.Time) string {
	switch {
	case t.Cancelled:
		return StatusCancelled
	case t.Completed:
		return StatusCompleted
	case t.AgedOut(now, domain.TaskAgeCutoff):
		return StatusFailed
	case t.RetriedAt != nil:
		return StatusRetrying
	}
	return StatusPending
}

func ComposeDetail(t domain.Task) Detail {
	return composeDetailAt(t, time.Now())
}

func composeDetailAt(t domain.Task, now time.Time) Detail {
	return Detail{
		ID:                t.ID,
		EntityClass:       t.EntityClass,
		EntityID:          t.EntityID,
		EntityDescription: t.EntityDescription,
		UserSub:           t.UserSub,
		Name:              t.Name,
		Queue:             string(t.Queue),
		Completed:         t.Completed,
		Cancelled:         t.Cancelled,
		Status:            statusOf(t, now),
		CreatedAt:         t.CreatedAt,
		RetriedAt:         t.RetriedAt,
	}
}
