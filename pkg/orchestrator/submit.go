package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	ktask "github.com/analytical-platform/controlpanel/pkg/domain/task/db"
)

// QueueFor maps a task name to its queue. Queue selection is a
// property of the task type, never of the caller.
func QueueFor(taskName string) (domain.QueueName, error) {
	switch taskName {
	case domain.TaskAppCreateRole,
		domain.TaskS3GrantToUser, domain.TaskS3GrantToApp,
		domain.TaskS3RevokeFromUser, domain.TaskS3RevokeFromApp,
		domain.TaskPolicyUpdateForAllUsers:
		return domain.IAMQueue, nil
	case domain.TaskAppCreateAuth:
		return domain.AuthQueue, nil
	case domain.TaskS3CreateBucket, domain.TaskS3ArchiveBucket:
		return domain.S3Queue, nil
	case domain.TaskToolDeploy, domain.TaskToolRestart,
		domain.TaskToolUninstall, domain.TaskUserResetHome:
		return domain.DefaultQueue, nil
	default:
		return "", fmt.Errorf("unknown task name %q", taskName)
	}
}

// Sender is the broker surface Submit needs.
type Sender interface {
	Send(ctx context.Context, queue domain.QueueName, payload string) error
}

// Submission describes one task to queue.
type Submission struct {
	Name              string
	EntityClass       string
	EntityID          string
	EntityDescription string
	UserSub           string
	Args              []interface{}
	Kwargs            map[string]interface{}
}

// Submitter queues durable tasks. The task row is written before the
// broker send, so a failed send leaves a discoverable incomplete row
// rather than silent loss.
type Submitter struct {
	tasks  ktask.Interface
	sender Sender
	logger *log.Logger
}

func NewSubmitter(tasks ktask.Interface, sender Sender, logger *log.Logger) *Submitter {
	return &Submitter{tasks: tasks, sender: sender, logger: logger}
}

func (s *Submitter) Submit(ctx context.Context, submission Submission) (domain.Task, error) {
	queue, err := QueueFor(submission.Name)
	if err != nil {
		return domain.Task{}, err
	}

	msg := Message{
		ID:     uuid.NewString(),
		Name:   submission.Name,
		Queue:  queue,
		Args:   submission.Args,
		Kwargs: submission.Kwargs,
	}
	payload, err := EncodeFrame(msg)
	if err != nil {
		return domain.Task{}, err
	}

	task := domain.Task{
		ID:                msg.ID,
		EntityClass:       submission.EntityClass,
		EntityID:          submission.EntityID,
		EntityDescription: submission.EntityDescription,
		UserSub:           submission.UserSub,
		Name:              submission.Name,
		Queue:             queue,
		MessageBody:       payload,
	}
	if err := s.tasks.Register(ctx, task); err != nil {
		return domain.Task{}, err
	}

	if err := s.sender.Send(ctx, queue, payload); err != nil {
		// the incomplete row surfaces the failed delivery
		s.logger.Printf("task %s (%s): broker send failed: %s", task.ID, task.Name, err)
		return domain.Task{}, err
	}

	s.logger.Printf("task %s (%s) queued on %s for entity %s", task.ID, task.Name, queue, task.EntityDescription)
	return task, nil
}
