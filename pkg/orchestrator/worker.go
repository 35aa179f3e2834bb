package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	ktask "github.com/analytical-platform/controlpanel/pkg/domain/task/db"
)

// Run is the durable state of one executing task, handed to handlers
// so they can observe cancellation at their checkpoints.
type Run struct {
	Task  domain.Task
	tasks ktask.Interface
}

// NewRun binds a task row to the store its cancelled flag is read
// from. The worker builds these; it is exported for handler tests and
// for running a handler outside the consume loop.
func NewRun(task domain.Task, tasks ktask.Interface) *Run {
	return &Run{Task: task, tasks: tasks}
}

// Cancelled re-reads the cancelled flag. Handlers call this between
// steps and exit cleanly when it is set.
func (r *Run) Cancelled(ctx context.Context) bool {
	task, err := r.tasks.Get(ctx, r.Task.ID)
	if err != nil {
		return false
	}
	return task.Cancelled
}

// Receiver is the broker surface the worker consumes through.
type Receiver interface {
	Receive(ctx context.Context, queue domain.QueueName) ([]Delivery, error)
	Ack(ctx context.Context, queue domain.QueueName, delivery Delivery) error
}

// Publisher is where completed tasks announce themselves. The in-process
// Hub satisfies it; workers running apart from the API server use the
// Postgres notifier instead.
type Publisher interface {
	Publish(userSub string, event Event)
}

// Worker consumes one queue and dispatches to registered handlers.
// Each worker executes one task body at a time; parallelism comes
// from running more workers.
type Worker struct {
	queue    domain.QueueName
	broker   Receiver
	tasks    ktask.Interface
	registry *Registry
	hub      Publisher
	logger   *log.Logger
}

func NewWorker(
	queue domain.QueueName,
	broker Receiver,
	tasks ktask.Interface,
	registry *Registry,
	hub Publisher,
	logger *log.Logger,
) *Worker {
	registry.Freeze()
	return &Worker{
		queue:    queue,
		broker:   broker,
		tasks:    tasks,
		registry: registry,
		hub:      hub,
		logger:   logger,
	}
}

// Run consumes until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Printf("consuming %s; handlers: %v", w.queue, w.registry.TaskNames())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := w.broker.Receive(ctx, w.queue)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Printf("receive on %s failed: %s", w.queue, err)
			time.Sleep(time.Second)
			continue
		}

		for _, delivery := range deliveries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if w.process(ctx, delivery) {
				if err := w.broker.Ack(ctx, w.queue, delivery); err != nil {
					w.logger.Printf("ack on %s failed: %s", w.queue, err)
				}
			}
		}
	}
}

// process executes one delivery and reports whether to ack it.
func (w *Worker) process(ctx context.Context, delivery Delivery) bool {
	msg, err := DecodeFrame(delivery.Payload)
	if err != nil {
		w.logger.Printf("dropping undecodable delivery: %s", err)
		return true
	}

	task, err := w.tasks.Get(ctx, msg.ID)
	if errors.Is(err, domerr.ErrMissing) {
		w.logger.Printf("dropping delivery for unknown task %s (%s)", msg.ID, msg.Name)
		return true
	}
	if err != nil {
		w.logger.Printf("task %s: row lookup failed, redelivering: %s", msg.ID, err)
		return false
	}

	if task.Completed || task.Cancelled {
		return true
	}
	if task.AgedOut(time.Now(), domain.TaskAgeCutoff) {
		w.logger.Printf("task %s (%s) aged out after %s; dropping", task.ID, task.Name, domain.TaskAgeCutoff)
		return true
	}

	handler, ok := w.registry.Lookup(msg.Name)
	if !ok {
		w.logger.Printf("task %s: no handler for %q; dropping", task.ID, msg.Name)
		return true
	}

	outcome := handler(ctx, msg, &Run{Task: task, tasks: w.tasks})
	switch {
	case outcome.Completed():
		if err := w.tasks.Complete(ctx, task.ID); err != nil {
			w.logger.Printf("task %s: completion write failed, redelivering: %s", task.ID, err)
			return false
		}
		w.hub.Publish(task.UserSub, TaskCompleted(task.EntityDescription))
		w.logger.Printf("task %s (%s) completed", task.ID, task.Name)
		return true
	case outcome.ShouldRetry():
		w.logger.Printf("task %s (%s) will retry: %s", task.ID, task.Name, outcome.Err())
		if err := w.tasks.MarkRetried(ctx, task.ID); err != nil {
			w.logger.Printf("task %s: retry timestamp failed: %s", task.ID, err)
		}
		return false
	default:
		w.logger.Printf("task %s (%s) failed permanently: %s", task.ID, task.Name, outcome.Err())
		return true
	}
}
