package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	"github.com/analytical-platform/controlpanel/pkg/domain/task/db/mocks"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
)

// scriptedReceiver hands out each batch once, then cancels the run
// context so Worker.Run returns.
type scriptedReceiver struct {
	cancel  context.CancelFunc
	batches [][]orchestrator.Delivery
	acked   []string
}

func (r *scriptedReceiver) Receive(ctx context.Context, queue domain.QueueName) ([]orchestrator.Delivery, error) {
	if len(r.batches) == 0 {
		r.cancel()
		return nil, ctx.Err()
	}
	batch := r.batches[0]
	r.batches = r.batches[1:]
	return batch, nil
}

func (r *scriptedReceiver) Ack(ctx context.Context, queue domain.QueueName, delivery orchestrator.Delivery) error {
	r.acked = append(r.acked, delivery.Payload)
	return nil
}

func encodeTask(t *testing.T, msg orchestrator.Message) string {
	t.Helper()
	payload, err := orchestrator.EncodeFrame(msg)
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

func runWorker(
	t *testing.T,
	tasks *mocks.TaskDBMock,
	registry *orchestrator.Registry,
	hub *orchestrator.Hub,
	payloads ...string,
) *scriptedReceiver {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries := make([]orchestrator.Delivery, 0, len(payloads))
	for _, payload := range payloads {
		deliveries = append(deliveries, orchestrator.Delivery{Payload: payload})
	}
	receiver := &scriptedReceiver{cancel: cancel, batches: [][]orchestrator.Delivery{deliveries}}

	worker := orchestrator.NewWorker(
		domain.DefaultQueue, receiver, tasks, registry, hub,
		log.New(testWriter{t}, "", 0),
	)
	if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	return receiver
}

func TestWorker_CompletesAndPublishes(t *testing.T) {
	msg := orchestrator.Message{
		ID:    "task-0001",
		Name:  domain.TaskUserResetHome,
		Queue: domain.DefaultQueue,
	}
	payload := encodeTask(t, msg)

	tasks := mocks.NewTaskDBMock()
	tasks.Impl.Get = func(ctx context.Context, id string) (domain.Task, error) {
		return domain.Task{
			ID: id, Name: msg.Name,
			UserSub:           "github|1234",
			EntityDescription: "alice",
			CreatedAt:         time.Now(),
		}, nil
	}
	tasks.Impl.Complete = func(ctx context.Context, id string) error { return nil }

	handled := 0
	registry := orchestrator.NewRegistry()
	registry.Register(domain.TaskUserResetHome, func(ctx context.Context, msg orchestrator.Message, run *orchestrator.Run) orchestrator.Outcome {
		handled++
		return orchestrator.Ok()
	})

	hub := orchestrator.NewHub()
	events, unsubscribe := hub.Subscribe("github|1234")
	defer unsubscribe()

	receiver := runWorker(t, tasks, registry, hub, payload)

	if handled != 1 {
		t.Errorf("handler ran %d times", handled)
	}
	if want := []string{"task-0001"}; len(tasks.Calls.Complete) != 1 || tasks.Calls.Complete[0] != want[0] {
		t.Errorf("Complete calls: got %v", tasks.Calls.Complete)
	}
	if len(receiver.acked) != 1 {
		t.Errorf("acked %d deliveries, want 1", len(receiver.acked))
	}

	select {
	case event := <-events:
		if event.Event != "taskStatus" || event.Data.Status != "COMPLETED" || event.Data.EntityName != "alice" {
			t.Errorf("unexpected event: %+v", event)
		}
	default:
		t.Error("no completion event published")
	}
}

func TestWorker_RetryLeavesDeliveryUnacked(t *testing.T) {
	msg := orchestrator.Message{ID: "task-0002", Name: domain.TaskToolDeploy, Queue: domain.DefaultQueue}
	payload := encodeTask(t, msg)

	tasks := mocks.NewTaskDBMock()
	tasks.Impl.Get = func(ctx context.Context, id string) (domain.Task, error) {
		return domain.Task{ID: id, Name: msg.Name, CreatedAt: time.Now()}, nil
	}
	tasks.Impl.MarkRetried = func(ctx context.Context, id string) error { return nil }

	registry := orchestrator.NewRegistry()
	registry.Register(domain.TaskToolDeploy, func(ctx context.Context, msg orchestrator.Message, run *orchestrator.Run) orchestrator.Outcome {
		return orchestrator.Retry(errors.New("fake throttle"))
	})

	receiver := runWorker(t, tasks, registry, orchestrator.NewHub(), payload)

	if len(receiver.acked) != 0 {
		t.Errorf("retrying delivery must not be acked; acked %d", len(receiver.acked))
	}
	if len(tasks.Calls.MarkRetried) != 1 {
		t.Errorf("MarkRetried calls: got %v", tasks.Calls.MarkRetried)
	}
	if len(tasks.Calls.Complete) != 0 {
		t.Error("retrying task must not be completed")
	}
}

func TestWorker_PermanentFailureAcks(t *testing.T) {
	msg := orchestrator.Message{ID: "task-0003", Name: domain.TaskToolDeploy, Queue: domain.DefaultQueue}
	payload := encodeTask(t, msg)

	tasks := mocks.NewTaskDBMock()
	tasks.Impl.Get = func(ctx context.Context, id string) (domain.Task, error) {
		return domain.Task{ID: id, Name: msg.Name, CreatedAt: time.Now()}, nil
	}

	registry := orchestrator.NewRegistry()
	registry.Register(domain.TaskToolDeploy, func(ctx context.Context, msg orchestrator.Message, run *orchestrator.Run) orchestrator.Outcome {
		return orchestrator.Fail(errors.New("bad kwargs"))
	})

	receiver := runWorker(t, tasks, registry, orchestrator.NewHub(), payload)

	if len(receiver.acked) != 1 {
		t.Errorf("permanently failed delivery should be acked; acked %d", len(receiver.acked))
	}
	// the row stays incomplete so the failure is discoverable
	if len(tasks.Calls.Complete) != 0 {
		t.Error("failed task must not be completed")
	}
}

func TestWorker_SkipsTerminalAndAgedTasks(t *testing.T) {
	for name, task := range map[string]domain.Task{
		"completed": {ID: "task-0004", Completed: true, CreatedAt: time.Now()},
		"cancelled": {ID: "task-0004", Cancelled: true, CreatedAt: time.Now()},
		"aged out":  {ID: "task-0004", CreatedAt: time.Now().Add(-domain.TaskAgeCutoff - time.Hour)},
	} {
		t.Run(name, func(t *testing.T) {
			payload := encodeTask(t, orchestrator.Message{
				ID: "task-0004", Name: domain.TaskToolRestart, Queue: domain.DefaultQueue,
			})

			stored := task
			tasks := mocks.NewTaskDBMock()
			tasks.Impl.Get = func(ctx context.Context, id string) (domain.Task, error) {
				return stored, nil
			}

			registry := orchestrator.NewRegistry()
			registry.Register(domain.TaskToolRestart, func(ctx context.Context, msg orchestrator.Message, run *orchestrator.Run) orchestrator.Outcome {
				t.Error("handler must not run")
				return orchestrator.Ok()
			})

			receiver := runWorker(t, tasks, registry, orchestrator.NewHub(), payload)
			if len(receiver.acked) != 1 {
				t.Errorf("delivery should be acked and dropped; acked %d", len(receiver.acked))
			}
		})
	}
}

func TestWorker_UnknownTaskRowDropped(t *testing.T) {
	payload := encodeTask(t, orchestrator.Message{
		ID: "task-9999", Name: domain.TaskToolRestart, Queue: domain.DefaultQueue,
	})

	tasks := mocks.NewTaskDBMock()
	tasks.Impl.Get = func(ctx context.Context, id string) (domain.Task, error) {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, domerr.ErrMissing)
	}

	registry := orchestrator.NewRegistry()
	receiver := runWorker(t, tasks, registry, orchestrator.NewHub(), payload)
	if len(receiver.acked) != 1 {
		t.Errorf("delivery without a row should be dropped; acked %d", len(receiver.acked))
	}
}

func TestWorker_UndecodableDeliveryDropped(t *testing.T) {
	tasks := mocks.NewTaskDBMock()
	registry := orchestrator.NewRegistry()

	receiver := runWorker(t, tasks, registry, orchestrator.NewHub(), "not a frame")
	if len(receiver.acked) != 1 {
		t.Errorf("undecodable delivery should be acked away; acked %d", len(receiver.acked))
	}
	if len(tasks.Calls.Get) != 0 {
		t.Error("undecodable delivery must not hit the store")
	}
}
