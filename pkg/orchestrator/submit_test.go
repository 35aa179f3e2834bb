package orchestrator_test

import (
	"context"
	"errors"
	"log"
	"testing"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/domain/task/db/mocks"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
)

type sendCall struct {
	Queue   domain.QueueName
	Payload string
}

type fakeSender struct {
	calls []sendCall
	err   error
}

func (s *fakeSender) Send(ctx context.Context, queue domain.QueueName, payload string) error {
	s.calls = append(s.calls, sendCall{Queue: queue, Payload: payload})
	return s.err
}

func TestQueueFor(t *testing.T) {
	for taskName, want := range map[string]domain.QueueName{
		domain.TaskAppCreateRole:           domain.IAMQueue,
		domain.TaskS3GrantToUser:           domain.IAMQueue,
		domain.TaskS3GrantToApp:            domain.IAMQueue,
		domain.TaskS3RevokeFromUser:        domain.IAMQueue,
		domain.TaskS3RevokeFromApp:         domain.IAMQueue,
		domain.TaskPolicyUpdateForAllUsers: domain.IAMQueue,
		domain.TaskAppCreateAuth:           domain.AuthQueue,
		domain.TaskS3CreateBucket:          domain.S3Queue,
		domain.TaskS3ArchiveBucket:         domain.S3Queue,
		domain.TaskToolDeploy:              domain.DefaultQueue,
		domain.TaskToolRestart:             domain.DefaultQueue,
		domain.TaskToolUninstall:           domain.DefaultQueue,
		domain.TaskUserResetHome:           domain.DefaultQueue,
	} {
		got, err := orchestrator.QueueFor(taskName)
		if err != nil {
			t.Errorf("%s: %s", taskName, err)
			continue
		}
		if got != want {
			t.Errorf("%s: got %s, want %s", taskName, got, want)
		}
	}

	if _, err := orchestrator.QueueFor("no.such.task"); err == nil {
		t.Error("unknown task name should be rejected")
	}
}

func TestSubmitter_RowBeforeSend(t *testing.T) {
	ctx := context.Background()

	tasks := mocks.NewTaskDBMock()
	sender := &fakeSender{}
	tasks.Impl.Register = func(ctx context.Context, task domain.Task) error {
		if len(sender.calls) != 0 {
			t.Error("broker send happened before the task row was written")
		}
		return nil
	}

	submitter := orchestrator.NewSubmitter(tasks, sender, log.New(testWriter{t}, "", 0))
	task, err := submitter.Submit(ctx, orchestrator.Submission{
		Name:              domain.TaskS3CreateBucket,
		EntityClass:       "S3Bucket",
		EntityID:          "7",
		EntityDescription: "dev-test-bucket-1",
		UserSub:           "github|1234",
		Kwargs:            map[string]interface{}{"bucket_name": "dev-test-bucket-1"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if task.ID == "" {
		t.Error("task id is empty")
	}
	if task.Queue != domain.S3Queue {
		t.Errorf("queue: got %s", task.Queue)
	}
	if len(tasks.Calls.Register) != 1 {
		t.Fatalf("Register calls: got %d", len(tasks.Calls.Register))
	}
	if len(sender.calls) != 1 {
		t.Fatalf("Send calls: got %d", len(sender.calls))
	}
	if sender.calls[0].Queue != domain.S3Queue {
		t.Errorf("sent on queue %s", sender.calls[0].Queue)
	}
	if sender.calls[0].Payload != tasks.Calls.Register[0].MessageBody {
		t.Error("sent payload differs from the persisted message body")
	}

	msg, err := orchestrator.DecodeFrame(sender.calls[0].Payload)
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != task.ID {
		t.Errorf("frame id %q differs from task id %q", msg.ID, task.ID)
	}
	if msg.Name != domain.TaskS3CreateBucket {
		t.Errorf("frame task name: got %q", msg.Name)
	}
}

func TestSubmitter_SendFailureLeavesRow(t *testing.T) {
	ctx := context.Background()

	tasks := mocks.NewTaskDBMock()
	tasks.Impl.Register = func(ctx context.Context, task domain.Task) error { return nil }
	sender := &fakeSender{err: errors.New("fake sqs outage")}

	submitter := orchestrator.NewSubmitter(tasks, sender, log.New(testWriter{t}, "", 0))
	_, err := submitter.Submit(ctx, orchestrator.Submission{
		Name:   domain.TaskToolDeploy,
		Kwargs: map[string]interface{}{"deployment_id": 1},
	})
	if err == nil {
		t.Fatal("expected send failure to be reported")
	}
	// the row stays: an incomplete task is how the failure surfaces
	if len(tasks.Calls.Register) != 1 {
		t.Errorf("Register calls: got %d", len(tasks.Calls.Register))
	}
	if len(tasks.Calls.Cancel) != 0 {
		t.Error("failed send must not cancel the row")
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
