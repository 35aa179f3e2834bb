package orchestrator_test

import (
	"testing"

	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
)

func TestHub_PublishReachesOnlyThatUser(t *testing.T) {
	hub := orchestrator.NewHub()

	aliceEvents, cancelAlice := hub.Subscribe("github|alice")
	defer cancelAlice()
	bobEvents, cancelBob := hub.Subscribe("github|bob")
	defer cancelBob()

	hub.Publish("github|alice", orchestrator.TaskCompleted("alice-bucket"))

	select {
	case event := <-aliceEvents:
		if event.Data.EntityName != "alice-bucket" {
			t.Errorf("unexpected event: %+v", event)
		}
	default:
		t.Error("alice did not receive her event")
	}

	select {
	case event := <-bobEvents:
		t.Errorf("bob received alice's event: %+v", event)
	default:
	}
}

func TestHub_CancelledSubscriberStopsReceiving(t *testing.T) {
	hub := orchestrator.NewHub()

	events, cancel := hub.Subscribe("github|alice")
	cancel()

	hub.Publish("github|alice", orchestrator.TaskCompleted("alice-bucket"))

	select {
	case event := <-events:
		t.Errorf("cancelled subscriber received %+v", event)
	default:
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := orchestrator.NewHub()

	events, cancel := hub.Subscribe("github|alice")
	defer cancel()

	// channel buffer is 16; the rest must be dropped without blocking
	for i := 0; i < 40; i++ {
		hub.Publish("github|alice", orchestrator.TaskCompleted("alice-bucket"))
	}

	received := 0
	for {
		select {
		case <-events:
			received++
			continue
		default:
		}
		break
	}
	if received == 0 || received > 16 {
		t.Errorf("received %d events, want 1..16", received)
	}
}
