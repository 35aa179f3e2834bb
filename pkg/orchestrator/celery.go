// Package orchestrator is the durable task queue: submission on the
// request path, a celery-compatible wire frame over the broker, and
// the worker-side dispatch loop with its handlers.
package orchestrator

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Message is one task on the wire, before framing.
type Message struct {
	ID     string
	Name   string
	Queue  domain.QueueName
	Args   []interface{}
	Kwargs map[string]interface{}
}

// The frame layout is fixed by the existing worker ecosystem; every
// field name below is part of the wire contract and must survive
// re-serialisation bit-for-bit.
type frameHeaders struct {
	Task   string `json:"task"`
	ID     string `json:"id"`
	RootID string `json:"root_id"`
	Origin string `json:"origin"`
}

type deliveryInfo struct {
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routing_key"`
}

type frameProperties struct {
	CorrelationID string       `json:"correlation_id"`
	BodyEncoding  string       `json:"body_encoding"`
	DeliveryTag   string       `json:"delivery_tag"`
	DeliveryInfo  deliveryInfo `json:"delivery_info"`
	Priority      int          `json:"priority"`
}

type frame struct {
	Body            string          `json:"body"`
	ContentEncoding string          `json:"content-encoding"`
	ContentType     string          `json:"content-type"`
	Headers         frameHeaders    `json:"headers"`
	Properties      frameProperties `json:"properties"`
}

// bodyOptions is the third positional element of the body triple:
// callback chains, always empty for our tasks.
type bodyOptions struct {
	Callbacks interface{} `json:"callbacks"`
	Errbacks  interface{} `json:"errbacks"`
	Chain     interface{} `json:"chain"`
	Chord     interface{} `json:"chord"`
}

func origin() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	return fmt.Sprintf("%d@%s", os.Getpid(), hostname)
}

// EncodeFrame renders a message into the double-base64 broker
// payload: the body triple is JSON then base64, and the whole frame
// is JSON then base64 again.
func EncodeFrame(msg Message) (string, error) {
	args := msg.Args
	if args == nil {
		args = []interface{}{}
	}
	kwargs := msg.Kwargs
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}

	body, err := json.Marshal([]interface{}{args, kwargs, bodyOptions{}})
	if err != nil {
		return "", err
	}

	f := frame{
		Body:            base64.StdEncoding.EncodeToString(body),
		ContentEncoding: "utf-8",
		ContentType:     "application/json",
		Headers: frameHeaders{
			Task:   msg.Name,
			ID:     msg.ID,
			RootID: msg.ID,
			Origin: origin(),
		},
		Properties: frameProperties{
			CorrelationID: msg.ID,
			BodyEncoding:  "base64",
			DeliveryTag:   uuid.NewString(),
			DeliveryInfo: deliveryInfo{
				Exchange:   "",
				RoutingKey: msg.Queue.String(),
			},
			Priority: 0,
		},
	}

	encoded, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encoded), nil
}

// DecodeFrame unwraps a broker payload back into a message.
func DecodeFrame(payload string) (Message, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Message{}, fmt.Errorf("task frame is not base64: %w", err)
	}

	f := frame{}
	if err := json.Unmarshal(raw, &f); err != nil {
		return Message{}, fmt.Errorf("task frame is not JSON: %w", err)
	}

	body := f.Body
	if f.Properties.BodyEncoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(f.Body)
		if err != nil {
			return Message{}, fmt.Errorf("task body is not base64: %w", err)
		}
		body = string(decoded)
	}

	triple := []json.RawMessage{}
	if err := json.Unmarshal([]byte(body), &triple); err != nil {
		return Message{}, fmt.Errorf("task body is not a triple: %w", err)
	}

	msg := Message{
		ID:    f.Headers.ID,
		Name:  f.Headers.Task,
		Queue: domain.QueueName(f.Properties.DeliveryInfo.RoutingKey),
	}
	if len(triple) > 0 {
		if err := json.Unmarshal(triple[0], &msg.Args); err != nil {
			return Message{}, err
		}
	}
	if len(triple) > 1 {
		if err := json.Unmarshal(triple[1], &msg.Kwargs); err != nil {
			return Message{}, err
		}
	}
	return msg, nil
}
