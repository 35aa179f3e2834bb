package orchestrator

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

func TestEncodeFrame_WireLayout(t *testing.T) {
	msg := Message{
		ID:     "6c9f38fc-1d77-4a6a-9f19-8a2f72cbb2df",
		Name:   domain.TaskS3CreateBucket,
		Queue:  domain.S3Queue,
		Kwargs: map[string]interface{}{"bucket_name": "dev-test-bucket-1"},
	}

	payload, err := EncodeFrame(msg)
	if err != nil {
		t.Fatal(err)
	}

	// outer layer: base64 of a JSON frame
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("payload is not base64: %s", err)
	}
	outer := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &outer); err != nil {
		t.Fatalf("frame is not JSON: %s", err)
	}

	// exact field names are the compatibility contract
	for _, key := range []string{"body", "content-encoding", "content-type", "headers", "properties"} {
		if _, ok := outer[key]; !ok {
			t.Errorf("frame is missing field %q", key)
		}
	}

	var contentType, contentEncoding string
	json.Unmarshal(outer["content-type"], &contentType)
	json.Unmarshal(outer["content-encoding"], &contentEncoding)
	if contentType != "application/json" {
		t.Errorf("content-type: got %q", contentType)
	}
	if contentEncoding != "utf-8" {
		t.Errorf("content-encoding: got %q", contentEncoding)
	}

	headers := map[string]string{}
	if err := json.Unmarshal(outer["headers"], &headers); err != nil {
		t.Fatal(err)
	}
	if headers["task"] != domain.TaskS3CreateBucket {
		t.Errorf("headers.task: got %q", headers["task"])
	}
	if headers["id"] != msg.ID || headers["root_id"] != msg.ID {
		t.Errorf("headers ids: id=%q root_id=%q", headers["id"], headers["root_id"])
	}
	wantOrigin := fmt.Sprintf("%d@", os.Getpid())
	if !strings.HasPrefix(headers["origin"], wantOrigin) {
		t.Errorf("headers.origin: got %q, want prefix %q", headers["origin"], wantOrigin)
	}

	properties := struct {
		CorrelationID string `json:"correlation_id"`
		BodyEncoding  string `json:"body_encoding"`
		DeliveryTag   string `json:"delivery_tag"`
		DeliveryInfo  struct {
			RoutingKey string `json:"routing_key"`
		} `json:"delivery_info"`
		Priority int `json:"priority"`
	}{}
	if err := json.Unmarshal(outer["properties"], &properties); err != nil {
		t.Fatal(err)
	}
	if properties.CorrelationID != msg.ID {
		t.Errorf("correlation_id: got %q", properties.CorrelationID)
	}
	if properties.BodyEncoding != "base64" {
		t.Errorf("body_encoding: got %q", properties.BodyEncoding)
	}
	if properties.DeliveryTag == "" {
		t.Error("delivery_tag is empty")
	}
	if properties.DeliveryInfo.RoutingKey != "s3_queue" {
		t.Errorf("routing_key: got %q", properties.DeliveryInfo.RoutingKey)
	}
	if properties.Priority != 0 {
		t.Errorf("priority: got %d", properties.Priority)
	}

	// inner layer: base64 of the JSON body triple
	var bodyB64 string
	json.Unmarshal(outer["body"], &bodyB64)
	body, err := base64.StdEncoding.DecodeString(bodyB64)
	if err != nil {
		t.Fatalf("body is not base64: %s", err)
	}
	triple := []json.RawMessage{}
	if err := json.Unmarshal(body, &triple); err != nil {
		t.Fatalf("body is not a triple: %s", err)
	}
	if len(triple) != 3 {
		t.Fatalf("body triple length: got %d", len(triple))
	}
	if string(triple[0]) != "[]" {
		t.Errorf("args: got %s, want []", triple[0])
	}
	kwargs := map[string]string{}
	if err := json.Unmarshal(triple[1], &kwargs); err != nil {
		t.Fatal(err)
	}
	if kwargs["bucket_name"] != "dev-test-bucket-1" {
		t.Errorf("kwargs: got %v", kwargs)
	}
	options := map[string]interface{}{}
	if err := json.Unmarshal(triple[2], &options); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"callbacks", "errbacks", "chain", "chord"} {
		if v, ok := options[key]; !ok || v != nil {
			t.Errorf("options.%s: got %v, want null", key, v)
		}
	}
}

func TestDecodeFrame_RoundTrip(t *testing.T) {
	msg := Message{
		ID:    "11111111-2222-3333-4444-555555555555",
		Name:  domain.TaskS3GrantToUser,
		Queue: domain.IAMQueue,
		Args:  []interface{}{},
		Kwargs: map[string]interface{}{
			"grant_id": float64(42),
		},
	}

	payload, err := EncodeFrame(msg)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.ID != msg.ID {
		t.Errorf("id: got %q", decoded.ID)
	}
	if decoded.Name != msg.Name {
		t.Errorf("name: got %q", decoded.Name)
	}
	if decoded.Queue != domain.IAMQueue {
		t.Errorf("queue: got %q", decoded.Queue)
	}
	if got := decoded.Kwargs["grant_id"]; got != float64(42) {
		t.Errorf("kwargs.grant_id: got %v", got)
	}
}

func TestDecodeFrame_Malformed(t *testing.T) {
	for name, payload := range map[string]string{
		"not base64":   "%%%",
		"not json":     base64.StdEncoding.EncodeToString([]byte("not json")),
		"body not b64": base64.StdEncoding.EncodeToString([]byte(`{"body":"%%%","properties":{"body_encoding":"base64"}}`)),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeFrame(payload); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}
