package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/intake-sensor/internal/report"
)

func TestTopics(t *testing.T) {
	intake, system := Topics(DefaultTopicPrefix, "bottle-1")
	if intake != "hydration/bottle-1/intake" {
		t.Errorf("intake topic: got %q", intake)
	}
	if system != "hydration/bottle-1/system" {
		t.Errorf("system topic: got %q", system)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.System.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.System.Timestamp)
	}
	if parsed.System.Event != "SHUTDOWN" {
		t.Errorf("unexpected event: %s", parsed.System.Event)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("unexpected reason: %s", parsed.System.Reason)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["system"]["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestWillPayload(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var p SystemPayload
	if err := json.Unmarshal(willPayload(now, FormatSystemPayload), &p); err != nil {
		t.Fatalf("will payload JSON: %v", err)
	}
	if p.System.Event != "OFFLINE" || p.System.Timestamp != "2026-01-01T12:00:00Z" {
		t.Errorf("will payload: %+v", p.System)
	}
}

func TestWillPayloadFormatError(t *testing.T) {
	failing := func(SystemEvent) ([]byte, error) { return nil, errors.New("boom") }
	got := willPayload(time.Now(), failing)
	if len(got) == 0 {
		t.Fatal("will payload must not be empty when formatting fails")
	}
	var p SystemPayload
	if err := json.Unmarshal(got, &p); err != nil {
		t.Fatalf("fallback JSON: %v", err)
	}
	if p.System.Event != "OFFLINE" {
		t.Errorf("fallback event: got %q, want OFFLINE", p.System.Event)
	}
}

func TestFakePublisherSend(t *testing.T) {
	f := NewFakePublisher()

	code, err := f.Send(context.Background(), report.Payload{TotalWaterDrank: 12.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != CodePublished {
		t.Errorf("code: got %d, want %d", code, CodePublished)
	}
	if len(f.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(f.Reports))
	}

	var parsed map[string]any
	if err := json.Unmarshal(f.Payloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed["totalWaterDrank"] != 12.5 {
		t.Errorf("totalWaterDrank: got %v", parsed["totalWaterDrank"])
	}
}

func TestFakePublisherSendError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("not connected")

	code, err := f.Send(context.Background(), report.Payload{})
	if err == nil {
		t.Error("expected error")
	}
	if code > 0 {
		t.Errorf("code: got %d, want non-positive", code)
	}
	if len(f.Reports) != 0 {
		t.Error("failed publish should not be recorded")
	}
}

func TestFakePublisherSystemAndReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true

	if err := f.PublishSystem(SystemEvent{Event: "STARTUP", Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.SystemEvents) != 1 || len(f.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(f.SystemEvents))
	}

	f.PublishSystemError = errors.New("boom")
	if err := f.PublishSystem(SystemEvent{Event: "SHUTDOWN"}); err == nil {
		t.Error("expected error")
	}

	f.Close()
	f.Reset()
	if f.Closed || f.Connected || len(f.SystemEvents) != 0 || f.PublishSystemError != nil {
		t.Errorf("Reset did not clear state: %+v", f)
	}
}

func TestFakePublisherIsSink(t *testing.T) {
	var _ report.Sink = NewFakePublisher()
	var _ Publisher = NewFakePublisher()
	var _ Publisher = (*RealPublisher)(nil)
	var _ ConnectionStatus = (*RealPublisher)(nil)
}
