package mqtt

import (
	"context"

	"github.com/sweeney/intake-sensor/internal/report"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// Reports contains all intake payloads that were published.
	Reports []report.Payload

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Send.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Name identifies the sink in logs.
func (f *FakePublisher) Name() string { return "mqtt" }

// Send records the intake report.
func (f *FakePublisher) Send(ctx context.Context, p report.Payload) (int, error) {
	if f.PublishError != nil {
		return 0, f.PublishError
	}

	f.Reports = append(f.Reports, p)

	payload, err := report.FormatPayload(p)
	if err != nil {
		return -1, err
	}
	f.Payloads = append(f.Payloads, payload)

	return CodePublished, nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.Reports = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
