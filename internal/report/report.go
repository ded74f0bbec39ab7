package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConnected is reported when the network is down at report time.
var ErrNotConnected = errors.New("network not connected")

// Sink delivers a payload to a remote store.
// Send returns a transport status code: a positive code means the request
// reached the remote end (whatever it answered); a non-positive code is a
// transport failure and comes with an error.
type Sink interface {
	Name() string
	Send(ctx context.Context, p Payload) (int, error)
}

// Connectivity reports whether the network is usable.
type Connectivity interface {
	Connected() bool
}

// HTTPSink POSTs payloads as JSON to a fixed URL.
type HTTPSink struct {
	url    string
	client *http.Client
}

// NewHTTPSink creates a sink posting to url with the given request timeout.
func NewHTTPSink(url string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name identifies the sink in logs.
func (s *HTTPSink) Name() string { return "http" }

// Send posts the payload and returns the HTTP status code, or -1 when the
// request could not be completed.
func (s *HTTPSink) Send(ctx context.Context, p Payload) (int, error) {
	body, err := FormatPayload(p)
	if err != nil {
		return -1, fmt.Errorf("format payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return -1, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return -1, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// FakeSink records payloads for test assertions.
type FakeSink struct {
	// Payloads contains every payload passed to Send.
	Payloads []Payload

	// Code is returned by Send. Zero means 200.
	Code int

	// SendError, if set, is returned by Send with code -1.
	SendError error

	// Block, if set, is received from before Send returns.
	Block chan struct{}

	// Sent, if set, receives every payload after it is recorded.
	Sent chan Payload
}

// NewFakeSink creates a FakeSink for testing.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Name identifies the sink in logs.
func (f *FakeSink) Name() string { return "fake" }

// Send records the payload.
func (f *FakeSink) Send(ctx context.Context, p Payload) (int, error) {
	if f.Block != nil {
		<-f.Block
	}
	f.Payloads = append(f.Payloads, p)
	if f.Sent != nil {
		f.Sent <- p
	}
	if f.SendError != nil {
		return -1, f.SendError
	}
	if f.Code == 0 {
		return http.StatusOK, nil
	}
	return f.Code, nil
}
