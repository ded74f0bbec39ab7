package report

import (
	"context"
	"log"
	"time"
)

// Outcome is the result of one send attempt to one sink.
type Outcome struct {
	Sink     string
	Code     int
	Err      error
	Duration time.Duration
}

// OK reports whether the send reached the remote end.
func (o Outcome) OK() bool {
	return o.Code > 0
}

// Dispatcher hands payloads to sinks without retries.
//
// In synchronous mode Submit sends inline and blocks the caller for the
// duration of the sends. In asynchronous mode Submit parks the payload in a
// single slot, replacing any payload that has not started sending yet, and
// Run delivers it on its own goroutine.
type Dispatcher struct {
	sinks   []Sink
	conn    Connectivity
	async   bool
	pending chan Payload

	// OnSkip, if set, is called when a report is skipped.
	OnSkip func(err error)

	// OnResult, if set, is called after every send attempt.
	OnResult func(o Outcome)
}

// NewDispatcher creates a dispatcher. conn may be nil to always send.
func NewDispatcher(conn Connectivity, async bool, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		conn:    conn,
		async:   async,
		pending: make(chan Payload, 1),
	}
}

// Submit delivers p, or drops it if the network is down.
// Submit must be called from a single goroutine.
func (d *Dispatcher) Submit(p Payload) {
	if d.conn != nil && !d.conn.Connected() {
		log.Printf("report: %v, skipping", ErrNotConnected)
		if d.OnSkip != nil {
			d.OnSkip(ErrNotConnected)
		}
		return
	}

	if !d.async {
		d.send(context.Background(), p)
		return
	}

	select {
	case d.pending <- p:
		return
	default:
	}
	// Slot full: the worker is busy. Replace the stale payload.
	select {
	case <-d.pending:
		log.Printf("report: previous report still queued, replacing")
	default:
	}
	select {
	case d.pending <- p:
	default:
	}
}

// Run sends queued payloads until ctx is done. Only needed in async mode.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-d.pending:
			d.send(ctx, p)
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, p Payload) {
	for _, s := range d.sinks {
		start := time.Now()
		code, err := s.Send(ctx, p)
		o := Outcome{Sink: s.Name(), Code: code, Err: err, Duration: time.Since(start)}

		if o.OK() {
			log.Printf("report: %s sent: code=%d total=%.2fml", o.Sink, code, float64(p.TotalWaterDrank))
		} else {
			log.Printf("report: %s send failed: code=%d: %v", o.Sink, code, err)
		}
		if d.OnResult != nil {
			d.OnResult(o)
		}
	}
}
