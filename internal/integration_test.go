package internal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/intake-sensor/internal/climate"
	"github.com/sweeney/intake-sensor/internal/gpio"
	"github.com/sweeney/intake-sensor/internal/logic"
	"github.com/sweeney/intake-sensor/internal/metrics"
	"github.com/sweeney/intake-sensor/internal/mqtt"
	"github.com/sweeney/intake-sensor/internal/report"
	"github.com/sweeney/intake-sensor/internal/sensor"
	"github.com/sweeney/intake-sensor/internal/status"
)

// collector is an HTTP endpoint that records posted bodies.
type collector struct {
	mu     sync.Mutex
	bodies []string
	code   int
	got    chan struct{}
}

func newCollector(t *testing.T, code int) (*collector, *httptest.Server) {
	t.Helper()
	c := &collector{code: code, got: make(chan struct{}, 16)}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, string(body))
		c.mu.Unlock()
		w.WriteHeader(c.code)
		c.got <- struct{}{}
	}))
	t.Cleanup(ts.Close)
	return c, ts
}

func (c *collector) Bodies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.bodies...)
}

// rawFor converts grams to HX711 counts for a 100 counts/g cell tared at 1000.
func rawFor(grams float64) int32 {
	return int32(1000 + grams*100)
}

// TestIntegrationLoadCellToHTTP drives the loop by hand from raw load cell
// conversions to the JSON body received by the collector.
func TestIntegrationLoadCellToHTTP(t *testing.T) {
	col, ts := newCollector(t, http.StatusOK)

	cell := gpio.NewFakeLoadCell([]int32{
		1000,         // tare
		rawFor(500),  // seed
		rawFor(495),  // t=1s
		rawFor(490),  // t=2s
		rawFor(490),  // t=3s
		rawFor(480),  // t=4s
		rawFor(1000), // t=5s refill
	})
	scale := sensor.NewScale(cell, 1, 0.01)
	if err := scale.Tare(); err != nil {
		t.Fatalf("tare: %v", err)
	}

	acc := logic.NewAccumulator()
	seed, err := scale.ReadGrams()
	if err != nil {
		t.Fatalf("seed read: %v", err)
	}
	acc.Seed(seed)

	acq := &sensor.Acquirer{Weight: scale, Limits: sensor.DefaultLimits}
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sched := logic.NewScheduler(5*time.Second, start)
	d := report.NewDispatcher(nil, false, report.NewHTTPSink(ts.URL, time.Second))
	opts := report.Options{DeviceID: "bottle-1", DailyGoalML: 2450}

	for i := 1; i <= 5; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		st := acc.Apply(acq.Acquire(now))
		if sched.Check(now) {
			d.Submit(report.BuildPayload(st, opts))
			sched.MarkSent(now)
		}
	}

	bodies := col.Bodies()
	if len(bodies) != 1 {
		t.Fatalf("expected 1 report, got %d", len(bodies))
	}
	want := []string{
		`"deviceId":"bottle-1"`,
		`"timestamp":"2026-01-01T12:00:05Z"`,
		`"currentWeight":1000.00`,
		`"totalWaterDrank":20.00`,
		`"dailyGoal":2450.00`,
		`"goalReached":false`,
	}
	for _, w := range want {
		if !strings.Contains(bodies[0], w) {
			t.Errorf("body missing %s: %s", w, bodies[0])
		}
	}
	if acc.State().CumulativeML != 20 {
		t.Errorf("CumulativeML after refill: got %v, want 20", acc.State().CumulativeML)
	}
}

// TestIntegrationDualSensor feeds weight and flow together and checks that
// the per-tick intake is their mean.
func TestIntegrationDualSensor(t *testing.T) {
	counter := sensor.NewCounter(nil)
	pin := gpio.NewFakePulseInput(counter.Edge)
	counter.SetFence(pin)

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := &stepWeight{grams: []float64{300, 100}}
	acq := &sensor.Acquirer{
		Weight: w,
		Flow:   sensor.NewFlowMeter(counter, 7.5, start),
		Limits: sensor.DefaultLimits,
	}
	acc := logic.NewAccumulator()

	// Seed tick: weight establishes the reference, no pulses yet.
	acc.Apply(acq.Acquire(start.Add(time.Second)))

	// 75 pulses in 1s = 10 L/min = 166.67 mL; weight drops 200 g.
	pin.Emit(75)
	st := acc.Apply(acq.Acquire(start.Add(2 * time.Second)))

	want := (200 + 10.0*1000/60) / 2
	if diff := st.InstantaneousML - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("InstantaneousML: got %v, want %v", st.InstantaneousML, want)
	}
	if st.CumulativeWeightML != 200 {
		t.Errorf("CumulativeWeightML: got %v, want 200", st.CumulativeWeightML)
	}
	if pin.Pauses != 2 || pin.Resumes != 2 {
		t.Errorf("fence: pauses=%d resumes=%d, want 2/2", pin.Pauses, pin.Resumes)
	}
}

type stepWeight struct {
	grams []float64
	i     int
}

func (w *stepWeight) ReadGrams() (float64, error) {
	g := w.grams[w.i]
	if w.i < len(w.grams)-1 {
		w.i++
	}
	return g, nil
}

// TestIntegrationAsyncDispatchWithStatus runs the async dispatcher against an
// HTTP collector, recording outcomes in the tracker and the metric set the
// way the daemon does.
func TestIntegrationAsyncDispatchWithStatus(t *testing.T) {
	col, ts := newCollector(t, http.StatusCreated)

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := status.NewTracker(start, status.Config{DeviceID: "bottle-1"})
	m := metrics.New()

	d := report.NewDispatcher(nil, true, report.NewHTTPSink(ts.URL, time.Second))
	done := make(chan report.Outcome, 1)
	d.OnResult = func(o report.Outcome) {
		tracker.RecordReport(start, o.Code)
		m.ReportOutcome(o)
		done <- o
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	acc := logic.NewAccumulator()
	acc.Seed(500)
	g := 450.0
	st := acc.Apply(logic.Sample{Time: start.Add(time.Second), Weight: &g})
	d.Submit(report.BuildPayload(st, report.Options{DeviceID: "bottle-1"}))

	select {
	case o := <-done:
		if o.Code != http.StatusCreated {
			t.Errorf("code: got %d, want 201", o.Code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for async send")
	}
	<-col.got

	snap := tracker.Snapshot()
	if snap.Reports.Sent != 1 || snap.LastCode != http.StatusCreated {
		t.Errorf("tracker reports: %+v code=%d", snap.Reports, snap.LastCode)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(col.Bodies()[0]), &body); err != nil {
		t.Fatalf("body JSON: %v", err)
	}
	if body["totalWaterDrank"] != 50.0 {
		t.Errorf("totalWaterDrank: got %v, want 50", body["totalWaterDrank"])
	}
}

// TestIntegrationClimateProbeToPayload parses probe lines into the store and
// checks they reach the payload.
func TestIntegrationClimateProbeToPayload(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &climate.Store{}
	lines := "boot\ndht: 2150,4525\n"
	if err := climate.Scan(context.Background(), strings.NewReader(lines), "dht", func() time.Time { return start }, store); err != nil {
		t.Fatalf("scan: %v", err)
	}

	acq := &sensor.Acquirer{
		Climate: sensor.NewClimate(store, time.Minute),
		Limits:  sensor.DefaultLimits,
	}
	acc := logic.NewAccumulator()
	st := acc.Apply(acq.Acquire(start.Add(10 * time.Second)))

	data, err := report.FormatPayload(report.BuildPayload(st, report.Options{}))
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	for _, w := range []string{`"temperature":21.50`, `"humidity":45.25`, `"totalWaterDrank":0.00`} {
		if !strings.Contains(string(data), w) {
			t.Errorf("payload missing %s: %s", w, data)
		}
	}

	// Two minutes later the reading is stale: the sample carries neither
	// value but the state keeps the last known ones.
	st = acc.Apply(acq.Acquire(start.Add(2 * time.Minute)))
	p := report.BuildPayload(st, report.Options{})
	if p.Temperature == nil {
		t.Error("last known temperature should still be carried in state")
	}
}

// TestIntegrationStartupShutdownEvents checks the lifecycle events the daemon
// publishes around the loop.
func TestIntegrationStartupShutdownEvents(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := status.NewTracker(start, status.Config{DeviceID: "bottle-1", Sinks: []string{"mqtt"}})
	pub := mqtt.NewFakePublisher()

	snap := tracker.Snapshot()
	if err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}); err != nil {
		t.Fatalf("startup: %v", err)
	}

	tracker.Update(logic.IntakeState{CumulativeML: 120, Ticks: 12})
	snap = tracker.Snapshot()
	if err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	}); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if len(pub.SystemPayloads) != 2 {
		t.Fatalf("expected 2 system payloads, got %d", len(pub.SystemPayloads))
	}
	var last status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[1], &last); err != nil {
		t.Fatalf("shutdown JSON: %v", err)
	}
	if last.Status.Event != "SHUTDOWN" || last.Status.Intake.TotalML != 120 {
		t.Errorf("shutdown payload: %+v", last.Status)
	}
}
