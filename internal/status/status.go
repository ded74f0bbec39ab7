// Package status provides a thread-safe status tracker for the intake-sensor daemon.
// It is read by HTTP handlers and lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/intake-sensor/internal/logic"
	"github.com/sweeney/intake-sensor/internal/netinfo"
)

// Config contains daemon configuration for display.
type Config struct {
	DeviceID        string
	SampleMs        int64
	ReportMs        int64
	Channels        []string
	Sinks           []string
	Broker          string
	HTTPAddr        string
	DailyGoalML     float64
	AsyncReports    bool
	SimulatedWeight bool
}

// ReportCounts tracks report outcomes since startup.
type ReportCounts struct {
	Sent    int
	Failed  int
	Skipped int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Intake        logic.IntakeState
	Reports       ReportCounts
	LastReport    time.Time
	LastCode      int
	SensorErrors  map[logic.Kind]int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *netinfo.Info
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Progress returns cumulative intake as a percentage of the daily goal.
func (s Snapshot) Progress() float64 {
	return logic.Progress(s.Intake.CumulativeML, s.Config.DailyGoalML)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:    startTime,
			Config:       cfg,
			SensorErrors: map[logic.Kind]int{},
		},
	}
}

// Update sets the latest intake state. Called from runLoop on every tick.
func (t *Tracker) Update(st logic.IntakeState) {
	t.mu.Lock()
	t.snap.Intake = st
	t.mu.Unlock()
}

// RecordSensorError counts a dropped reading.
func (t *Tracker) RecordSensorError(kind logic.Kind) {
	t.mu.Lock()
	t.snap.SensorErrors[kind]++
	t.mu.Unlock()
}

// RecordReport counts a send attempt. Positive codes count as sent.
func (t *Tracker) RecordReport(at time.Time, code int) {
	t.mu.Lock()
	if code > 0 {
		t.snap.Reports.Sent++
	} else {
		t.snap.Reports.Failed++
	}
	t.snap.LastReport = at
	t.snap.LastCode = code
	t.mu.Unlock()
}

// RecordSkip counts a report skipped for lack of connectivity.
func (t *Tracker) RecordSkip() {
	t.mu.Lock()
	t.snap.Reports.Skipped++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *netinfo.Info) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.SensorErrors = make(map[logic.Kind]int, len(t.snap.SensorErrors))
	for k, v := range t.snap.SensorErrors {
		s.SensorErrors[k] = v
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
