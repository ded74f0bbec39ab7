package logic

import "time"

// ReportState is the scheduler's state.
type ReportState string

const (
	ReportIdle ReportState = "IDLE"
	ReportDue  ReportState = "DUE"
)

// Scheduler gates outbound reports to a fixed interval, independent of the
// sampling cadence. It is polled from the sampling loop.
type Scheduler struct {
	interval time.Duration
	lastSent time.Time
	state    ReportState
}

// NewScheduler creates a scheduler whose first report is due one interval
// after startTime. An interval <= 0 disables reporting.
func NewScheduler(interval time.Duration, startTime time.Time) *Scheduler {
	return &Scheduler{
		interval: interval,
		lastSent: startTime,
		state:    ReportIdle,
	}
}

// Check returns true if a report is due at now. Once due, it stays due
// until MarkSent is called.
func (s *Scheduler) Check(now time.Time) bool {
	if s.interval <= 0 {
		return false
	}
	if s.state == ReportIdle && now.Sub(s.lastSent) >= s.interval {
		s.state = ReportDue
	}
	return s.state == ReportDue
}

// MarkSent records a send attempt. Success and failure are treated the same.
func (s *Scheduler) MarkSent(now time.Time) {
	s.lastSent = now
	s.state = ReportIdle
}

// State returns the current scheduler state.
func (s *Scheduler) State() ReportState {
	return s.state
}

// Interval returns the configured report interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}
