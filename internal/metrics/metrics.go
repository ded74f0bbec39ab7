// Package metrics exposes intake counters and gauges in Prometheus text format
// and optionally pushes them to a remote VictoriaMetrics endpoint.
package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/sweeney/intake-sensor/internal/logic"
	"github.com/sweeney/intake-sensor/internal/report"
)

// Metrics holds the daemon's metric set.
type Metrics struct {
	set *vm.Set

	ticks         *vm.Counter
	skipped       *vm.Counter
	cumulativeML  *vm.Gauge
	lastTickML    *vm.Gauge
	weightGrams   *vm.Gauge
	flowRateLPM   *vm.Gauge
	temperature   *vm.Gauge
	humidity      *vm.Gauge
	weightTotalML *vm.Gauge
	flowTotalML   *vm.Gauge
}

// New creates an empty metric set.
func New() *Metrics {
	s := vm.NewSet()
	return &Metrics{
		set:           s,
		ticks:         s.NewCounter("intake_ticks_total"),
		skipped:       s.NewCounter("intake_reports_skipped_total"),
		cumulativeML:  s.NewGauge("intake_cumulative_ml", nil),
		lastTickML:    s.NewGauge("intake_last_tick_ml", nil),
		weightGrams:   s.NewGauge("intake_weight_grams", nil),
		flowRateLPM:   s.NewGauge("intake_flow_rate_lpm", nil),
		temperature:   s.NewGauge("intake_temperature_celsius", nil),
		humidity:      s.NewGauge("intake_humidity_percent", nil),
		weightTotalML: s.NewGauge(`intake_channel_ml{channel="weight"}`, nil),
		flowTotalML:   s.NewGauge(`intake_channel_ml{channel="flow"}`, nil),
	}
}

// ObserveState records the state produced by one tick.
func (m *Metrics) ObserveState(st logic.IntakeState) {
	m.ticks.Inc()
	m.cumulativeML.Set(st.CumulativeML)
	m.lastTickML.Set(st.InstantaneousML)
	if st.HasWeight {
		m.weightGrams.Set(st.CurrentWeight)
		m.weightTotalML.Set(st.CumulativeWeightML)
	}
	if st.HasFlow {
		m.flowRateLPM.Set(st.FlowRateLPM)
		m.flowTotalML.Set(st.CumulativeFlowML)
	}
	if st.HasTemperature {
		m.temperature.Set(st.Temperature)
	}
	if st.HasHumidity {
		m.humidity.Set(st.Humidity)
	}
}

// SensorError counts a dropped reading on a channel.
func (m *Metrics) SensorError(kind logic.Kind) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`intake_sensor_errors_total{channel=%q}`, kind)).Inc()
}

// ReportOutcome records one send attempt.
func (m *Metrics) ReportOutcome(o report.Outcome) {
	result := "sent"
	if !o.OK() {
		result = "failed"
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`intake_reports_total{sink=%q,result=%q}`, o.Sink, result)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`intake_report_duration_seconds{sink=%q}`, o.Sink)).Update(o.Duration.Seconds())
}

// ReportSkipped counts a report dropped for lack of connectivity.
func (m *Metrics) ReportSkipped() {
	m.skipped.Inc()
}

// WritePrometheus writes the set followed by process metrics.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
	vm.WriteProcessMetrics(w)
}

// Handler serves the metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m.WritePrometheus(w)
	})
}

// StartPush pushes the metrics to pushURL every interval until ctx is done.
// It is a no-op when pushURL is empty.
func (m *Metrics) StartPush(ctx context.Context, pushURL string, interval time.Duration, deviceID string) error {
	if pushURL == "" {
		return nil
	}
	opts := &vm.PushOptions{
		ExtraLabels: fmt.Sprintf(`service_name="intake-sensor",device_id=%q`, deviceID),
	}
	if err := vm.InitPushExtWithOptions(ctx, pushURL, interval, m.WritePrometheus, opts); err != nil {
		return fmt.Errorf("init metrics push: %w", err)
	}
	return nil
}
