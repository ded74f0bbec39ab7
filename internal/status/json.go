package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	DeviceID      string         `json:"device_id"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	Intake        IntakeJSON     `json:"intake"`
	Reports       ReportsJSON    `json:"reports"`
	SensorErrors  map[string]int `json:"sensor_errors"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// IntakeJSON is the JSON representation of the intake state.
type IntakeJSON struct {
	TotalML       float64  `json:"total_ml"`
	LastTickML    float64  `json:"last_tick_ml"`
	Weight        *float64 `json:"weight_g,omitempty"`
	WeightTotalML *float64 `json:"weight_total_ml,omitempty"`
	FlowRateLPM   *float64 `json:"flow_rate_lpm,omitempty"`
	FlowTotalML   *float64 `json:"flow_total_ml,omitempty"`
	Temperature   *float64 `json:"temperature_c,omitempty"`
	Humidity      *float64 `json:"humidity_pct,omitempty"`
	GoalProgress  *float64 `json:"goal_progress_pct,omitempty"`
	Ticks         int      `json:"ticks"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

// ReportsJSON is the JSON representation of report outcomes.
type ReportsJSON struct {
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
	Last     string `json:"last,omitempty"`
	LastCode int    `json:"last_code"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleMs        int64    `json:"sample_ms"`
	ReportMs        int64    `json:"report_ms"`
	Channels        []string `json:"channels"`
	Sinks           []string `json:"sinks"`
	Broker          string   `json:"broker,omitempty"`
	HTTPAddr        string   `json:"http_addr"`
	DailyGoalML     float64  `json:"daily_goal_ml,omitempty"`
	AsyncReports    bool     `json:"async_reports"`
	SimulatedWeight bool     `json:"simulated_weight"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr(v float64) *float64 {
	r := round2(v)
	return &r
}

func buildIntake(snap Snapshot) IntakeJSON {
	st := snap.Intake
	in := IntakeJSON{
		TotalML:    round2(st.CumulativeML),
		LastTickML: round2(st.InstantaneousML),
		Ticks:      st.Ticks,
	}
	if !st.UpdatedAt.IsZero() {
		in.UpdatedAt = st.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if st.HasWeight {
		in.Weight = ptr(st.CurrentWeight)
		in.WeightTotalML = ptr(st.CumulativeWeightML)
	}
	if st.HasFlow {
		in.FlowRateLPM = ptr(st.FlowRateLPM)
		in.FlowTotalML = ptr(st.CumulativeFlowML)
	}
	if st.HasTemperature {
		in.Temperature = ptr(st.Temperature)
	}
	if st.HasHumidity {
		in.Humidity = ptr(st.Humidity)
	}
	if snap.Config.DailyGoalML > 0 {
		in.GoalProgress = ptr(snap.Progress())
	}
	return in
}

func buildInner(snap Snapshot) StatusInner {
	errs := make(map[string]int, len(snap.SensorErrors))
	for k, v := range snap.SensorErrors {
		errs[string(k)] = v
	}

	reports := ReportsJSON{
		Sent:     snap.Reports.Sent,
		Failed:   snap.Reports.Failed,
		Skipped:  snap.Reports.Skipped,
		LastCode: snap.LastCode,
	}
	if !snap.LastReport.IsZero() {
		reports.Last = snap.LastReport.UTC().Format(time.RFC3339)
	}

	return StatusInner{
		DeviceID:      snap.Config.DeviceID,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Intake:        buildIntake(snap),
		Reports:       reports,
		SensorErrors:  errs,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			SampleMs:        snap.Config.SampleMs,
			ReportMs:        snap.Config.ReportMs,
			Channels:        snap.Config.Channels,
			Sinks:           snap.Config.Sinks,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
			DailyGoalML:     snap.Config.DailyGoalML,
			AsyncReports:    snap.Config.AsyncReports,
			SimulatedWeight: snap.Config.SimulatedWeight,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
