// Package report builds intake payloads and delivers them to remote stores.
package report

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sweeney/intake-sensor/internal/logic"
)

// Decimal is a number encoded in JSON with exactly two decimals.
type Decimal float64

// MarshalJSON implements json.Marshaler.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(d), 'f', 2, 64), nil
}

func dec(v float64) *Decimal {
	d := Decimal(v)
	return &d
}

// Payload is the flat JSON document sent to the remote store.
// Fields for channels that are not configured are omitted.
type Payload struct {
	DeviceID         string   `json:"deviceId,omitempty"`
	Timestamp        string   `json:"timestamp"`
	CurrentWeight    *Decimal `json:"currentWeight,omitempty"`
	WeightChange     *Decimal `json:"weightChange,omitempty"`
	CumulativeWeight *Decimal `json:"cumulativeWeight,omitempty"`
	FlowRate         *Decimal `json:"flowRate,omitempty"`
	CumulativeFlow   *Decimal `json:"cumulativeFlow,omitempty"`
	Intake           Decimal  `json:"intake"`
	TotalWaterDrank  Decimal  `json:"totalWaterDrank"`
	Temperature      *Decimal `json:"temperature,omitempty"`
	Humidity         *Decimal `json:"humidity,omitempty"`
	DailyGoal        *Decimal `json:"dailyGoal,omitempty"`
	GoalReached      *bool    `json:"goalReached,omitempty"`
}

// Options carries device-level fields that are not part of the intake state.
type Options struct {
	DeviceID    string
	DailyGoalML float64 // 0 = no goal
}

// BuildPayload derives a payload from the intake state. It only reads the
// state, so two builds without an intervening tick are identical.
func BuildPayload(st logic.IntakeState, opts Options) Payload {
	p := Payload{
		DeviceID:        opts.DeviceID,
		Timestamp:       st.UpdatedAt.UTC().Format(time.RFC3339),
		Intake:          Decimal(st.InstantaneousML),
		TotalWaterDrank: Decimal(st.CumulativeML),
	}
	if st.HasWeight {
		p.CurrentWeight = dec(st.CurrentWeight)
		p.WeightChange = dec(st.WeightChange)
		p.CumulativeWeight = dec(st.CumulativeWeightML)
	}
	if st.HasFlow {
		p.FlowRate = dec(st.FlowRateLPM)
		p.CumulativeFlow = dec(st.CumulativeFlowML)
	}
	if st.HasTemperature {
		p.Temperature = dec(st.Temperature)
	}
	if st.HasHumidity {
		p.Humidity = dec(st.Humidity)
	}
	if opts.DailyGoalML > 0 {
		reached := st.CumulativeML >= opts.DailyGoalML
		p.DailyGoal = dec(opts.DailyGoalML)
		p.GoalReached = &reached
	}
	return p
}

// FormatPayload encodes a payload as JSON.
func FormatPayload(p Payload) ([]byte, error) {
	return json.Marshal(p)
}
