// Package logic contains pure business logic for intake tracking.
// This package has NO external dependencies (no GPIO, MQTT, HTTP, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Kind identifies a sensing channel.
type Kind string

const (
	KindWeight      Kind = "weight"
	KindFlow        Kind = "flow"
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
)

// FlowReading is one tick's worth of flow meter pulses, already converted.
type FlowReading struct {
	Pulses   uint64
	Elapsed  time.Duration
	RateLPM  float64 // litres per minute
	VolumeML float64 // volume that passed during Elapsed
}

// Sample is the output of one acquisition tick.
// A nil channel means no valid reading this tick; it must not be treated as zero.
type Sample struct {
	Time        time.Time
	Weight      *float64 // grams (1 g = 1 mL)
	Flow        *FlowReading
	Temperature *float64 // degrees Celsius
	Humidity    *float64 // percent RH
}

// IntakeState is the accumulator's view after the latest tick.
// It is a value type; copies are safe to hand to other goroutines.
type IntakeState struct {
	// Per-tick contribution before clamping (may be negative).
	InstantaneousML float64
	// Running total of positive contributions. Never decreases.
	CumulativeML float64

	CurrentWeight      float64
	WeightChange       float64 // previous - current, signed
	CumulativeWeightML float64

	FlowRateLPM      float64
	FlowML           float64
	CumulativeFlowML float64

	Temperature float64
	Humidity    float64

	HasWeight      bool
	HasFlow        bool
	HasTemperature bool
	HasHumidity    bool

	UpdatedAt time.Time
	Ticks     int
}
