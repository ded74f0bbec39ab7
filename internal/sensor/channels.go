package sensor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sweeney/intake-sensor/internal/climate"
	"github.com/sweeney/intake-sensor/internal/gpio"
	"github.com/sweeney/intake-sensor/internal/logic"
)

// Errors describing dropped readings.
var (
	ErrInvalidReading = errors.New("invalid reading")
	ErrStale          = errors.New("stale reading")
)

// Range bounds a valid reading. A zero Range accepts any finite value.
type Range struct {
	Min float64
	Max float64
}

func (r Range) check(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidReading, v)
	}
	if r.Min == 0 && r.Max == 0 {
		return nil
	}
	if v < r.Min || v > r.Max {
		return fmt.Errorf("%w: %.2f outside [%.2f, %.2f]", ErrInvalidReading, v, r.Min, r.Max)
	}
	return nil
}

// WeightSource produces the current weight in grams.
type WeightSource interface {
	ReadGrams() (float64, error)
}

// Scale converts HX711 conversions into grams.
type Scale struct {
	cell    gpio.LoadCell
	samples int
	factor  float64
	tare    float64
}

// NewScale averages samples conversions per reading and multiplies by
// factor (grams per raw count) after subtracting the tare offset.
func NewScale(cell gpio.LoadCell, samples int, factor float64) *Scale {
	if samples < 1 {
		samples = 1
	}
	return &Scale{cell: cell, samples: samples, factor: factor}
}

// Tare records the current average as the zero offset.
func (s *Scale) Tare() error {
	avg, err := s.average()
	if err != nil {
		return fmt.Errorf("tare: %w", err)
	}
	s.tare = avg
	return nil
}

// TareOffset returns the recorded zero offset.
func (s *Scale) TareOffset() float64 {
	return s.tare
}

// ReadGrams returns the calibrated weight.
func (s *Scale) ReadGrams() (float64, error) {
	avg, err := s.average()
	if err != nil {
		return 0, err
	}
	return logic.ScaleGrams(avg, s.tare, s.factor), nil
}

func (s *Scale) average() (float64, error) {
	raw := make([]int32, 0, s.samples)
	for i := 0; i < s.samples; i++ {
		v, err := s.cell.ReadRaw()
		if err != nil {
			return 0, fmt.Errorf("read load cell: %w", err)
		}
		raw = append(raw, v)
	}
	return logic.Average(raw)
}

// Simulated is a WeightSource for running without a load cell.
type Simulated struct {
	sim *logic.Simulation
}

// NewSimulated wraps a simulation as a weight source.
func NewSimulated(sim *logic.Simulation) *Simulated {
	return &Simulated{sim: sim}
}

// ReadGrams advances the simulation by one tick.
func (s *Simulated) ReadGrams() (float64, error) {
	return s.sim.Step(), nil
}

// FlowSource produces the flow since its previous read.
type FlowSource interface {
	Read(now time.Time) (logic.FlowReading, error)
}

// FlowMeter converts counted pulses into rate and volume per tick.
type FlowMeter struct {
	counter      *Counter
	pulsesPerLPM float64
	last         time.Time
}

// NewFlowMeter creates a flow meter whose first window starts at start.
func NewFlowMeter(counter *Counter, pulsesPerLPM float64, start time.Time) *FlowMeter {
	return &FlowMeter{
		counter:      counter,
		pulsesPerLPM: pulsesPerLPM,
		last:         start,
	}
}

// Read takes the pulses counted since the previous Read.
func (f *FlowMeter) Read(now time.Time) (logic.FlowReading, error) {
	elapsed := now.Sub(f.last)
	if elapsed <= 0 {
		return logic.FlowReading{}, fmt.Errorf("%w: window of %v", ErrInvalidReading, elapsed)
	}
	n, err := f.counter.Take()
	if err != nil {
		// Pulses stay counted; the next window covers them.
		return logic.FlowReading{}, err
	}
	f.last = now
	return logic.ConvertFlow(n, elapsed, f.pulsesPerLPM)
}

// ClimateSource provides the latest probe reading.
type ClimateSource interface {
	Latest() (climate.Reading, error)
}

// Climate rejects probe readings older than maxAge.
type Climate struct {
	src    ClimateSource
	maxAge time.Duration
}

// NewClimate wraps a probe store. maxAge <= 0 accepts any age.
func NewClimate(src ClimateSource, maxAge time.Duration) *Climate {
	return &Climate{src: src, maxAge: maxAge}
}

// Read returns the latest reading if it is fresh.
func (c *Climate) Read(now time.Time) (climate.Reading, error) {
	r, err := c.src.Latest()
	if err != nil {
		return climate.Reading{}, err
	}
	if c.maxAge > 0 && now.Sub(r.Time) > c.maxAge {
		return climate.Reading{}, fmt.Errorf("%w: %v old", ErrStale, now.Sub(r.Time).Truncate(time.Second))
	}
	return r, nil
}
