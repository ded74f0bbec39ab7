package logic

// Accumulator turns per-tick samples into a monotonic intake total.
type Accumulator struct {
	state      IntakeState
	prevWeight float64
	seeded     bool
}

// NewAccumulator creates a zeroed accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Seed sets the reference weight, usually the first reading after tare.
// Without a seed the first valid weight reading becomes the reference and
// contributes nothing.
func (a *Accumulator) Seed(grams float64) {
	a.prevWeight = grams
	a.seeded = true
	a.state.CurrentWeight = grams
	a.state.HasWeight = true
}

// Apply folds one tick into the state and returns the new state.
// Absent channels leave their part of the state untouched.
func (a *Accumulator) Apply(s Sample) IntakeState {
	var parts []float64

	a.state.InstantaneousML = 0

	if s.Weight != nil {
		current := *s.Weight
		a.state.WeightChange = 0
		if a.seeded {
			// A weight increase is a refill; it moves the reference but
			// contributes a negative delta that is never subtracted.
			delta := a.prevWeight - current
			a.state.WeightChange = delta
			if delta > 0 {
				a.state.CumulativeWeightML += delta
			}
			parts = append(parts, delta)
		}
		a.prevWeight = current
		a.seeded = true
		a.state.CurrentWeight = current
		a.state.HasWeight = true
	}

	if s.Flow != nil {
		a.state.FlowRateLPM = s.Flow.RateLPM
		a.state.FlowML = s.Flow.VolumeML
		a.state.CumulativeFlowML += s.Flow.VolumeML
		a.state.HasFlow = true
		parts = append(parts, s.Flow.VolumeML)
	}

	if s.Temperature != nil {
		a.state.Temperature = *s.Temperature
		a.state.HasTemperature = true
	}
	if s.Humidity != nil {
		a.state.Humidity = *s.Humidity
		a.state.HasHumidity = true
	}

	// Weight and flow measure the same intake; combine by plain mean.
	if len(parts) > 0 {
		var sum float64
		for _, p := range parts {
			sum += p
		}
		a.state.InstantaneousML = sum / float64(len(parts))
	}
	if a.state.InstantaneousML > 0 {
		a.state.CumulativeML += a.state.InstantaneousML
	}

	a.state.UpdatedAt = s.Time
	a.state.Ticks++
	return a.state
}

// State returns the current state without modifying it.
func (a *Accumulator) State() IntakeState {
	return a.state
}
