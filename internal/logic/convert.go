package logic

import (
	"errors"
	"time"
)

// Errors returned by the conversion helpers.
var (
	ErrNoElapsed       = errors.New("elapsed time must be positive")
	ErrBadPulseFactor  = errors.New("pulses per litre per minute must be positive")
	ErrBadSampleWindow = errors.New("no raw samples to average")
)

// ScaleGrams converts an averaged raw load cell value into grams.
func ScaleGrams(avgRaw, tare, factor float64) float64 {
	return (avgRaw - tare) * factor
}

// Average returns the arithmetic mean of raw samples.
func Average(raw []int32) (float64, error) {
	if len(raw) == 0 {
		return 0, ErrBadSampleWindow
	}
	var sum float64
	for _, v := range raw {
		sum += float64(v)
	}
	return sum / float64(len(raw)), nil
}

// FlowRateLPM converts a pulse count over elapsed into litres per minute.
func FlowRateLPM(pulses uint64, elapsed time.Duration, pulsesPerLPM float64) (float64, error) {
	if elapsed <= 0 {
		return 0, ErrNoElapsed
	}
	if pulsesPerLPM <= 0 {
		return 0, ErrBadPulseFactor
	}
	return (float64(pulses) / elapsed.Seconds()) / pulsesPerLPM, nil
}

// FlowVolumeML returns the millilitres that passed during elapsed at rateLPM.
func FlowVolumeML(rateLPM float64, elapsed time.Duration) float64 {
	return rateLPM / 60 * 1000 * elapsed.Seconds()
}

// ConvertFlow builds a FlowReading from a raw pulse count.
func ConvertFlow(pulses uint64, elapsed time.Duration, pulsesPerLPM float64) (FlowReading, error) {
	rate, err := FlowRateLPM(pulses, elapsed, pulsesPerLPM)
	if err != nil {
		return FlowReading{}, err
	}
	return FlowReading{
		Pulses:   pulses,
		Elapsed:  elapsed,
		RateLPM:  rate,
		VolumeML: FlowVolumeML(rate, elapsed),
	}, nil
}
