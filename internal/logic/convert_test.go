package logic

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestConvertFlow(t *testing.T) {
	tests := []struct {
		name     string
		pulses   uint64
		elapsed  time.Duration
		factor   float64
		wantRate float64
		wantML   float64
	}{
		{"75 pulses in 1s", 75, time.Second, 7.5, 10, 166.67},
		{"no pulses", 0, time.Second, 7.5, 0, 0},
		{"150 pulses in 2s", 150, 2 * time.Second, 7.5, 10, 333.33},
		{"half second window", 15, 500 * time.Millisecond, 7.5, 4, 33.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ConvertFlow(tt.pulses, tt.elapsed, tt.factor)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(f.RateLPM-tt.wantRate) > 1e-9 {
				t.Errorf("rate: got %v, want %v", f.RateLPM, tt.wantRate)
			}
			if math.Abs(f.VolumeML-tt.wantML) > 0.005 {
				t.Errorf("volume: got %v, want %v", f.VolumeML, tt.wantML)
			}
		})
	}
}

func TestConvertFlowErrors(t *testing.T) {
	if _, err := ConvertFlow(10, 0, 7.5); !errors.Is(err, ErrNoElapsed) {
		t.Errorf("zero elapsed: got %v, want ErrNoElapsed", err)
	}
	if _, err := ConvertFlow(10, time.Second, 0); !errors.Is(err, ErrBadPulseFactor) {
		t.Errorf("zero factor: got %v, want ErrBadPulseFactor", err)
	}
}

func TestScaleGrams(t *testing.T) {
	if got := ScaleGrams(8100, 100, 0.0625); got != 500 {
		t.Errorf("ScaleGrams: got %v, want 500", got)
	}
	if got := ScaleGrams(100, 100, 0.0625); got != 0 {
		t.Errorf("ScaleGrams at tare: got %v, want 0", got)
	}
}

func TestAverage(t *testing.T) {
	avg, err := Average([]int32{10, 20, 30, -60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg != 0 {
		t.Errorf("Average: got %v, want 0", avg)
	}

	if _, err := Average(nil); !errors.Is(err, ErrBadSampleWindow) {
		t.Errorf("empty: got %v, want ErrBadSampleWindow", err)
	}
}

func TestSimulationNeverNegative(t *testing.T) {
	sim := NewSimulation(500, 1, 10, rand.New(rand.NewSource(1)))

	prev := sim.Weight()
	zeroAt := -1
	for i := 0; i < 500; i++ {
		w := sim.Step()
		if w < 0 {
			t.Fatalf("step %d: negative weight %v", i, w)
		}
		if w > prev {
			t.Fatalf("step %d: weight increased from %v to %v", i, prev, w)
		}
		if prev > 0 && prev-w > 9 {
			t.Fatalf("step %d: decrement %v exceeds bound", i, prev-w)
		}
		if w == 0 && zeroAt < 0 {
			zeroAt = i
		}
		if zeroAt >= 0 && w != 0 {
			t.Fatalf("step %d: weight left zero", i)
		}
		prev = w
	}
	if zeroAt < 0 {
		t.Error("simulation never reached zero in 500 steps")
	}
}

func TestSimulationFixedStep(t *testing.T) {
	sim := NewSimulation(5, 2, 0, nil)
	for i, want := range []float64{3, 1, 0, 0} {
		if got := sim.Step(); got != want {
			t.Errorf("step %d: got %v, want %v", i, got, want)
		}
	}
}

func TestDailyGoal(t *testing.T) {
	if got := DailyGoalML(70); got != 2450 {
		t.Errorf("DailyGoalML(70): got %v, want 2450", got)
	}
	if got := DailyGoalML(0); got != 0 {
		t.Errorf("DailyGoalML(0): got %v, want 0", got)
	}
	if got := Progress(1225, 2450); got != 50 {
		t.Errorf("Progress: got %v, want 50", got)
	}
	if got := Progress(3000, 2450); got != 100 {
		t.Errorf("Progress over goal: got %v, want 100", got)
	}
	if got := Progress(100, 0); got != 0 {
		t.Errorf("Progress without goal: got %v, want 0", got)
	}
}
