package sensor

import (
	"log"
	"time"

	"github.com/sweeney/intake-sensor/internal/logic"
)

// Limits holds the accepted range for each channel.
type Limits struct {
	Weight      Range // grams
	FlowRate    Range // L/min
	Temperature Range // °C
	Humidity    Range // %RH
}

// DefaultLimits are plausible bounds for a bottle rig.
var DefaultLimits = Limits{
	Weight:      Range{Min: -100, Max: 5000},
	FlowRate:    Range{Min: 0, Max: 30},
	Temperature: Range{Min: -40, Max: 85},
	Humidity:    Range{Min: 0, Max: 100},
}

// Acquirer samples every configured channel once per tick.
// Nil channels are not configured and never appear in a Sample.
type Acquirer struct {
	Weight  WeightSource
	Flow    FlowSource
	Climate *Climate
	Limits  Limits

	// OnError, if set, is called for every dropped reading.
	OnError func(kind logic.Kind, err error)
}

// Acquire reads all channels. A failed channel is left out of the sample
// and reported; it never fails the tick.
func (a *Acquirer) Acquire(now time.Time) logic.Sample {
	s := logic.Sample{Time: now}

	if a.Weight != nil {
		g, err := a.Weight.ReadGrams()
		if err == nil {
			err = a.Limits.Weight.check(g)
		}
		if err != nil {
			a.drop(logic.KindWeight, err)
		} else {
			s.Weight = &g
		}
	}

	if a.Flow != nil {
		f, err := a.Flow.Read(now)
		if err == nil {
			err = a.Limits.FlowRate.check(f.RateLPM)
		}
		if err != nil {
			a.drop(logic.KindFlow, err)
		} else {
			s.Flow = &f
		}
	}

	if a.Climate != nil {
		r, err := a.Climate.Read(now)
		if err != nil {
			a.drop(logic.KindTemperature, err)
			a.drop(logic.KindHumidity, err)
		} else {
			if err := a.Limits.Temperature.check(r.Temperature); err != nil {
				a.drop(logic.KindTemperature, err)
			} else {
				t := r.Temperature
				s.Temperature = &t
			}
			if err := a.Limits.Humidity.check(r.Humidity); err != nil {
				a.drop(logic.KindHumidity, err)
			} else {
				h := r.Humidity
				s.Humidity = &h
			}
		}
	}

	return s
}

func (a *Acquirer) drop(kind logic.Kind, err error) {
	log.Printf("%s channel: dropped reading: %v", kind, err)
	if a.OnError != nil {
		a.OnError(kind, err)
	}
}
