//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// HX711 timing. Userspace bit-banging cannot guarantee the 60µs SCK high
// limit, so conversions are read as fast as the character device allows.
const (
	hx711ReadyPoll    = time.Millisecond
	hx711ReadyTimeout = 500 * time.Millisecond
	hx711GainA128     = 1 // extra clock pulses selecting channel A, gain 128
)

// ErrNotReady is returned when the HX711 does not signal a conversion in time.
var ErrNotReady = errors.New("hx711 not ready")

// RealLoadCell reads an HX711 amplifier over two GPIO lines.
type RealLoadCell struct {
	chip *gpiocdev.Chip
	dout *gpiocdev.Line
	sck  *gpiocdev.Line
}

// NewRealLoadCell requests the HX711 data and clock lines on the given chip.
func NewRealLoadCell(chipName string, pinDOUT, pinSCK int) (*RealLoadCell, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	dout, err := chip.RequestLine(pinDOUT, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request DOUT pin %d: %w", pinDOUT, err)
	}

	// SCK low keeps the HX711 powered up.
	sck, err := chip.RequestLine(pinSCK, gpiocdev.AsOutput(0))
	if err != nil {
		dout.Close()
		chip.Close()
		return nil, fmt.Errorf("request SCK pin %d: %w", pinSCK, err)
	}

	return &RealLoadCell{
		chip: chip,
		dout: dout,
		sck:  sck,
	}, nil
}

// ReadRaw clocks out one 24-bit two's complement conversion.
func (r *RealLoadCell) ReadRaw() (int32, error) {
	if err := r.waitReady(); err != nil {
		return 0, err
	}

	var v uint32
	for i := 0; i < 24; i++ {
		bit, err := r.clock()
		if err != nil {
			return 0, err
		}
		v = v<<1 | uint32(bit)
	}
	for i := 0; i < hx711GainA128; i++ {
		if _, err := r.clock(); err != nil {
			return 0, err
		}
	}

	// Sign-extend from 24 bits.
	return int32(v<<8) >> 8, nil
}

func (r *RealLoadCell) waitReady() error {
	deadline := time.Now().Add(hx711ReadyTimeout)
	for {
		v, err := r.dout.Value()
		if err != nil {
			return fmt.Errorf("read DOUT pin: %w", err)
		}
		if v == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrNotReady
		}
		time.Sleep(hx711ReadyPoll)
	}
}

// clock pulses SCK once and returns DOUT sampled while SCK is high.
func (r *RealLoadCell) clock() (int, error) {
	if err := r.sck.SetValue(1); err != nil {
		return 0, fmt.Errorf("set SCK high: %w", err)
	}
	bit, err := r.dout.Value()
	if err != nil {
		r.sck.SetValue(0)
		return 0, fmt.Errorf("read DOUT pin: %w", err)
	}
	if err := r.sck.SetValue(0); err != nil {
		return 0, fmt.Errorf("set SCK low: %w", err)
	}
	return bit, nil
}

// Close releases GPIO resources.
// Lines are returned to input with pull-down to match Pi boot defaults.
func (r *RealLoadCell) Close() error {
	var errs []error

	if r.sck != nil {
		if err := r.sck.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure SCK pin: %w", err))
		}
		if err := r.sck.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close SCK pin: %w", err))
		}
	}
	if r.dout != nil {
		if err := r.dout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close DOUT pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealPulseInput counts falling edges from an open-collector flow meter.
type RealPulseInput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealPulseInput requests the pulse line with edge detection. onEdge is
// called from the gpiocdev event goroutine for every falling edge.
func NewRealPulseInput(chipName string, pin int, onEdge func()) (*RealPulseInput, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { onEdge() }),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request flow pin %d: %w", pin, err)
	}

	return &RealPulseInput{chip: chip, line: line}, nil
}

// Pause disables edge detection on the line. Pulses arriving before Resume
// are not detected, so each Take loses at most the pulses of that window.
func (p *RealPulseInput) Pause() error {
	if err := p.line.Reconfigure(gpiocdev.WithoutEdges); err != nil {
		return fmt.Errorf("disable edges: %w", err)
	}
	return nil
}

// Resume re-enables falling edge detection.
func (p *RealPulseInput) Resume() error {
	if err := p.line.Reconfigure(gpiocdev.WithFallingEdge); err != nil {
		return fmt.Errorf("enable edges: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
func (p *RealPulseInput) Close() error {
	var errs []error
	if p.line != nil {
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close flow pin: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
