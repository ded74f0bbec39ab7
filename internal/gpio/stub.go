//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// ErrNotReady is returned when the HX711 does not signal a conversion in time.
var ErrNotReady = errors.New("hx711 not ready")

// RealLoadCell is not available on non-Linux platforms.
type RealLoadCell struct{}

// NewRealLoadCell returns an error on non-Linux platforms.
func NewRealLoadCell(chipName string, pinDOUT, pinSCK int) (*RealLoadCell, error) {
	return nil, errUnsupported
}

// ReadRaw is not implemented on non-Linux platforms.
func (r *RealLoadCell) ReadRaw() (int32, error) {
	return 0, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealLoadCell) Close() error {
	return nil
}

// RealPulseInput is not available on non-Linux platforms.
type RealPulseInput struct{}

// NewRealPulseInput returns an error on non-Linux platforms.
func NewRealPulseInput(chipName string, pin int, onEdge func()) (*RealPulseInput, error) {
	return nil, errUnsupported
}

// Pause is not implemented on non-Linux platforms.
func (p *RealPulseInput) Pause() error { return errors.New("gpio: not supported") }

// Resume is not implemented on non-Linux platforms.
func (p *RealPulseInput) Resume() error { return errors.New("gpio: not supported") }

// Close is not implemented on non-Linux platforms.
func (p *RealPulseInput) Close() error { return nil }
