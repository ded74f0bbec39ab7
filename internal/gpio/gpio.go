// Package gpio provides load cell and pulse input access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// LoadCell reads raw conversions from a load cell amplifier.
type LoadCell interface {
	// ReadRaw returns one signed 24-bit conversion.
	ReadRaw() (int32, error)

	// Close releases GPIO resources.
	Close() error
}

// PulseInput delivers edge events from a pulse-output sensor.
// The edge handler runs on a separate goroutine and must only do an atomic increment.
type PulseInput interface {
	// Pause stops edge delivery.
	Pause() error

	// Resume restarts edge delivery after Pause.
	Resume() error

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering).
const (
	DefaultChip    = "gpiochip0"
	DefaultPinDOUT = 25 // HX711 data
	DefaultPinSCK  = 26 // HX711 clock
	DefaultPinFlow = 27 // flow meter pulse output
)
