// Package led drives a status LED with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package led

// Indicator drives the status LED.
type Indicator interface {
	// Set turns the LED on or off.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definition (BCM numbering)
const PinLED = 12
