// Package bus provides register-level access to the sensor with hardware
// abstraction. The real implementation uses the Linux I2C device via embd.
// The fake implementation allows testing without hardware.
package bus

import "fmt"

// Bus reads and writes sensor registers. The core never performs I2C
// framing itself; implementations own the address/framing details.
type Bus interface {
	// ReadRegister reads a single register.
	ReadRegister(reg byte) (byte, error)

	// WriteRegister writes a single register.
	WriteRegister(reg byte, value byte) error

	// ReadRegisters reads len(buf) consecutive registers starting at start.
	ReadRegisters(start byte, buf []byte) error

	// Close releases the transport.
	Close() error
}

// Error is a transport-level failure (NACK, timeout, closed bus). It wraps
// the underlying error so callers can distinguish comms faults from sensor
// conditions with errors.As.
type Error struct {
	Op  string // "read", "write", "read-block"
	Reg byte
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bus: %s reg 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
