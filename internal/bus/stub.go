//go:build !linux

package bus

import "errors"

// I2CBus is not available on non-Linux platforms.
type I2CBus struct{}

// NewI2CBus returns an error on non-Linux platforms.
func NewI2CBus(busNo byte, addr byte) (*I2CBus, error) {
	return nil, errors.New("bus: i2c not supported on this platform (requires Linux)")
}

// ReadRegister is not implemented on non-Linux platforms.
func (b *I2CBus) ReadRegister(reg byte) (byte, error) {
	return 0, errors.New("bus: not supported")
}

// WriteRegister is not implemented on non-Linux platforms.
func (b *I2CBus) WriteRegister(reg byte, value byte) error {
	return errors.New("bus: not supported")
}

// ReadRegisters is not implemented on non-Linux platforms.
func (b *I2CBus) ReadRegisters(start byte, buf []byte) error {
	return errors.New("bus: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *I2CBus) Close() error {
	return nil
}
