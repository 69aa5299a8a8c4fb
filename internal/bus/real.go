//go:build linux

package bus

import (
	"fmt"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
)

// I2CBus talks to the sensor over a Linux I2C bus via embd.
type I2CBus struct {
	bus  embd.I2CBus
	addr byte
}

// NewI2CBus opens I2C bus busNo and targets the device at addr.
func NewI2CBus(busNo byte, addr byte) (*I2CBus, error) {
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("init i2c: %w", err)
	}
	return &I2CBus{
		bus:  embd.NewI2CBus(busNo),
		addr: addr,
	}, nil
}

// ReadRegister reads a single register.
func (b *I2CBus) ReadRegister(reg byte) (byte, error) {
	v, err := b.bus.ReadByteFromReg(b.addr, reg)
	if err != nil {
		return 0, &Error{Op: "read", Reg: reg, Err: err}
	}
	return v, nil
}

// WriteRegister writes a single register.
func (b *I2CBus) WriteRegister(reg byte, value byte) error {
	if err := b.bus.WriteByteToReg(b.addr, reg, value); err != nil {
		return &Error{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// ReadRegisters reads len(buf) consecutive registers starting at start.
func (b *I2CBus) ReadRegisters(start byte, buf []byte) error {
	if err := b.bus.ReadFromReg(b.addr, start, buf); err != nil {
		return &Error{Op: "read-block", Reg: start, Err: err}
	}
	return nil
}

// Close releases the I2C bus.
func (b *I2CBus) Close() error {
	if err := b.bus.Close(); err != nil {
		return fmt.Errorf("close i2c: %w", err)
	}
	return embd.CloseI2C()
}
