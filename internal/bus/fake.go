package bus

// RegWrite records a single register write for test assertions.
type RegWrite struct {
	Reg   byte
	Value byte
}

// FakeBus is a test double backed by a scripted register map and an optional
// sequence of block reads.
type FakeBus struct {
	// Registers holds single-register read values. Writes update it.
	Registers map[byte]byte

	// Blocks contains scripted multi-register reads served by ReadRegisters
	// when the start register matches BlockStart. Each call consumes the
	// next block; when exhausted, the last block is returned repeatedly.
	Blocks [][]byte

	// BlockStart is the start register that Blocks responds to.
	BlockStart byte

	// Writes records every WriteRegister call in order.
	Writes []RegWrite

	// ReadErr, WriteErr and BlockErr, if set, are returned (wrapped in
	// *Error) by the corresponding method.
	ReadErr  error
	WriteErr error
	BlockErr error

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeBus creates a FakeBus with an empty register map.
func NewFakeBus() *FakeBus {
	return &FakeBus{Registers: make(map[byte]byte)}
}

// ReadRegister returns the scripted value for reg (zero if unset).
func (f *FakeBus) ReadRegister(reg byte) (byte, error) {
	if f.ReadErr != nil {
		return 0, &Error{Op: "read", Reg: reg, Err: f.ReadErr}
	}
	return f.Registers[reg], nil
}

// WriteRegister records the write and updates the register map.
func (f *FakeBus) WriteRegister(reg byte, value byte) error {
	if f.WriteErr != nil {
		return &Error{Op: "write", Reg: reg, Err: f.WriteErr}
	}
	f.Writes = append(f.Writes, RegWrite{Reg: reg, Value: value})
	f.Registers[reg] = value
	return nil
}

// ReadRegisters serves the next scripted block when start matches
// BlockStart, otherwise fills buf from the register map.
func (f *FakeBus) ReadRegisters(start byte, buf []byte) error {
	if f.BlockErr != nil {
		return &Error{Op: "read-block", Reg: start, Err: f.BlockErr}
	}

	if start == f.BlockStart && len(f.Blocks) > 0 {
		block := f.Blocks[f.index]
		if f.index < len(f.Blocks)-1 {
			f.index++
		}
		copy(buf, block)
		return nil
	}

	for i := range buf {
		buf[i] = f.Registers[start+byte(i)]
	}
	return nil
}

// Close marks the bus as closed.
func (f *FakeBus) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the block script and clears recorded writes.
func (f *FakeBus) Reset() {
	f.index = 0
	f.Writes = nil
	f.Closed = false
}
