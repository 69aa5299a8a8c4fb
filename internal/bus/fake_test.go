package bus

import (
	"errors"
	"testing"
)

func TestFakeBusReadWrite(t *testing.T) {
	f := NewFakeBus()

	if err := f.WriteRegister(0x01, 0xE8); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := f.ReadRegister(0x01)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 0xE8 {
		t.Errorf("read back: got 0x%02X, want 0xE8", v)
	}
	if len(f.Writes) != 1 || f.Writes[0] != (RegWrite{Reg: 0x01, Value: 0xE8}) {
		t.Errorf("unexpected write record: %+v", f.Writes)
	}
}

func TestFakeBusBlockScript(t *testing.T) {
	f := NewFakeBus()
	f.BlockStart = 0x08
	f.Blocks = [][]byte{
		{1, 2, 3, 4, 5, 6, 7},
		{8, 9, 10, 11, 12, 13, 14},
	}

	buf := make([]byte, 7)
	if err := f.ReadRegisters(0x08, buf); err != nil {
		t.Fatalf("block 0: %v", err)
	}
	if buf[0] != 1 {
		t.Errorf("block 0: got %v", buf)
	}

	if err := f.ReadRegisters(0x08, buf); err != nil {
		t.Fatalf("block 1: %v", err)
	}
	if buf[0] != 8 {
		t.Errorf("block 1: got %v", buf)
	}

	// Exhausted script repeats the last block.
	if err := f.ReadRegisters(0x08, buf); err != nil {
		t.Fatalf("block repeat: %v", err)
	}
	if buf[0] != 8 {
		t.Errorf("block repeat: got %v", buf)
	}
}

func TestFakeBusReadRegistersFromMap(t *testing.T) {
	f := NewFakeBus()
	f.Registers[0x10] = 0xAA
	f.Registers[0x11] = 0xBB

	buf := make([]byte, 2)
	if err := f.ReadRegisters(0x10, buf); err != nil {
		t.Fatalf("read registers: %v", err)
	}
	if buf[0] != 0xAA || buf[1] != 0xBB {
		t.Errorf("got %v, want [AA BB]", buf)
	}
}

func TestFakeBusErrorsWrapped(t *testing.T) {
	inner := errors.New("nack")
	f := NewFakeBus()
	f.ReadErr = inner

	_, err := f.ReadRegister(0x00)
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("expected *bus.Error, got %T", err)
	}
	if be.Op != "read" || be.Reg != 0x00 {
		t.Errorf("unexpected context: %+v", be)
	}
	if !errors.Is(err, inner) {
		t.Error("wrapped error should unwrap to the injected error")
	}
}
