package hrs3300

import (
	"errors"
	"fmt"

	"github.com/sweeney/pulse-sensor/internal/bus"
)

// sampleBlockLen is the number of registers read to assemble one sample.
// The sensor auto-increments from C1DATAM through C0DATAL.
const sampleBlockLen = 7

// ErrNotReady reports that the sensor has not produced a conversion yet.
// The HRS3300 has no data-ready flag; an HRS count of zero only occurs
// while the ADC is still powering up, so it is used as the ready condition.
var ErrNotReady = errors.New("hrs3300: sample not ready")

// ErrBadDevice reports an unexpected device ID, usually a wiring or
// addressing problem.
var ErrBadDevice = errors.New("hrs3300: unrecognized device id")

// Sample is one raw reading of both optical channels.
type Sample struct {
	// HRS is the reflected-light (pulse) channel count, C0.
	HRS uint32
	// ALS is the ambient-light channel count, C1.
	ALS uint32
}

// Sensor drives an HRS3300 over a register bus.
type Sensor struct {
	bus        bus.Bus
	resolution ADCResolution
	mask       uint32
}

// New creates a Sensor on the given bus with 14-bit ADC resolution, the
// datasheet-recommended default.
func New(b bus.Bus) *Sensor {
	return &Sensor{
		bus:        b,
		resolution: Bits14,
		mask:       Bits14.Mask(),
	}
}

// Init verifies the device ID and writes the recommended power-up
// configuration: LED driver on, 14-bit resolution, mid gain, HRS enabled.
func (s *Sensor) Init() error {
	id, err := s.bus.ReadRegister(RegID)
	if err != nil {
		return fmt.Errorf("read device id: %w", err)
	}
	if id != DeviceID {
		return fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrBadDevice, id, DeviceID)
	}

	if err := s.bus.WriteRegister(RegPDriver, PDrive0|POn|reservedPDriveBits); err != nil {
		return fmt.Errorf("configure led driver: %w", err)
	}
	if err := s.SetADCResolution(s.resolution); err != nil {
		return err
	}
	if err := s.bus.WriteRegister(RegHGain, 0x10); err != nil {
		return fmt.Errorf("configure gain: %w", err)
	}
	if err := s.bus.WriteRegister(RegEnable, EnableHEN|EnablePDrive1|reservedEnableBits); err != nil {
		return fmt.Errorf("enable hrs: %w", err)
	}
	return nil
}

// Enable turns the HRS measurement and LED oscillator on or off.
func (s *Sensor) Enable(on bool) error {
	enable := reservedEnableBits
	pdrive := reservedPDriveBits
	if on {
		enable |= EnableHEN
		pdrive |= POn
	}
	if err := s.bus.WriteRegister(RegEnable, enable); err != nil {
		return fmt.Errorf("write enable: %w", err)
	}
	if err := s.bus.WriteRegister(RegPDriver, pdrive); err != nil {
		return fmt.Errorf("write pdriver: %w", err)
	}
	return nil
}

// SetADCResolution selects the ADC resolution and updates the count mask.
func (s *Sensor) SetADCResolution(r ADCResolution) error {
	if err := s.bus.WriteRegister(RegRes, byte(r)|reservedResBits); err != nil {
		return fmt.Errorf("write resolution: %w", err)
	}
	s.resolution = r
	s.mask = r.Mask()
	return nil
}

// DeviceID reads the device ID register.
func (s *Sensor) DeviceID() (byte, error) {
	return s.bus.ReadRegister(RegID)
}

// ReadSample reads the data-register block and reassembles both channel
// counts. Returns ErrNotReady while the HRS channel still reads zero.
func (s *Sensor) ReadSample() (Sample, error) {
	var block [sampleBlockLen]byte
	if err := s.bus.ReadRegisters(RegC1DataM, block[:]); err != nil {
		return Sample{}, err
	}

	sample := decodeSampleBlock(block, s.mask)
	if sample.HRS == 0 {
		return sample, ErrNotReady
	}
	return sample, nil
}

// decodeSampleBlock reassembles the scattered C0/C1 data bits.
//
// Block order (auto-increment from 0x08, register 0x0B is skipped by the
// sensor):
//
//	0: C1DATAM  7:0 -> C1DATA[10:3]
//	1: C0DATAM  7:0 -> C0DATA[15:8]
//	2: C0DATAH  3:0 -> C0DATA[7:4]
//	3: PDRIVER
//	4: C1DATAH  6:0 -> C1DATA[17:11]
//	5: C1DATAL  2:0 -> C1DATA[2:0]
//	6: C0DATAL  5:4 -> C0DATA[17:16], 3:0 -> C0DATA[3:0]
func decodeSampleBlock(block [sampleBlockLen]byte, mask uint32) Sample {
	c1 := uint32(block[0]) << 3
	c1 |= uint32(block[4]&0x3F) << 11
	c1 |= uint32(block[5] & 0x07)
	c1 &= mask

	c0 := uint32(block[1]) << 8
	c0 |= uint32(block[2]&0x0F) << 4
	c0 |= uint32(block[6]&0x30) << 16
	c0 |= uint32(block[6] & 0x0F)
	c0 &= mask

	return Sample{HRS: c0, ALS: c1}
}

// EncodeSampleBlock is the inverse of the block decode. It exists for fakes
// and simulations that script raw counts through a bus.FakeBus.
func EncodeSampleBlock(hrs, als uint32) []byte {
	block := make([]byte, sampleBlockLen)

	block[0] = byte(als >> 3)          // C1DATA[10:3]
	block[4] = byte(als>>11) & 0x3F    // C1DATA[17:11]
	block[5] = byte(als) & 0x07        // C1DATA[2:0]

	block[1] = byte(hrs >> 8)                          // C0DATA[15:8]
	block[2] = byte(hrs>>4) & 0x0F                     // C0DATA[7:4]
	block[6] = byte(hrs>>16)&0x30 | byte(hrs)&0x0F     // C0DATA[17:16] | C0DATA[3:0]

	return block
}
