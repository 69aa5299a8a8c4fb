// Package hrs3300 provides a driver for the HRS3300 optical heart-rate
// sensor found in the PineTime and similar wearables. It exposes the raw
// 18-bit HRS (reflected light) and ALS (ambient light) channel counts; the
// beats-per-minute pipeline lives in internal/pipeline.
package hrs3300

// DefaultAddress is the sensor's fixed I2C address.
const DefaultAddress byte = 0x44

// DeviceID is the expected value of RegID.
const DeviceID byte = 0x21

// Registers per the HRS3300 datasheet.
const (
	RegID      byte = 0x00 // device ID, reads 0x21
	RegEnable  byte = 0x01 // HRS enable / wait time / PDRIVE[1]
	RegC1DataM byte = 0x08 // C1DATA[10:3]
	RegC0DataM byte = 0x09 // C0DATA[15:8]
	RegC0DataH byte = 0x0A // C0DATA[7:4]
	RegPDriver byte = 0x0C // LED driver / PON / PDRIVE[0]
	RegC1DataH byte = 0x0D // C1DATA[17:11]
	RegC1DataL byte = 0x0E // C1DATA[2:0]
	RegC0DataL byte = 0x0F // C0DATA[17:16] and C0DATA[3:0]
	RegRes     byte = 0x16 // ALS and HRS ADC resolution
	RegHGain   byte = 0x17 // HRS gain
)

// ENABLE register fields.
const (
	EnableHEN     byte = 1 << 7  // HRS sensor enable
	EnableHWT     byte = 7 << 4  // HRS wait time
	EnablePDrive1 byte = 1 << 3  // LED drive current, high bit
)

// PDRIVER register fields.
const (
	PDrive0 byte = 1 << 6 // LED drive current, low bit
	POn     byte = 1 << 5 // LED oscillator enable
)

// Recommended values of the reserved register bits. The datasheet asks for
// these to be preserved on every write.
const (
	reservedEnableBits byte = 0x60
	reservedPDriveBits byte = 0x08
	reservedResBits    byte = 0x60
)

// ADCResolution selects the number of ADC bits; the raw counts are masked
// accordingly.
type ADCResolution byte

const (
	Bits8 ADCResolution = iota
	Bits9
	Bits10
	Bits11
	Bits12
	Bits13
	Bits14
	Bits15
	Bits16
	Bits17
	Bits18
)

// Bits returns the resolution in bits.
func (r ADCResolution) Bits() int {
	return 8 + int(r)
}

// Mask returns the raw-count mask for the resolution.
func (r ADCResolution) Mask() uint32 {
	return (1 << uint(r.Bits())) - 1
}
