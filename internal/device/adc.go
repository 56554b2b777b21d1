package device

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/io/i2c"
)

// ADC is an analog-to-digital converter shared by several sensor tasks. Callers
// serialise access with the ADC lock in core.Shared.
type ADC interface {
	ReadVolts(channel int) (float64, error)
}

const (
	adsRegConversion = 0x00
	adsRegConfig     = 0x01

	adsOSSingle  = 0x8000
	adsMuxSingle = 0x4000 // AINx against GND, channel in bits 12-13
	adsPGA4V096  = 0x0200
	adsModeShot  = 0x0100
	adsDR128     = 0x0080
	adsCompOff   = 0x0003

	adsFullScale = 4.096
	// One conversion at 128 SPS takes 7.8 ms.
	adsConvDelay = 9 * time.Millisecond
)

// ADS1115 is a 4 channel 16 bit ADC on the I2C bus, read in single-shot mode.
type ADS1115 struct {
	dev *i2c.Device
}

// OpenADS1115 opens the converter at addr on bus, e.g. "/dev/i2c-1" and 0x48.
func OpenADS1115(bus string, addr int) (*ADS1115, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: bus}, addr)
	if err != nil {
		return nil, fmt.Errorf("open ads1115 on %s@0x%02x: %w", bus, addr, err)
	}
	return &ADS1115{dev: dev}, nil
}

// ReadVolts starts a conversion on channel 0-3 and returns the input voltage.
func (a *ADS1115) ReadVolts(channel int) (float64, error) {
	if channel < 0 || channel > 3 {
		return 0, fmt.Errorf("ads1115: channel %d out of range", channel)
	}
	cfg := make([]byte, 2)
	binary.BigEndian.PutUint16(cfg, adsConfigWord(channel))
	if err := a.dev.WriteReg(adsRegConfig, cfg); err != nil {
		return 0, fmt.Errorf("ads1115: start conversion: %w", err)
	}
	time.Sleep(adsConvDelay)

	buf := make([]byte, 2)
	if err := a.dev.ReadReg(adsRegConversion, buf); err != nil {
		return 0, fmt.Errorf("ads1115: read conversion: %w", err)
	}
	return adsVolts(buf), nil
}

// Close releases the I2C device.
func (a *ADS1115) Close() error { return a.dev.Close() }

func adsConfigWord(channel int) uint16 {
	return adsOSSingle | adsMuxSingle | uint16(channel)<<12 | adsPGA4V096 | adsModeShot | adsDR128 | adsCompOff
}

func adsVolts(raw []byte) float64 {
	v := int16(binary.BigEndian.Uint16(raw))
	return float64(v) * adsFullScale / 32768
}

// MemADC is an ADC returning fixed per-channel voltages.
type MemADC struct {
	mu    sync.Mutex
	volts map[int]float64
	reads int
	err   error
}

// NewMemADC returns a MemADC with the given channel voltages.
func NewMemADC(volts map[int]float64) *MemADC {
	m := &MemADC{volts: map[int]float64{}}
	for ch, v := range volts {
		m.volts[ch] = v
	}
	return m
}

// ReadVolts returns the stored voltage for channel.
func (m *MemADC) ReadVolts(channel int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return 0, m.err
	}
	return m.volts[channel], nil
}

// Set changes the voltage returned for channel.
func (m *MemADC) Set(channel int, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volts[channel] = v
}

// Fail makes every following read return err. A nil err clears the failure.
func (m *MemADC) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Reads returns the number of ReadVolts calls.
func (m *MemADC) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}
