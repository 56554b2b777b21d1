package device

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// OutputLine is a digital output such as the cutter, the status LED or the buzzer.
type OutputLine interface {
	Set(high bool)
	Level() bool
}

// Toggle inverts the level of l.
func Toggle(l OutputLine) { l.Set(!l.Level()) }

// OpenGPIO maps the Raspberry Pi GPIO registers. It must be called once before any
// GPIOLine is used.
func OpenGPIO() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("open gpio: %w", err)
	}
	return nil
}

// CloseGPIO unmaps the GPIO registers.
func CloseGPIO() error { return rpio.Close() }

// GPIOLine drives one BCM-numbered pin as an output.
type GPIOLine struct {
	Name string
	pin  rpio.Pin
}

// NewGPIOLine configures pin as an output and drives it low.
func NewGPIOLine(name string, bcm int) *GPIOLine {
	p := rpio.Pin(bcm)
	p.Output()
	p.Low()
	return &GPIOLine{Name: name, pin: p}
}

// Set drives the pin high or low.
func (g *GPIOLine) Set(high bool) {
	if high {
		g.pin.High()
	} else {
		g.pin.Low()
	}
}

// Level reads back the pin level.
func (g *GPIOLine) Level() bool { return g.pin.Read() == rpio.High }

// MemLine is an OutputLine kept in memory, used on the bench and in tests.
// It counts rising edges so callers can tell whether it was ever re-energised.
type MemLine struct {
	mu    sync.Mutex
	level bool
	rises int
}

// Set sets the level.
func (m *MemLine) Set(high bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if high && !m.level {
		m.rises++
	}
	m.level = high
}

// Level returns the current level.
func (m *MemLine) Level() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Rises returns how many times the line went from low to high.
func (m *MemLine) Rises() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rises
}
