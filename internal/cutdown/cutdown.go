// Package cutdown decides when to fire the cutter that separates the payload from
// the balloon, and when to stop burning once the payload is falling.
package cutdown

import (
	"log"

	"HabTracker/internal/device"
	"HabTracker/internal/model"
)

// State of the cutdown machine. Stopped is terminal.
type State int

const (
	Armed State = iota
	Cutting
	Stopped
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Cutting:
		return "cutting"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Config holds the trigger thresholds.
type Config struct {
	// CeilingM is the altitude at or above which the flight is terminated.
	CeilingM int64
	// Debounce is how many consecutive triggering checks are needed to fire.
	Debounce int
	// BurnStopMarginM is the drop between two checks that proves the payload is free.
	BurnStopMarginM int64
	// CeilingDebounced makes a ceiling breach wait for Debounce checks like a
	// geofence breach. When false a ceiling breach fires on the first check.
	CeilingDebounced bool
}

// DefaultConfig returns the flight defaults.
func DefaultConfig() Config {
	return Config{
		CeilingM:         25500,
		Debounce:         5,
		BurnStopMarginM:  10,
		CeilingDebounced: true,
	}
}

// Fence answers whether a position is within the permitted area.
type Fence interface {
	Contains(lon, lat float64) bool
}

// Machine is the cutdown state machine. It is owned by a single task and is not
// safe for concurrent use; the flight state passed to Check must be locked by the caller.
type Machine struct {
	cfg   Config
	fence Fence
	line  device.OutputLine

	state       State
	testCount   int
	cutAltitude int64
}

// New returns an armed machine driving line. The line is driven low.
func New(cfg Config, fence Fence, line device.OutputLine) *Machine {
	if cfg.Debounce < 1 {
		cfg.Debounce = 1
	}
	line.Set(false)
	return &Machine{cfg: cfg, fence: fence, line: line}
}

// Check evaluates one sample of the flight state. It is the only method that moves
// the machine and it never fails: the outcome is the cutter level and s.HasCutDown.
func (m *Machine) Check(s *model.FlightState) {
	switch m.state {
	case Stopped:
		return
	case Cutting:
		m.checkBurn(s)
		return
	}

	if s.HasCutDown {
		// Already cut in this run; never arm again.
		m.state = Stopped
		m.line.Set(false)
		return
	}

	ceiling := s.Altitude >= m.cfg.CeilingM
	outside := !m.fence.Contains(s.Longitude, s.Latitude)
	if !ceiling && !outside {
		if m.testCount > 0 {
			log.Printf("[cutdown] trigger cleared after %d checks", m.testCount)
		}
		m.testCount = 0
		return
	}

	m.testCount++
	log.Printf("[cutdown] trigger %d/%d (alt=%d ceiling=%v outside=%v)",
		m.testCount, m.cfg.Debounce, s.Altitude, ceiling, outside)
	if m.testCount >= m.cfg.Debounce || (ceiling && !m.cfg.CeilingDebounced) {
		m.fire(s)
	}
}

func (m *Machine) fire(s *model.FlightState) {
	m.line.Set(true)
	s.HasCutDown = true
	m.cutAltitude = s.Altitude
	m.state = Cutting
	log.Printf("[cutdown] CUTTING at %d m (%.5f, %.5f)", s.Altitude, s.Latitude, s.Longitude)
}

// checkBurn keeps the cutter energised until the payload has dropped more than the
// margin since the previous check. The reference is refreshed every check.
func (m *Machine) checkBurn(s *model.FlightState) {
	if m.cutAltitude-s.Altitude > m.cfg.BurnStopMarginM {
		m.line.Set(false)
		m.state = Stopped
		log.Printf("[cutdown] burn stopped: %d m -> %d m", m.cutAltitude, s.Altitude)
		return
	}
	m.line.Set(true)
	m.cutAltitude = s.Altitude
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// TestCount returns the number of consecutive triggering checks while armed.
func (m *Machine) TestCount() int { return m.testCount }

// CutAltitude returns the burn-stop reference altitude.
func (m *Machine) CutAltitude() int64 { return m.cutAltitude }
