package core

import (
	"sync"

	"HabTracker/internal/device"
	"HabTracker/internal/model"
)

// Shared owns the flight state record and the ADC shared by both units.
//
// Lock order is state, then ADC. Callbacks receive the record pointer only while
// the lock is held and must not keep it.
type Shared struct {
	stateMu sync.Mutex
	adcMu   sync.Mutex
	state   model.FlightState
	adc     device.ADC
}

// NewShared returns an empty record guarding adc, which may be nil.
func NewShared(adc device.ADC) *Shared {
	return &Shared{adc: adc}
}

// Update runs fn with the state lock held.
func (s *Shared) Update(fn func(st *model.FlightState)) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	fn(&s.state)
}

// Snapshot returns a copy of the record.
func (s *Shared) Snapshot() model.FlightState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// WithADC runs fn with the ADC lock held.
func (s *Shared) WithADC(fn func(adc device.ADC)) {
	s.adcMu.Lock()
	defer s.adcMu.Unlock()
	fn(s.adc)
}

// UpdateWithADC runs fn holding both locks, taken in the global order.
func (s *Shared) UpdateWithADC(fn func(st *model.FlightState, adc device.ADC)) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.adcMu.Lock()
	defer s.adcMu.Unlock()
	fn(&s.state, s.adc)
}

// HasADC reports whether an ADC is attached.
func (s *Shared) HasADC() bool { return s.adc != nil }
