package core

import (
	"math"
	"time"

	"HabTracker/internal/model"
)

const (
	launchRate      = 1.0   // m/s
	launchClimbM    = 150   // above the lowest altitude seen
	descentRate     = -10.0 // m/s
	descentDropM    = 50    // below the highest altitude seen
	minFlightClimbM = 2000
	landingWindowM  = 2000 // above the landing site
	landedRate      = 0.1  // m/s, either way
)

// flightModeTracker derives the ascent rate and walks the flight mode forward.
// Modes only advance; nothing returns a landed payload to idle.
type flightModeTracker struct {
	landingAltitude int64
	now             func() time.Time

	last   time.Time
	primed bool
}

func newFlightModeTracker(landingAltitude int64) *flightModeTracker {
	return &flightModeTracker{landingAltitude: landingAltitude, now: time.Now}
}

func (f *flightModeTracker) update(s *model.FlightState) {
	now := f.now()
	if !f.primed || !s.HasPosition() {
		f.primed = s.HasPosition()
		f.last = now
		s.PreviousAltitude = s.Altitude
		return
	}
	dt := now.Sub(f.last).Seconds()
	f.last = now
	if dt <= 0 {
		return
	}
	s.AscentRate = float64(s.Altitude-s.PreviousAltitude) / dt
	s.PreviousAltitude = s.Altitude
	s.FlightMode = nextFlightMode(s, f.landingAltitude)
}

func nextFlightMode(s *model.FlightState, landingAltitude int64) model.FlightMode {
	nearGround := s.Altitude <= landingAltitude+landingWindowM
	stopped := math.Abs(s.AscentRate) <= landedRate
	switch s.FlightMode {
	case model.FlightModeIdle:
		if s.AscentRate >= launchRate && s.Altitude > s.MinAltitude+launchClimbM {
			return model.FlightModeLaunched
		}
	case model.FlightModeLaunched:
		if s.AscentRate < descentRate && s.Altitude < s.MaxAltitude-descentDropM &&
			s.MaxAltitude >= s.MinAltitude+minFlightClimbM {
			return model.FlightModeDescending
		}
	case model.FlightModeDescending:
		if nearGround && stopped {
			return model.FlightModeLanded
		}
		if nearGround {
			return model.FlightModeLanding
		}
	case model.FlightModeLanding:
		if nearGround && stopped {
			return model.FlightModeLanded
		}
	}
	return s.FlightMode
}
