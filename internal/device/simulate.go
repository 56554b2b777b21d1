package device

import (
	"time"

	"HabTracker/internal/model"
)

// FlightProfile generates the fixes of a simple balloon flight: constant ascent to
// burst, constant descent to the ground, drifting with a fixed wind.
type FlightProfile struct {
	Lat, Lon    float64
	Alt         float64
	GroundAlt   float64
	AscentRate  float64 // m/s
	DescentRate float64 // m/s, positive
	BurstAlt    float64
	// Drift in degrees per second.
	DriftLat, DriftLon float64
	Sats               int
	// Speed is simulated seconds per real second; zero runs in real time.
	Speed float64

	descending bool
	landed     bool
}

// NewFlightProfile returns a profile launching from (lat, lon) with typical rates.
func NewFlightProfile(lat, lon float64) *FlightProfile {
	return &FlightProfile{
		Lat:         lat,
		Lon:         lon,
		Alt:         100,
		GroundAlt:   100,
		AscentRate:  5,
		DescentRate: 6,
		BurstAlt:    30000,
		DriftLon:    0.0002,
		Sats:        9,
	}
}

// Step advances the flight by dt and returns the fix stamped with now.
func (f *FlightProfile) Step(dt time.Duration, now time.Time) model.GpsFix {
	sec := dt.Seconds()
	if f.Speed > 0 {
		sec *= f.Speed
	}
	switch {
	case f.landed:
	case !f.descending:
		f.Alt += f.AscentRate * sec
		if f.Alt >= f.BurstAlt {
			f.descending = true
		}
	default:
		f.Alt -= f.DescentRate * sec
		if f.Alt <= f.GroundAlt {
			f.Alt = f.GroundAlt
			f.landed = true
		}
	}
	if !f.landed {
		f.Lat += f.DriftLat * sec
		f.Lon += f.DriftLon * sec
	}
	return model.GpsFix{
		Hours:      now.Hour(),
		Minutes:    now.Minute(),
		Seconds:    now.Second(),
		Latitude:   f.Lat,
		Longitude:  f.Lon,
		Altitude:   f.Alt,
		Satellites: f.Sats,
		Quality:    1,
	}
}

// Burst starts the descent immediately, as a cutdown would.
func (f *FlightProfile) Burst() { f.descending = true }

// Phase names the current part of the flight.
func (f *FlightProfile) Phase() string {
	switch {
	case f.landed:
		return "landed"
	case f.descending:
		return "descent"
	}
	return "ascent"
}
