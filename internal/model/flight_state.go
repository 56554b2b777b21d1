// Package model defines the flight state shared by the tracker tasks and the
// telemetry records derived from it.
package model

// FlightMode is the coarse phase of the flight, derived from altitude history.
type FlightMode int

// Flight phases in the order a normal flight passes through them.
const (
	FlightModeIdle FlightMode = iota
	FlightModeLaunched
	FlightModeDescending
	FlightModeLanding
	FlightModeLanded
)

var flightModeNames = [...]string{"idle", "launched", "descending", "landing", "landed"}

func (m FlightMode) String() string {
	if m < 0 || int(m) >= len(flightModeNames) {
		return "unknown"
	}
	return flightModeNames[m]
}

// ParseFlightMode returns the mode named s, or FlightModeIdle and false.
func ParseFlightMode(s string) (FlightMode, bool) {
	for i, n := range flightModeNames {
		if n == s {
			return FlightMode(i), true
		}
	}
	return FlightModeIdle, false
}

// FlightState is the single record of everything sensed or derived during a mission.
// It is only ever touched while holding the state lock in core.Shared; code outside
// that package sees copies.
type FlightState struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`

	// (0, 0) means no position fix yet.
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`

	Altitude         int64 `json:"alt"`
	MinAltitude      int64 `json:"min_alt"`
	MaxAltitude      int64 `json:"max_alt"`
	PreviousAltitude int64 `json:"prev_alt"`
	Satellites       int   `json:"sats"`
	// AscentRate in m/s, negative while descending.
	AscentRate float64 `json:"ascent_rate"`

	BatteryVoltage      float64    `json:"battery_v"`
	InternalTemperature float64    `json:"internal_temp"`
	ExternalTemperature float64    `json:"external_temp"`
	Pressure            float64    `json:"pressure"`
	Humidity            float64    `json:"humidity"`
	NO2WE               float64    `json:"no2_we"`
	NO2AE               float64    `json:"no2_ae"`
	Solar               [3]float64 `json:"solar"`
	MuonCount           int64      `json:"muon_count"`
	MuonRate            float64    `json:"muon_rate"`

	FlightMode FlightMode `json:"flight_mode"`
	HasCutDown bool       `json:"cut_down"`
}

// HasPosition reports whether the record holds a real fix rather than the (0, 0) sentinel.
func (s *FlightState) HasPosition() bool {
	return s.Latitude != 0 || s.Longitude != 0
}

// GpsFix is one decoded position report from the receiver.
type GpsFix struct {
	Hours      int
	Minutes    int
	Seconds    int
	Latitude   float64
	Longitude  float64
	Altitude   float64
	Satellites int
	// Quality is the GGA fix indicator; 0 means no fix.
	Quality int
}

// Valid reports whether the fix can be written into the flight state.
func (f GpsFix) Valid() bool {
	return f.Quality > 0 && (f.Latitude != 0 || f.Longitude != 0)
}
