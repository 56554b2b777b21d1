package model

import "fmt"

// Telemetry is the read-only view of a FlightState that leaves the tracker over the
// radio, into the flight log and onto the monitor.
type Telemetry struct {
	Callsign   string  `json:"callsign"`
	Counter    uint32  `json:"counter"`
	Time       string  `json:"time"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Alt        int64   `json:"alt"`
	Sats       int     `json:"sats"`
	AscentRate float64 `json:"ascent_rate"`
	Battery    float64 `json:"battery_v"`
	IntTemp    float64 `json:"internal_temp"`
	ExtTemp    float64 `json:"external_temp"`
	Pressure   float64 `json:"pressure"`
	Humidity   float64 `json:"humidity"`
	CutDown    bool    `json:"cut_down"`
	NO2WE      float64 `json:"no2_we"`
	NO2AE      float64 `json:"no2_ae"`
	Solar0     float64 `json:"solar0"`
	Solar1     float64 `json:"solar1"`
	Solar2     float64 `json:"solar2"`
	Mode       string  `json:"mode"`
}

// NewTelemetry builds a telemetry record from a snapshot of the flight state.
func NewTelemetry(callsign string, counter uint32, s FlightState) Telemetry {
	return Telemetry{
		Callsign:   callsign,
		Counter:    counter,
		Time:       fmt.Sprintf("%02d:%02d:%02d", s.Hours, s.Minutes, s.Seconds),
		Lat:        s.Latitude,
		Lon:        s.Longitude,
		Alt:        s.Altitude,
		Sats:       s.Satellites,
		AscentRate: s.AscentRate,
		Battery:    s.BatteryVoltage,
		IntTemp:    s.InternalTemperature,
		ExtTemp:    s.ExternalTemperature,
		Pressure:   s.Pressure,
		Humidity:   s.Humidity,
		CutDown:    s.HasCutDown,
		NO2WE:      s.NO2WE,
		NO2AE:      s.NO2AE,
		Solar0:     s.Solar[0],
		Solar1:     s.Solar[1],
		Solar2:     s.Solar[2],
		Mode:       s.FlightMode.String(),
	}
}
