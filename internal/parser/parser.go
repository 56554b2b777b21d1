// Package parser converts telemetry to and from its wire formats and decodes the
// NMEA sentences produced by the GPS receiver.
//
// CSV telemetry wire format (tracker -> ground station), one sentence per line:
//
//	$$CALLSIGN,COUNTER,HH:MM:SS,LAT,LON,ALT,SATS,ASCENT,BATT,ITEMP,ETEMP,PRESSURE,HUMIDITY,CUT,NO2WE,NO2AE,SOLAR0,SOLAR1,SOLAR2,MODE*CRC16
package parser

import (
	"fmt"

	"HabTracker/internal/model"
)

// Parser encodes and decodes telemetry lines.
type Parser interface {
	EncodeTelemetry(t model.Telemetry) (string, error)
	DecodeTelemetry(line string) (model.Telemetry, error)
}

// New returns the parser for a wire format name ("csv" or "json").
// An empty name selects csv.
func New(format string) (Parser, error) {
	switch format {
	case "", "csv":
		return NewCSVParser(), nil
	case "json":
		return NewJSONParser(), nil
	}
	return nil, fmt.Errorf("unknown wire format %q", format)
}
