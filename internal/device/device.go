// Package device holds the hardware the tracker talks to: line-based serial links
// (GPS receiver, LoRa module), digital output lines, the shared ADC and the
// hardware watchdog.
package device

import "time"

// Device is a line-oriented link such as a GPS receiver or a transparent LoRa module.
type Device interface {
	// ReadLine reads a single line terminated by '\n'.
	// If timeout > 0, it must return after timeout even if no data available.
	ReadLine(timeout time.Duration) (string, error)

	// WriteLine writes s followed by '\n' to the device.
	WriteLine(s string) error

	// Close closes the device and releases underlying resources.
	Close() error
}
