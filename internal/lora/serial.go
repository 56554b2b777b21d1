// Package lora is the telemetry radio link: a transparent LoRa UART module that
// carries one encoded telemetry sentence per line.
package lora

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"HabTracker/internal/device"
	"HabTracker/internal/model"
	"HabTracker/internal/parser"
)

// ErrEmptyLine is returned by Receive when the module produced a blank line.
var ErrEmptyLine = errors.New("lora: empty line")

// LoRa wraps the module's serial link and the telemetry wire parser.
type LoRa struct {
	link  device.Device
	codec parser.Parser
}

// New opens the module on a serial device (e.g. /dev/ttyUSB0) with the given
// baudrate and wire format.
func New(dev string, baud int, format string) (*LoRa, error) {
	codec, err := parser.New(format)
	if err != nil {
		return nil, err
	}
	sd, err := device.NewSerialDevice(dev, baud)
	if err != nil {
		return nil, fmt.Errorf("lora: %w", err)
	}
	return &LoRa{link: sd, codec: codec}, nil
}

// NewOn builds a link over an already open device.
func NewOn(link device.Device, codec parser.Parser) *LoRa {
	return &LoRa{link: link, codec: codec}
}

// Send encodes t and writes it as one line. It returns the line sent.
func (l *LoRa) Send(t model.Telemetry) (string, error) {
	line, err := l.codec.EncodeTelemetry(t)
	if err != nil {
		return "", fmt.Errorf("lora: encode: %w", err)
	}
	if err := l.link.WriteLine(line); err != nil {
		return "", fmt.Errorf("lora: write: %w", err)
	}
	return line, nil
}

// Receive reads one line and decodes it. A timeout of zero blocks.
func (l *LoRa) Receive(timeout time.Duration) (model.Telemetry, error) {
	line, err := l.link.ReadLine(timeout)
	if err != nil {
		return model.Telemetry{}, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return model.Telemetry{}, ErrEmptyLine
	}
	t, err := l.codec.DecodeTelemetry(line)
	if err != nil {
		return model.Telemetry{}, fmt.Errorf("lora: decode %q: %w", line, err)
	}
	return t, nil
}

// Close closes the underlying port.
func (l *LoRa) Close() error {
	if l.link == nil {
		return nil
	}
	return l.link.Close()
}
