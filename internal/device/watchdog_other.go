//go:build !linux

package device

import (
	"errors"
	"time"
)

// HardwareWatchdog is only available on Linux.
type HardwareWatchdog struct{}

// OpenWatchdog always fails off Linux.
func OpenWatchdog(path string, timeout time.Duration) (*HardwareWatchdog, error) {
	return nil, errors.New("hardware watchdog requires linux")
}

// Pet does nothing.
func (w *HardwareWatchdog) Pet() error { return nil }

// Close does nothing.
func (w *HardwareWatchdog) Close() error { return nil }
