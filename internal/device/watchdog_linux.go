//go:build linux

package device

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// HardwareWatchdog drives the Linux watchdog character device, e.g. /dev/watchdog.
// Once opened the board resets unless Pet is called within the timeout.
type HardwareWatchdog struct {
	f *os.File
}

// OpenWatchdog opens path and sets the timeout, rounded up to whole seconds.
func OpenWatchdog(path string, timeout time.Duration) (*HardwareWatchdog, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open watchdog %s: %w", path, err)
	}
	secs := int((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("set watchdog timeout: %w", err)
	}
	return &HardwareWatchdog{f: f}, nil
}

// Pet resets the watchdog timer.
func (w *HardwareWatchdog) Pet() error {
	_, err := unix.IoctlGetInt(int(w.f.Fd()), unix.WDIOC_KEEPALIVE)
	return err
}

// Close disarms the watchdog with the magic close character and closes the device.
func (w *HardwareWatchdog) Close() error {
	if _, err := w.f.Write([]byte("V")); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("disarm watchdog: %w", err)
	}
	return w.f.Close()
}
