package device

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultThermalZone is the SoC temperature sensor on a Raspberry Pi.
const DefaultThermalZone = "/sys/class/thermal/thermal_zone0/temp"

// ReadThermalZone returns the temperature in degrees Celsius reported by a sysfs
// thermal zone file, which holds millidegrees.
func ReadThermalZone(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read thermal zone: %w", err)
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse thermal zone %q: %w", path, err)
	}
	return float64(milli) / 1000, nil
}
