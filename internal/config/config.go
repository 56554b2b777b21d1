// Package config loads the YAML configuration shared by the tracker and the ground station.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"HabTracker/internal/cutdown"
	"HabTracker/internal/geofence"
)

// Config represents the root structure loaded from configs/config.yml.
type Config struct {
	Mission  MissionConfig  `yaml:"mission"`
	Hardware HardwareConfig `yaml:"hardware"`
	GPS      SerialConfig   `yaml:"gps"`
	Radio    RadioConfig    `yaml:"radio"`
	Cutdown  CutdownConfig  `yaml:"cutdown"`
	Geofence GeofenceConfig `yaml:"geofence"`
	Sensors  SensorConfig   `yaml:"sensors"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// MissionConfig identifies the flight and where its records go.
type MissionConfig struct {
	Callsign  string `yaml:"callsign"`
	FlightLog string `yaml:"flight_log"` // bbolt file, empty disables the log
	LogFile   string `yaml:"log_file"`   // optional copy of the process log
	// Below this altitude the status LED blinks; above it the LED stays dark.
	LowPowerAltitudeM int64 `yaml:"low_power_altitude_m"`
	// Ground level of the landing area, used to recognise landing.
	LandingAltitudeM int64 `yaml:"landing_altitude_m"`
}

// HardwareConfig describes the pins and buses on the flight computer.
type HardwareConfig struct {
	GPIOEnabled       bool   `yaml:"gpio_enabled"` // false keeps all outputs in memory
	CutPin            int    `yaml:"cut_pin"`
	LEDPin            int    `yaml:"led_pin"`
	BuzzerPin         int    `yaml:"buzzer_pin"`
	I2CBus            string `yaml:"i2c_bus"` // empty disables the ADC
	ADCAddress        int    `yaml:"adc_address"`
	WatchdogDevice    string `yaml:"watchdog_device"` // empty uses a no-op watchdog
	WatchdogTimeoutMs int    `yaml:"watchdog_timeout_ms"`
	ThermalZone       string `yaml:"thermal_zone"`
}

// SerialConfig is a serial port.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// RadioConfig is the transparent LoRa UART module.
type RadioConfig struct {
	Device     string `yaml:"device"`
	Baud       int    `yaml:"baud"`
	WireFormat string `yaml:"wire_format"` // csv or json
}

// CutdownConfig mirrors cutdown.Config.
type CutdownConfig struct {
	CeilingM         int64 `yaml:"ceiling_m"`
	Debounce         int   `yaml:"debounce"`
	BurnStopMarginM  int64 `yaml:"burn_stop_margin_m"`
	CeilingDebounced bool  `yaml:"ceiling_debounced"`
}

// Machine converts to the cutdown package configuration.
func (c CutdownConfig) Machine() cutdown.Config {
	return cutdown.Config{
		CeilingM:         c.CeilingM,
		Debounce:         c.Debounce,
		BurnStopMarginM:  c.BurnStopMarginM,
		CeilingDebounced: c.CeilingDebounced,
	}
}

// GeofenceConfig is the mission boundary, listed as [lon, lat] pairs.
type GeofenceConfig struct {
	NoFix  geofence.NoFixPolicy `yaml:"no_fix"`
	Points geofence.Boundary    `yaml:"points"`
}

// SensorConfig selects the ADC channels in use.
type SensorConfig struct {
	// SolarEnabled[i] enables solar panel i on ADC channel i. Channels 0 and 1 are
	// shared with the NO2 electrodes, which are only read while their panel is off.
	SolarEnabled   [3]bool `yaml:"solar_enabled"`
	NO2Enabled     bool    `yaml:"no2_enabled"`
	BatteryChannel int     `yaml:"battery_channel"`
	BatteryDivider float64 `yaml:"battery_divider"`
}

// ScheduleConfig holds task intervals in milliseconds.
type ScheduleConfig struct {
	PollTickMs     int `yaml:"poll_tick_ms"`
	LEDMs          int `yaml:"led_ms"`
	BuzzerMs       int `yaml:"buzzer_ms"`
	GPSMs          int `yaml:"gps_ms"`
	FlightModeMs   int `yaml:"flight_mode_ms"`
	CutdownMs      int `yaml:"cutdown_ms"`
	SolarMs        int `yaml:"solar_ms"`
	NO2Ms          int `yaml:"no2_ms"`
	HousekeepingMs int `yaml:"housekeeping_ms"`
	RadioMs        int `yaml:"radio_ms"`
	FlightLogMs    int `yaml:"flight_log_ms"`
	MonitorMs      int `yaml:"monitor_ms"`
}

// MonitorConfig is the live telemetry HTTP/websocket server.
type MonitorConfig struct {
	Addr      string  `yaml:"addr"` // empty disables the monitor
	MaxRateHz float64 `yaml:"max_rate_hz"`
}

// DefaultConfig returns a configuration with the flight defaults.
func DefaultConfig() *Config {
	return &Config{
		Mission: MissionConfig{
			Callsign:          "HAB1",
			FlightLog:         "flight.db",
			LowPowerAltitudeM: 2000,
			LandingAltitudeM:  100,
		},
		Hardware: HardwareConfig{
			GPIOEnabled:       false,
			CutPin:            9,
			LEDPin:            25,
			BuzzerPin:         2,
			I2CBus:            "",
			ADCAddress:        0x48,
			WatchdogDevice:    "",
			WatchdogTimeoutMs: 2000,
			ThermalZone:       "/sys/class/thermal/thermal_zone0/temp",
		},
		GPS:   SerialConfig{Device: "/dev/ttyAMA0", Baud: 9600},
		Radio: RadioConfig{Device: "/dev/ttyUSB0", Baud: 9600, WireFormat: "csv"},
		Cutdown: CutdownConfig{
			CeilingM:         25500,
			Debounce:         5,
			BurnStopMarginM:  10,
			CeilingDebounced: true,
		},
		Geofence: GeofenceConfig{
			NoFix:  geofence.NoFixInside,
			Points: append(geofence.Boundary(nil), geofence.DefaultBoundary...),
		},
		Sensors: SensorConfig{
			SolarEnabled:   [3]bool{false, false, true},
			NO2Enabled:     true,
			BatteryChannel: 3,
			BatteryDivider: 2,
		},
		Schedule: ScheduleConfig{
			PollTickMs:     5,
			LEDMs:          3000,
			BuzzerMs:       1000,
			GPSMs:          10,
			FlightModeMs:   60000,
			CutdownMs:      1000,
			SolarMs:        1000,
			NO2Ms:          1000,
			HousekeepingMs: 1000,
			RadioMs:        2000,
			FlightLogMs:    2000,
			MonitorMs:      1000,
		},
		Monitor: MonitorConfig{Addr: ":8080", MaxRateHz: 2},
	}
}

// Load reads the YAML file at path on top of DefaultConfig, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyEnvironmentOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvironmentOverrides lets a launch script change the things that differ
// between the bench and the flight without editing the file.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv("HAB_CALLSIGN"); v != "" {
		c.Mission.Callsign = v
	}
	if v := os.Getenv("HAB_GPS_DEVICE"); v != "" {
		c.GPS.Device = v
	}
	if v := os.Getenv("HAB_RADIO_DEVICE"); v != "" {
		c.Radio.Device = v
	}
	if v, ok := os.LookupEnv("HAB_MONITOR_ADDR"); ok {
		c.Monitor.Addr = v
	}
	if v, ok := os.LookupEnv("HAB_FLIGHT_LOG"); ok {
		c.Mission.FlightLog = v
	}
}

// Validate checks the configuration for values the tracker cannot fly with.
func (c *Config) Validate() error {
	var errs []error
	if c.Mission.Callsign == "" || strings.ContainsAny(c.Mission.Callsign, ",*$ ") {
		errs = append(errs, fmt.Errorf("mission.callsign %q must be non-empty without ',*$ '", c.Mission.Callsign))
	}
	if c.Cutdown.CeilingM <= 0 {
		errs = append(errs, errors.New("cutdown.ceiling_m must be positive"))
	}
	if c.Cutdown.Debounce < 1 {
		errs = append(errs, errors.New("cutdown.debounce must be at least 1"))
	}
	if c.Cutdown.BurnStopMarginM < 0 {
		errs = append(errs, errors.New("cutdown.burn_stop_margin_m must not be negative"))
	}
	if err := c.Geofence.Points.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Radio.WireFormat != "csv" && c.Radio.WireFormat != "json" {
		errs = append(errs, fmt.Errorf("radio.wire_format %q must be csv or json", c.Radio.WireFormat))
	}
	if c.GPS.Device != "" && c.GPS.Baud <= 0 {
		errs = append(errs, errors.New("gps.baud must be positive"))
	}
	if c.Radio.Device != "" && c.Radio.Baud <= 0 {
		errs = append(errs, errors.New("radio.baud must be positive"))
	}
	if c.Hardware.WatchdogDevice != "" && c.Hardware.WatchdogTimeoutMs < 1000 {
		errs = append(errs, errors.New("hardware.watchdog_timeout_ms must be at least 1000"))
	}
	if c.Sensors.BatteryChannel < 0 || c.Sensors.BatteryChannel > 3 {
		errs = append(errs, errors.New("sensors.battery_channel must be 0-3"))
	}
	if c.Sensors.BatteryChannel <= 2 && c.Sensors.SolarEnabled[c.Sensors.BatteryChannel] {
		errs = append(errs, fmt.Errorf("sensors.battery_channel %d is used by a solar panel", c.Sensors.BatteryChannel))
	}
	s := c.Schedule
	for name, ms := range map[string]int{
		"poll_tick_ms": s.PollTickMs, "led_ms": s.LEDMs, "buzzer_ms": s.BuzzerMs,
		"gps_ms": s.GPSMs, "flight_mode_ms": s.FlightModeMs, "cutdown_ms": s.CutdownMs,
		"solar_ms": s.SolarMs, "no2_ms": s.NO2Ms, "housekeeping_ms": s.HousekeepingMs,
		"radio_ms": s.RadioMs, "flight_log_ms": s.FlightLogMs, "monitor_ms": s.MonitorMs,
	} {
		if ms <= 0 {
			errs = append(errs, fmt.Errorf("schedule.%s must be positive", name))
		}
	}
	if c.Monitor.Addr != "" && c.Monitor.MaxRateHz <= 0 {
		errs = append(errs, errors.New("monitor.max_rate_hz must be positive"))
	}
	return errors.Join(errs...)
}

// Millis converts a millisecond setting to a Duration.
func Millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
