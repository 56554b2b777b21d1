// Package core runs the flight controller: the shared flight state record, the two
// polling units and the tasks they schedule.
package core

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"HabTracker/internal/config"
	"HabTracker/internal/cutdown"
	"HabTracker/internal/device"
	"HabTracker/internal/flightlog"
	"HabTracker/internal/geofence"
	"HabTracker/internal/lora"
	"HabTracker/internal/model"
	"HabTracker/internal/monitor"
	"HabTracker/internal/repeater"
)

// Hardware is what the controller drives. Nil ADC, Fixes or Radio disable the
// tasks that need them.
type Hardware struct {
	Cutter   device.OutputLine
	LED      device.OutputLine
	Buzzer   device.OutputLine
	ADC      device.ADC
	Watchdog device.Watchdog
	Fixes    <-chan model.GpsFix
	Radio    Transmitter

	closers []func() error
}

// Close releases everything OpenHardware opened, in reverse order.
func (h *Hardware) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

// MemHardware returns hardware kept in memory: output lines, a watchdog that only
// counts, and no ADC, GPS or radio.
func MemHardware() *Hardware {
	return &Hardware{
		Cutter:   &device.MemLine{},
		LED:      &device.MemLine{},
		Buzzer:   &device.MemLine{},
		Watchdog: &device.NopWatchdog{},
	}
}

// OpenHardware opens the devices named in cfg.
func OpenHardware(cfg *config.Config) (*Hardware, error) {
	hw := MemHardware()
	fail := func(err error) (*Hardware, error) {
		_ = hw.Close()
		return nil, err
	}

	h := cfg.Hardware
	if h.GPIOEnabled {
		if err := device.OpenGPIO(); err != nil {
			return fail(err)
		}
		hw.closers = append(hw.closers, device.CloseGPIO)
		hw.Cutter = device.NewGPIOLine("cut", h.CutPin)
		hw.LED = device.NewGPIOLine("led", h.LEDPin)
		hw.Buzzer = device.NewGPIOLine("buzzer", h.BuzzerPin)
	}
	if h.I2CBus != "" {
		adc, err := device.OpenADS1115(h.I2CBus, h.ADCAddress)
		if err != nil {
			return fail(err)
		}
		hw.ADC = adc
		hw.closers = append(hw.closers, adc.Close)
	}
	if h.WatchdogDevice != "" {
		wd, err := device.OpenWatchdog(h.WatchdogDevice, config.Millis(h.WatchdogTimeoutMs))
		if err != nil {
			return fail(err)
		}
		hw.Watchdog = wd
		hw.closers = append(hw.closers, wd.Close)
	}
	if cfg.GPS.Device != "" {
		fixes := make(chan model.GpsFix, 16)
		gps := device.NewGpsDevice("gps", cfg.GPS.Device, cfg.GPS.Baud)
		stop, err := gps.Read(fixes)
		if err != nil {
			return fail(err)
		}
		hw.Fixes = fixes
		hw.closers = append(hw.closers, func() error { stop(); return nil })
	}
	if cfg.Radio.Device != "" {
		radio, err := lora.New(cfg.Radio.Device, cfg.Radio.Baud, cfg.Radio.WireFormat)
		if err != nil {
			return fail(err)
		}
		hw.Radio = radio
		hw.closers = append(hw.closers, radio.Close)
	}
	return hw, nil
}

// System owns the flight controller: both units, their hardware and the optional
// flight log and monitor.
type System struct {
	RunID   string
	Config  *config.Config
	Shared  *Shared
	Cutdown *cutdown.Machine
	UnitA   *Unit
	UnitB   *Unit
	Log     *flightlog.Store
	Monitor *monitor.Server

	hw        *Hardware
	handshake *Handshake
	stop      chan struct{}
	wg        sync.WaitGroup

	started   bool
	startLock sync.Mutex
}

// NewSystem loads the configuration at cfgPath, opens the hardware it names and
// builds the system.
func NewSystem(cfgPath string) (*System, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	hw, err := OpenHardware(cfg)
	if err != nil {
		return nil, err
	}
	s, err := New(cfg, hw)
	if err != nil {
		_ = hw.Close()
		return nil, err
	}
	return s, nil
}

// New builds the system on already opened hardware. The system takes ownership of hw.
func New(cfg *config.Config, hw *Hardware) (*System, error) {
	fence, err := geofence.NewFence(cfg.Geofence.Points, cfg.Geofence.NoFix)
	if err != nil {
		return nil, fmt.Errorf("geofence: %w", err)
	}
	if hw.Watchdog == nil {
		hw.Watchdog = &device.NopWatchdog{}
	}

	s := &System{
		RunID:     uuid.NewString(),
		Config:    cfg,
		Shared:    NewShared(hw.ADC),
		hw:        hw,
		handshake: NewHandshake(),
	}
	s.Cutdown = cutdown.New(cfg.Cutdown.Machine(), fence, hw.Cutter)
	hw.Buzzer.Set(false)
	hw.LED.Set(false)

	if cfg.Mission.FlightLog != "" {
		s.Log, err = flightlog.Open(cfg.Mission.FlightLog)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Monitor.Addr != "" {
		s.Monitor = monitor.New(cfg.Monitor.Addr, cfg.Monitor.MaxRateHz)
		if s.Log != nil {
			s.Monitor.History = s.Log
		}
	}

	sc := cfg.Schedule
	gate := func(ms int) *repeater.Repeater { return repeater.New(config.Millis(ms)) }

	tasksA := []*Task{
		ledTask(gate(sc.LEDMs), hw.LED, cfg.Mission.LowPowerAltitudeM),
		buzzerTask(gate(sc.BuzzerMs), hw.Buzzer),
	}
	if hw.Fixes != nil {
		tasksA = append(tasksA, gpsTask(gate(sc.GPSMs), hw.Fixes))
	}
	tasksA = append(tasksA,
		flightModeTask(gate(sc.FlightModeMs), newFlightModeTracker(cfg.Mission.LandingAltitudeM)),
		cutdownTask(gate(sc.CutdownMs), s.Cutdown),
	)
	if hw.ADC != nil {
		tasksA = append(tasksA, solarTask(gate(sc.SolarMs), cfg.Sensors.SolarEnabled))
		if cfg.Sensors.NO2Enabled {
			tasksA = append(tasksA, no2Task(gate(sc.NO2Ms), cfg.Sensors.SolarEnabled))
		}
	}
	tasksA = append(tasksA, housekeepingTask(gate(sc.HousekeepingMs), s.Shared,
		cfg.Sensors.BatteryChannel, cfg.Sensors.BatteryDivider, cfg.Hardware.ThermalZone))

	feed := &telemetryFeed{callsign: cfg.Mission.Callsign, shared: s.Shared}
	var tasksB []*Task
	if hw.Radio != nil {
		tasksB = append(tasksB, radioTask(gate(sc.RadioMs), feed, hw.Radio))
	}
	if s.Log != nil {
		tasksB = append(tasksB, flightLogTask(gate(sc.FlightLogMs), feed, s.Log, s.RunID))
	}
	if s.Monitor != nil {
		tasksB = append(tasksB, monitorTask(gate(sc.MonitorMs), feed, s.Monitor))
	}

	tick := config.Millis(sc.PollTickMs)
	s.UnitA = NewUnit("unit-a", s.Shared, tick, hw.Watchdog, tasksA...)
	s.UnitB = NewUnit("unit-b", s.Shared, tick, nil, tasksB...)
	return s, nil
}

// StartAll starts the monitor and both units. It returns once the units have
// completed the startup handshake.
func (s *System) StartAll() error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		return nil
	}

	if s.Log != nil {
		run := flightlog.Run{ID: s.RunID, Callsign: s.Config.Mission.Callsign, Started: time.Now().UTC()}
		if err := s.Log.StartRun(run); err != nil {
			return fmt.Errorf("flight log: %w", err)
		}
	}
	if s.Monitor != nil {
		if err := s.Monitor.Start(); err != nil {
			log.Printf("[system] monitor disabled: %v", err)
			s.Monitor = nil
		}
	}

	s.stop = make(chan struct{})
	ready := make(chan error, 2)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		err := s.handshake.Announce(s.stop)
		ready <- err
		if err != nil {
			return
		}
		log.Printf("[%s] initialised", s.UnitB.Name)
		s.UnitB.Run(s.stop)
	}()
	go func() {
		defer s.wg.Done()
		err := s.handshake.Acknowledge(s.stop)
		ready <- err
		if err != nil {
			return
		}
		log.Printf("[%s] initialised", s.UnitA.Name)
		s.UnitA.Run(s.stop)
	}()

	for i := 0; i < 2; i++ {
		if err := <-ready; err != nil {
			close(s.stop)
			s.wg.Wait()
			return err
		}
	}
	log.Printf("[system] run %s started as %s", s.RunID, s.Config.Mission.Callsign)
	s.started = true
	return nil
}

// StopAll stops both units between iterations, de-energises the cutter and
// releases the hardware.
func (s *System) StopAll() {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if !s.started {
		return
	}
	close(s.stop)
	s.wg.Wait()
	s.hw.Cutter.Set(false)
	if s.Monitor != nil {
		s.Monitor.Stop()
	}
	if err := s.hw.Close(); err != nil {
		log.Printf("[system] hardware close: %v", err)
	}
	if s.Log != nil {
		if err := s.Log.Close(); err != nil {
			log.Printf("[system] flight log close: %v", err)
		}
	}
	s.started = false
}
