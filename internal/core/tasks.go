package core

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"HabTracker/internal/cutdown"
	"HabTracker/internal/device"
	"HabTracker/internal/model"
	"HabTracker/internal/repeater"
)

// Blink timing of the status LED before and after the first fix.
const (
	searchBlink = 50 * time.Millisecond
	fixBlinkMin = 100 * time.Millisecond
	fixBlinkMax = 500 * time.Millisecond
)

// Transmitter sends telemetry over the radio link.
type Transmitter interface {
	Send(t model.Telemetry) (string, error)
}

// Recorder stores telemetry in the flight log.
type Recorder interface {
	Append(runID string, at time.Time, t model.Telemetry) error
}

// Publisher pushes telemetry to live viewers.
type Publisher interface {
	Publish(t model.Telemetry) bool
}

func ledTask(gate *repeater.Repeater, led device.OutputLine, lowPowerAltitude int64) *Task {
	gate.UpdateDelay(searchBlink, searchBlink, searchBlink)
	fixed := false
	return &Task{Name: "led", Gate: gate, Needs: NeedState, Run: func(st *model.FlightState, _ device.ADC) error {
		if !fixed && st.HasPosition() {
			fixed = true
			gate.Clear()
			gate.UpdateDelay(fixBlinkMin, fixBlinkMax)
		}
		if st.Altitude < lowPowerAltitude {
			device.Toggle(led)
		} else {
			led.Set(false)
		}
		return nil
	}}
}

func buzzerTask(gate *repeater.Repeater, buzzer device.OutputLine) *Task {
	return &Task{Name: "buzzer", Gate: gate, Needs: NeedState, Run: func(st *model.FlightState, _ device.ADC) error {
		if st.FlightMode == model.FlightModeLanded {
			device.Toggle(buzzer)
		}
		return nil
	}}
}

// gpsTask drains every fix queued since the last run. Invalid fixes never reach
// the record.
func gpsTask(gate *repeater.Repeater, fixes <-chan model.GpsFix) *Task {
	seen := false
	return &Task{Name: "gps", Gate: gate, Needs: NeedState, Run: func(st *model.FlightState, _ device.ADC) error {
		for {
			select {
			case f, ok := <-fixes:
				if !ok {
					fixes = nil
					return errors.New("gps stream closed")
				}
				if applyFix(st, f, !seen) {
					seen = true
				}
			default:
				return nil
			}
		}
	}}
}

func applyFix(st *model.FlightState, f model.GpsFix, first bool) bool {
	if !f.Valid() {
		return false
	}
	st.Hours, st.Minutes, st.Seconds = f.Hours, f.Minutes, f.Seconds
	st.Latitude, st.Longitude = f.Latitude, f.Longitude
	st.Altitude = int64(math.Round(f.Altitude))
	st.Satellites = f.Satellites
	if first {
		st.MinAltitude, st.MaxAltitude = st.Altitude, st.Altitude
	}
	st.MinAltitude = min(st.MinAltitude, st.Altitude)
	st.MaxAltitude = max(st.MaxAltitude, st.Altitude)
	return true
}

func flightModeTask(gate *repeater.Repeater, tracker *flightModeTracker) *Task {
	return &Task{Name: "flight-mode", Gate: gate, Needs: NeedState, Run: func(st *model.FlightState, _ device.ADC) error {
		prev := st.FlightMode
		tracker.update(st)
		if st.FlightMode != prev {
			log.Printf("[flight] mode %s -> %s at %d m (%.1f m/s)", prev, st.FlightMode, st.Altitude, st.AscentRate)
		}
		return nil
	}}
}

func cutdownTask(gate *repeater.Repeater, m *cutdown.Machine) *Task {
	return &Task{Name: "cutdown", Gate: gate, Needs: NeedState, Run: func(st *model.FlightState, _ device.ADC) error {
		before := m.State()
		m.Check(st)
		if after := m.State(); after != before {
			log.Printf("[cutdown] %s -> %s at %d m (%.5f, %.5f)", before, after, st.Altitude, st.Latitude, st.Longitude)
		}
		return nil
	}}
}

// solarTask reads the enabled panels. A failed channel keeps its last value.
func solarTask(gate *repeater.Repeater, enabled [3]bool) *Task {
	return &Task{Name: "solar", Gate: gate, Needs: NeedStateADC, Run: func(st *model.FlightState, adc device.ADC) error {
		var errs []error
		for ch, on := range enabled {
			if !on {
				continue
			}
			v, err := adc.ReadVolts(ch)
			if err != nil {
				errs = append(errs, fmt.Errorf("solar%d: %w", ch, err))
				continue
			}
			st.Solar[ch] = v
		}
		return errors.Join(errs...)
	}}
}

// no2Task reads the NO2 working and auxiliary electrodes on ADC channels 0 and 1,
// skipping a channel while its solar panel owns it.
func no2Task(gate *repeater.Repeater, solar [3]bool) *Task {
	return &Task{Name: "no2", Gate: gate, Needs: NeedStateADC, Run: func(st *model.FlightState, adc device.ADC) error {
		var errs []error
		if !solar[0] {
			if v, err := adc.ReadVolts(0); err != nil {
				errs = append(errs, fmt.Errorf("no2 we: %w", err))
			} else {
				st.NO2WE = v
			}
		}
		if !solar[1] {
			if v, err := adc.ReadVolts(1); err != nil {
				errs = append(errs, fmt.Errorf("no2 ae: %w", err))
			} else {
				st.NO2AE = v
			}
		}
		return errors.Join(errs...)
	}}
}

// housekeepingTask samples the battery under the ADC lock alone, reads the board
// temperature without any lock and only then takes the state lock to store both.
func housekeepingTask(gate *repeater.Repeater, shared *Shared, battChannel int, divider float64, thermalZone string) *Task {
	return &Task{Name: "housekeeping", Gate: gate, Needs: NeedNone, Run: func(_ *model.FlightState, _ device.ADC) error {
		var (
			errs       []error
			batt, temp float64
			haveBatt   bool
			haveTemp   bool
		)
		if shared.HasADC() {
			shared.WithADC(func(adc device.ADC) {
				v, err := adc.ReadVolts(battChannel)
				if err != nil {
					errs = append(errs, fmt.Errorf("battery: %w", err))
					return
				}
				batt, haveBatt = v*divider, true
			})
		}
		if thermalZone != "" {
			v, err := device.ReadThermalZone(thermalZone)
			if err != nil {
				errs = append(errs, err)
			} else {
				temp, haveTemp = v, true
			}
		}
		shared.Update(func(st *model.FlightState) {
			if haveBatt {
				st.BatteryVoltage = batt
			}
			if haveTemp {
				st.InternalTemperature = temp
			}
		})
		return errors.Join(errs...)
	}}
}

// telemetryFeed turns snapshots into numbered telemetry. It belongs to unit B.
type telemetryFeed struct {
	callsign string
	shared   *Shared
	counter  uint32
}

// next numbers a new sentence.
func (f *telemetryFeed) next() model.Telemetry {
	f.counter++
	return model.NewTelemetry(f.callsign, f.counter, f.shared.Snapshot())
}

// current reuses the number of the last sentence sent.
func (f *telemetryFeed) current() model.Telemetry {
	return model.NewTelemetry(f.callsign, f.counter, f.shared.Snapshot())
}

func radioTask(gate *repeater.Repeater, feed *telemetryFeed, tx Transmitter) *Task {
	return &Task{Name: "radio", Gate: gate, Needs: NeedNone, Run: func(_ *model.FlightState, _ device.ADC) error {
		line, err := tx.Send(feed.next())
		if err != nil {
			return err
		}
		log.Printf("[radio] sent %s", line)
		return nil
	}}
}

func flightLogTask(gate *repeater.Repeater, feed *telemetryFeed, rec Recorder, runID string) *Task {
	return &Task{Name: "flight-log", Gate: gate, Needs: NeedNone, Run: func(_ *model.FlightState, _ device.ADC) error {
		return rec.Append(runID, time.Now(), feed.current())
	}}
}

func monitorTask(gate *repeater.Repeater, feed *telemetryFeed, pub Publisher) *Task {
	return &Task{Name: "monitor", Gate: gate, Needs: NeedNone, Run: func(_ *model.FlightState, _ device.ADC) error {
		pub.Publish(feed.current())
		return nil
	}}
}
