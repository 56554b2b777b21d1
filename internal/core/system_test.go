package core

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"HabTracker/internal/config"
	"HabTracker/internal/cutdown"
	"HabTracker/internal/device"
	"HabTracker/internal/flightlog"
	"HabTracker/internal/geofence"
	"HabTracker/internal/model"
)

type lockedRadio struct {
	mu   sync.Mutex
	sent []model.Telemetry
}

func (r *lockedRadio) Send(t model.Telemetry) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, t)
	return t.Callsign, nil
}

func (r *lockedRadio) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Mission.FlightLog = filepath.Join(t.TempDir(), "flight.db")
	cfg.Monitor.Addr = ""
	cfg.Hardware.ThermalZone = ""
	cfg.GPS.Device = ""
	cfg.Radio.Device = ""
	cfg.Cutdown.CeilingM = 1000
	cfg.Cutdown.Debounce = 3
	cfg.Schedule = config.ScheduleConfig{
		PollTickMs: 1, LEDMs: 5, BuzzerMs: 5, GPSMs: 1, FlightModeMs: 50,
		CutdownMs: 5, SolarMs: 5, NO2Ms: 5, HousekeepingMs: 5,
		RadioMs: 5, FlightLogMs: 5, MonitorMs: 5,
	}
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSystemCutsDownAboveCeiling(t *testing.T) {
	cfg := testConfig(t)
	cfg.Monitor.Addr = "127.0.0.1:0"

	hw := MemHardware()
	fixes := make(chan model.GpsFix, 16)
	radio := &lockedRadio{}
	adc := device.NewMemADC(map[int]float64{2: 1.1, 3: 1.9})
	hw.Fixes, hw.Radio, hw.ADC = fixes, radio, adc
	cutter := hw.Cutter.(*device.MemLine)
	wd := hw.Watchdog.(*device.NopWatchdog)

	sys, err := New(cfg, hw)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sys.StartAll(); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	defer sys.StopAll()

	london := model.GpsFix{Hours: 12, Latitude: 51.5072, Longitude: -0.1276, Satellites: 9, Quality: 1}
	london.Altitude = 1500
	fixes <- london
	waitFor(t, "cutdown", func() bool { return sys.Shared.Snapshot().HasCutDown })
	if !cutter.Level() {
		t.Error("Expected cutter energised after cutdown")
	}

	london.Altitude = 1400
	fixes <- london
	waitFor(t, "burn stop", func() bool { return !cutter.Level() })

	waitFor(t, "sensors", func() bool {
		st := sys.Shared.Snapshot()
		return st.Solar[2] == 1.1 && st.BatteryVoltage == 3.8
	})
	waitFor(t, "radio", func() bool { return radio.count() >= 2 })

	addr := sys.Monitor.ListenAddr()
	resp, err := http.Get("http://" + addr + "/api/state")
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	var tel model.Telemetry
	json.NewDecoder(resp.Body).Decode(&tel)
	resp.Body.Close()
	if tel.Callsign != cfg.Mission.Callsign {
		t.Errorf("Expected monitor state for %s, got %+v", cfg.Mission.Callsign, tel)
	}

	sys.StopAll()
	if sys.Cutdown.State() != cutdown.Stopped {
		t.Errorf("Expected cutdown stopped, got %s", sys.Cutdown.State())
	}
	if cutter.Rises() != 1 {
		t.Errorf("Expected the cutter energised exactly once, got %d", cutter.Rises())
	}
	if wd.Pets() == 0 || wd.Pets() != sys.UnitA.Iterations() {
		t.Errorf("Expected one pet per unit A iteration, got %d pets for %d iterations", wd.Pets(), sys.UnitA.Iterations())
	}

	store, err := flightlog.Open(cfg.Mission.FlightLog)
	if err != nil {
		t.Fatalf("reopen flight log: %v", err)
	}
	defer store.Close()
	rec, err := store.Latest(sys.RunID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !rec.Telemetry.CutDown {
		t.Errorf("Expected logged telemetry to show the cutdown, got %+v", rec.Telemetry)
	}
	runs, _ := store.Runs()
	if len(runs) != 1 || runs[0].ID != sys.RunID {
		t.Errorf("Expected run %s registered, got %+v", sys.RunID, runs)
	}
}

func TestSystemStaysArmedInsideFence(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mission.FlightLog = ""
	hw := MemHardware()
	fixes := make(chan model.GpsFix, 4)
	hw.Fixes = fixes

	sys, err := New(cfg, hw)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sys.StartAll(); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	fixes <- model.GpsFix{Latitude: 52.2053, Longitude: 0.1218, Altitude: 500, Quality: 1}
	waitFor(t, "fix", func() bool { return sys.Shared.Snapshot().Altitude == 500 })
	time.Sleep(50 * time.Millisecond)
	sys.StopAll()

	if sys.Shared.Snapshot().HasCutDown || sys.Cutdown.State() != cutdown.Armed {
		t.Error("Expected no cutdown inside the fence below the ceiling")
	}
	if len(sys.UnitB.Tasks) != 0 {
		t.Errorf("Expected no unit B tasks without radio, log or monitor, got %d", len(sys.UnitB.Tasks))
	}
}

func TestStartStopAreIdempotent(t *testing.T) {
	cfg := testConfig(t)
	sys, err := New(cfg, MemHardware())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sys.StopAll()
	if err := sys.StartAll(); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := sys.StartAll(); err != nil {
		t.Fatalf("second StartAll: %v", err)
	}
	sys.StopAll()
	sys.StopAll()
}

func TestNewRejectsBadBoundary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Geofence.Points = geofence.Boundary{{Lon: 1, Lat: 1}}
	if _, err := New(cfg, MemHardware()); err == nil {
		t.Error("Expected an invalid boundary to be rejected")
	}
}

func TestNewSystemWithoutHardware(t *testing.T) {
	t.Setenv("HAB_GPS_DEVICE", "")
	path := filepath.Join(t.TempDir(), "config.yml")
	doc := "mission:\n  flight_log: \"\"\ngps:\n  device: \"\"\nradio:\n  device: \"\"\nmonitor:\n  addr: \"\"\n"
	if err := writeFile(path, doc); err != nil {
		t.Fatal(err)
	}
	sys, err := NewSystem(path)
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	if sys.Log != nil || sys.Monitor != nil {
		t.Error("Expected flight log and monitor disabled")
	}
	if sys.RunID == "" {
		t.Error("Expected a run id")
	}
}

func writeFile(path, s string) error { return os.WriteFile(path, []byte(s), 0o644) }
