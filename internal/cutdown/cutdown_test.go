package cutdown

import (
	"testing"

	"HabTracker/internal/device"
	"HabTracker/internal/geofence"
	"HabTracker/internal/model"
)

const (
	londonLat, londonLon = 51.5072, -0.1276
	parisLat, parisLon   = 48.8566, 2.3522
)

func newMachine(t *testing.T, cfg Config, policy geofence.NoFixPolicy) (*Machine, *device.MemLine) {
	t.Helper()
	fence, err := geofence.NewFence(geofence.DefaultBoundary, policy)
	if err != nil {
		t.Fatal(err)
	}
	line := &device.MemLine{}
	return New(cfg, fence, line), line
}

func at(alt int64, lat, lon float64) *model.FlightState {
	return &model.FlightState{Altitude: alt, Latitude: lat, Longitude: lon}
}

func TestDebounceResetsOnFalse(t *testing.T) {
	m, line := newMachine(t, DefaultConfig(), geofence.NoFixInside)
	s := at(1000, parisLat, parisLon)

	for i := 0; i < 4; i++ {
		m.Check(s)
	}
	if m.TestCount() != 4 || m.State() != Armed {
		t.Fatalf("Expected armed with 4 triggers, got %s with %d", m.State(), m.TestCount())
	}
	m.Check(at(1000, londonLat, londonLon))
	if m.TestCount() != 0 || m.State() != Armed {
		t.Errorf("Expected counter reset while armed, got %s with %d", m.State(), m.TestCount())
	}
	for i := 0; i < 4; i++ {
		m.Check(s)
	}
	if m.State() != Armed || line.Level() || s.HasCutDown {
		t.Error("Expected 4 fresh triggers to stay armed")
	}
	m.Check(s)
	if m.State() != Cutting || !line.Level() || !s.HasCutDown {
		t.Errorf("Expected cutting on 5th trigger, got %s line=%v", m.State(), line.Level())
	}
	if m.CutAltitude() != 1000 {
		t.Errorf("Expected reference 1000, got %d", m.CutAltitude())
	}
}

func TestBurnStop(t *testing.T) {
	tests := []struct {
		name     string
		next     int64
		want     State
		wantLine bool
	}{
		{"drop beyond margin", 19985, Stopped, false},
		{"drop within margin", 19995, Cutting, true},
		{"drop equal to margin", 19990, Cutting, true},
		{"still rising", 20050, Cutting, true},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.CeilingM = 20000
		cfg.CeilingDebounced = false
		m, line := newMachine(t, cfg, geofence.NoFixInside)

		m.Check(at(20000, londonLat, londonLon))
		if m.State() != Cutting {
			t.Fatalf("%s: expected cutting after ceiling breach, got %s", tt.name, m.State())
		}
		m.Check(at(tt.next, londonLat, londonLon))
		if m.State() != tt.want || line.Level() != tt.wantLine {
			t.Errorf("%s: expected %s line=%v, got %s line=%v", tt.name, tt.want, tt.wantLine, m.State(), line.Level())
		}
	}
}

func TestBurnReferenceRefreshesEveryCheck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CeilingDebounced = false
	m, line := newMachine(t, cfg, geofence.NoFixInside)

	m.Check(at(26000, londonLat, londonLon))
	// 8 m per check: a total drop of 80 m never exceeds 10 m between two checks.
	for alt := int64(25992); alt >= 25920; alt -= 8 {
		m.Check(at(alt, londonLat, londonLon))
		if m.State() != Cutting {
			t.Fatalf("Expected slow descent to keep cutting at %d m", alt)
		}
		if m.CutAltitude() != alt {
			t.Fatalf("Expected reference %d, got %d", alt, m.CutAltitude())
		}
	}
	m.Check(at(25900, londonLat, londonLon))
	if m.State() != Stopped || line.Level() {
		t.Errorf("Expected 20 m drop to stop the burn, got %s", m.State())
	}
}

func TestOneShot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CeilingDebounced = false
	m, line := newMachine(t, cfg, geofence.NoFixOutside)

	m.Check(at(25600, parisLat, parisLon))
	m.Check(at(25000, parisLat, parisLon))
	if m.State() != Stopped {
		t.Fatalf("Expected stopped, got %s", m.State())
	}
	for i := 0; i < 20; i++ {
		m.Check(at(30000+int64(i)*100, parisLat, parisLon))
		m.Check(at(0, 0, 0))
	}
	if m.State() != Stopped || line.Level() || line.Rises() != 1 {
		t.Errorf("Expected stopped with a single energise, got %s line=%v rises=%d", m.State(), line.Level(), line.Rises())
	}
}

func TestCeilingDominatesAnyPosition(t *testing.T) {
	positions := []struct {
		name     string
		lat, lon float64
		policy   geofence.NoFixPolicy
	}{
		{"inside", londonLat, londonLon, geofence.NoFixInside},
		{"outside", parisLat, parisLon, geofence.NoFixInside},
		{"no fix inside policy", 0, 0, geofence.NoFixInside},
		{"no fix outside policy", 0, 0, geofence.NoFixOutside},
	}
	for _, p := range positions {
		m, line := newMachine(t, DefaultConfig(), p.policy)
		for i := 1; i <= 5; i++ {
			m.Check(at(25600, p.lat, p.lon))
			if i < 5 && m.State() != Armed {
				t.Fatalf("%s: expected armed after %d checks, got %s", p.name, i, m.State())
			}
		}
		if m.State() != Cutting || !line.Level() {
			t.Errorf("%s: expected cutting on 5th ceiling check, got %s", p.name, m.State())
		}
	}
}

func TestCeilingImmediatePolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CeilingDebounced = false
	m, line := newMachine(t, cfg, geofence.NoFixInside)

	m.Check(at(25500, londonLat, londonLon))
	if m.State() != Cutting || !line.Level() {
		t.Errorf("Expected immediate cut at the ceiling, got %s", m.State())
	}

	// Geofence breaches are still debounced under the immediate ceiling policy.
	m2, _ := newMachine(t, cfg, geofence.NoFixInside)
	for i := 0; i < 4; i++ {
		m2.Check(at(1000, parisLat, parisLon))
	}
	if m2.State() != Armed {
		t.Errorf("Expected geofence breach still debounced, got %s", m2.State())
	}
}

func TestNoFixScenario(t *testing.T) {
	m, line := newMachine(t, DefaultConfig(), geofence.NoFixInside)
	for i := 0; i < 5; i++ {
		m.Check(at(5000, 0, 0))
	}
	if m.State() != Armed || line.Level() || m.TestCount() != 0 {
		t.Errorf("Expected no-fix inside policy to stay armed, got %s count=%d", m.State(), m.TestCount())
	}

	m, line = newMachine(t, DefaultConfig(), geofence.NoFixOutside)
	for i := 0; i < 5; i++ {
		m.Check(at(5000, 0, 0))
	}
	if m.State() != Cutting || !line.Level() {
		t.Errorf("Expected no-fix outside policy to cut on 5th check, got %s", m.State())
	}
}

func TestAlreadyCutStateNeverArms(t *testing.T) {
	m, line := newMachine(t, DefaultConfig(), geofence.NoFixInside)
	s := at(26000, parisLat, parisLon)
	s.HasCutDown = true
	for i := 0; i < 10; i++ {
		m.Check(s)
	}
	if m.State() != Stopped || line.Rises() != 0 {
		t.Errorf("Expected stopped without firing, got %s rises=%d", m.State(), line.Rises())
	}
}

func TestNewDrivesLineLowAndClampsDebounce(t *testing.T) {
	line := &device.MemLine{}
	line.Set(true)
	m := New(Config{CeilingM: 100}, &geofence.Fence{Boundary: geofence.DefaultBoundary}, line)
	if line.Level() {
		t.Error("Expected New to drive the line low")
	}
	m.Check(at(100, londonLat, londonLon))
	if m.State() != Cutting {
		t.Errorf("Expected debounce clamped to 1, got %s", m.State())
	}
}

func TestStateString(t *testing.T) {
	if Armed.String() != "armed" || Cutting.String() != "cutting" || Stopped.String() != "stopped" {
		t.Error("Unexpected state names")
	}
}
