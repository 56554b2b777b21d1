package device

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"HabTracker/internal/model"
	"HabTracker/internal/parser"
)

// GpsDevice reads NMEA GGA sentences from a receiver and turns them into fixes.
// It can also play a simulated flight into a serial port for bench tests.
type GpsDevice struct {
	ID     string
	Device string
	Baud   int
	Link   Device
}

// NewGpsDevice creates a GPS device on a serial port. The port is opened by Open or Read.
func NewGpsDevice(id string, dev string, baud int) *GpsDevice {
	return &GpsDevice{ID: id, Device: dev, Baud: baud}
}

// NewGpsDeviceOn creates a GPS device over an already open link.
func NewGpsDeviceOn(id string, link Device) *GpsDevice {
	return &GpsDevice{ID: id, Link: link}
}

// Open opens the GPS serial port.
func (gps *GpsDevice) Open() error {
	if gps.Link != nil {
		return nil
	}
	sd, err := NewSerialDevice(gps.Device, gps.Baud)
	if err != nil {
		return fmt.Errorf("open gps serial failed: %w", err)
	}
	gps.Link = sd
	return nil
}

// Close closes the GPS link.
func (gps *GpsDevice) Close() error {
	if gps.Link == nil {
		return nil
	}
	err := gps.Link.Close()
	gps.Link = nil
	return err
}

// ReadLine reads one NMEA line from the GPS.
func (gps *GpsDevice) ReadLine(timeout time.Duration) (string, error) {
	if gps.Link == nil {
		return "", errors.New("gps serial not open")
	}
	return gps.Link.ReadLine(timeout)
}

// WriteLine writes a line to the GPS port. Used by the simulator and for receiver configuration.
func (gps *GpsDevice) WriteLine(s string) error {
	if gps.Link == nil {
		return errors.New("gps serial not open")
	}
	return gps.Link.WriteLine(s)
}

// Read streams valid GGA fixes to out until the returned stop function is called.
// Sentences that fail to parse or carry no fix are dropped. out is closed on exit.
func (gps *GpsDevice) Read(out chan<- model.GpsFix) (func(), error) {
	if err := gps.Open(); err != nil {
		return nil, err
	}
	link := gps.Link

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)

		for {
			select {
			case <-stop:
				return
			default:
			}

			line, err := link.ReadLine(500 * time.Millisecond)
			if errors.Is(err, ErrReadTimeout) {
				continue
			}
			if err != nil {
				time.Sleep(200 * time.Millisecond)
				continue
			}
			line = strings.TrimSpace(line)
			if !parser.IsGGA(line) {
				continue
			}
			fix, err := parser.ParseGGA(line)
			if err != nil {
				log.Printf("[gps %s] skip sentence: %v", gps.ID, err)
				continue
			}
			if !fix.Valid() {
				continue
			}
			select {
			case out <- fix:
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			_ = gps.Close()
			<-done
		})
	}, nil
}

// StartSimulation writes the GGA sentences of a simulated flight to the port every
// interval until stop is closed.
func (gps *GpsDevice) StartSimulation(stop <-chan struct{}, flight *FlightProfile, interval time.Duration) error {
	if err := gps.Open(); err != nil {
		return err
	}
	defer func() {
		if err := gps.Close(); err != nil {
			log.Printf("[gps %s] warning: failed to close: %v", gps.ID, err)
		}
	}()

	log.Printf("[gps %s] simulator started on %s (baud %d)", gps.ID, gps.Device, gps.Baud)
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-stop:
			log.Printf("[gps %s] simulation stopped", gps.ID)
			return nil
		case now := <-tick.C:
			fix := flight.Step(interval, now.UTC())
			sentence := parser.FormatGGA(fix)
			if err := gps.WriteLine(sentence); err != nil {
				log.Printf("[gps %s] simulate write error: %v", gps.ID, err)
				continue
			}
			log.Printf("[gps %s] %s alt=%.0f", gps.ID, flight.Phase(), fix.Altitude)
		}
	}
}
