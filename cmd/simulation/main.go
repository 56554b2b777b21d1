// GPS simulator: writes the GGA sentences of a simulated balloon flight to a serial
// device. Use it to exercise the tracker's geofence and cutdown on the bench.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HabTracker/internal/device"
	"HabTracker/internal/util"
)

func main() {
	util.SetupLogger()

	dev := flag.String("dev", "/tmp/hab_gps_sim", "serial device to write sentences into")
	baud := flag.Int("baud", 9600, "baud rate")
	virtual := flag.String("virtual", "", "create a socat pair linking -dev to this path")
	lat := flag.Float64("lat", 51.7520, "launch latitude")
	lon := flag.Float64("lon", -1.2577, "launch longitude")
	ascent := flag.Float64("ascent", 5, "ascent rate in m/s")
	burst := flag.Float64("burst", 30000, "burst altitude in m")
	speed := flag.Float64("speed", 1, "simulated seconds per real second")
	interval := flag.Int("interval", 1000, "ms between sentences")
	flag.Parse()

	if *virtual != "" {
		vs := util.NewVirtualSerial()
		if err := vs.CreatePair(*dev, *virtual); err != nil {
			log.Fatalf("virtual serial: %v", err)
		}
		defer vs.Cleanup()
		log.Printf("point the tracker's gps.device at %s", *virtual)
	}

	flight := device.NewFlightProfile(*lat, *lon)
	flight.AscentRate = *ascent
	flight.BurstAlt = *burst
	flight.Speed = *speed

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	gps := device.NewGpsDevice("sim", *dev, *baud)
	if err := gps.StartSimulation(stop, flight, time.Duration(*interval)*time.Millisecond); err != nil {
		log.Printf("simulation: %v", err)
	}
}
