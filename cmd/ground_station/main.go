// Ground station program:
// - Reads telemetry sentences from a LoRa UART module
// - Stores every decoded sentence in the flight log under one run per session
// - Serves the latest state and the stored runs on the monitor (HTTP + websocket)
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"HabTracker/internal/config"
	"HabTracker/internal/device"
	"HabTracker/internal/flightlog"
	"HabTracker/internal/lora"
	"HabTracker/internal/model"
	"HabTracker/internal/monitor"
	"HabTracker/internal/util"
)

func main() {
	util.SetupLogger()

	cfgPath := flag.String("c", "configs/config.yml", "path to configuration file")
	loraDev := flag.String("lora", "", "LoRa serial device (default: radio.device)")
	dbPath := flag.String("db", "ground.db", "flight log database")
	addr := flag.String("addr", "", "monitor listen address (default: monitor.addr)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	dev := cfg.Radio.Device
	if *loraDev != "" {
		dev = *loraDev
	}
	listen := cfg.Monitor.Addr
	if *addr != "" {
		listen = *addr
	}

	radio, err := lora.New(dev, cfg.Radio.Baud, cfg.Radio.WireFormat)
	if err != nil {
		log.Fatalf("open lora: %v", err)
	}
	defer func() {
		if cerr := radio.Close(); cerr != nil {
			log.Printf("warning: close lora err: %v", cerr)
		}
	}()

	store, err := flightlog.Open(*dbPath)
	if err != nil {
		log.Fatalf("open flight log: %v", err)
	}
	defer store.Close()
	runID := uuid.NewString()
	if err := store.StartRun(flightlog.Run{ID: runID, Callsign: cfg.Mission.Callsign, Started: time.Now().UTC()}); err != nil {
		log.Fatalf("start run: %v", err)
	}

	var mon *monitor.Server
	if listen != "" {
		mon = monitor.New(listen, cfg.Monitor.MaxRateHz)
		mon.History = store
		if err := mon.Start(); err != nil {
			log.Fatalf("start monitor: %v", err)
		}
		defer mon.Stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	received := make(chan model.Telemetry, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for t := range received {
			if err := store.Append(runID, time.Now(), t); err != nil {
				log.Printf("[ground] store: %v", err)
			}
			if mon != nil {
				mon.Publish(t)
			}
		}
	}()

	log.Printf("[ground] listening for %s on %s, run %s", cfg.Mission.Callsign, dev, runID)
	var last uint32
	for ctx.Err() == nil {
		t, err := radio.Receive(500 * time.Millisecond)
		switch {
		case errors.Is(err, device.ErrReadTimeout), errors.Is(err, lora.ErrEmptyLine):
			continue
		case err != nil:
			log.Printf("[ground] %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if t.Callsign != cfg.Mission.Callsign {
			log.Printf("[ground] ignoring sentence from %s", t.Callsign)
			continue
		}
		if last != 0 && t.Counter > last+1 {
			log.Printf("[ground] lost %d sentences before #%d", t.Counter-last-1, t.Counter)
		}
		last = t.Counter
		log.Printf("[ground] #%d %s %.5f,%.5f %dm %s cut=%v", t.Counter, t.Time, t.Lat, t.Lon, t.Alt, t.Mode, t.CutDown)
		received <- t
	}

	log.Println("[ground] shutting down")
	close(received)
	wg.Wait()
}
