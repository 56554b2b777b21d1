// Package main is the flight controller of the balloon payload.
// It loads the configuration, opens the hardware, runs both polling units and
// waits for a signal to shut down.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"HabTracker/internal/core"
	"HabTracker/internal/util"
)

func main() {
	util.SetupLogger()

	cfgPath := flag.String("c", "configs/config.yml", "path to configuration file")
	flag.Parse()

	log.Printf("[Main] Using config: %s", *cfgPath)

	sys, err := core.NewSystem(*cfgPath)
	if err != nil {
		log.Fatalf("failed to create system: %v", err)
	}
	if path := sys.Config.Mission.LogFile; path != "" {
		f, err := util.MirrorLogToFile(path)
		if err != nil {
			log.Printf("[Main] log file disabled: %v", err)
		} else {
			defer f.Close()
		}
	}

	if err := sys.StartAll(); err != nil {
		log.Fatalf("failed to start system: %v", err)
	}
	util.Info("tracker %s running, run id %s", sys.Config.Mission.Callsign, sys.RunID)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("[Main] Shutting down system...")
	sys.StopAll()
	log.Println("[Main] System stopped cleanly.")
}
