package core

import (
	"log"
	"time"

	"HabTracker/internal/device"
	"HabTracker/internal/model"
	"HabTracker/internal/repeater"
)

// Needs declares which locks a task runs under.
type Needs int

const (
	NeedNone Needs = iota
	NeedState
	NeedADC
	NeedStateADC
)

// Task is one gated job of a unit. The gate and any state captured by Run are
// owned by the task. Run receives nil for resources it did not declare.
type Task struct {
	Name  string
	Gate  *repeater.Repeater
	Needs Needs
	Run   func(st *model.FlightState, adc device.ADC) error

	runs int
}

// Runs returns how many times the task has run. Read it only after the unit stopped.
func (t *Task) Runs() int { return t.runs }

// Unit is one polling loop. Tasks run to completion in registration order.
type Unit struct {
	Name     string
	Shared   *Shared
	Tasks    []*Task
	PollTick time.Duration
	// Watchdog is petted at the top of every iteration when set.
	Watchdog device.Watchdog

	iterations int
}

// NewUnit creates a unit over shared.
func NewUnit(name string, shared *Shared, tick time.Duration, wd device.Watchdog, tasks ...*Task) *Unit {
	return &Unit{Name: name, Shared: shared, Tasks: tasks, PollTick: tick, Watchdog: wd}
}

// Step runs one iteration: pet the watchdog, then every task whose gate is due.
func (u *Unit) Step() {
	if u.Watchdog != nil {
		if err := u.Watchdog.Pet(); err != nil {
			log.Printf("[%s] watchdog pet failed: %v", u.Name, err)
		}
	}
	for _, t := range u.Tasks {
		if t.Gate.CanFire() {
			u.run(t)
		}
	}
	u.iterations++
}

// Run loops until stop is closed. A task in progress is never interrupted; stop is
// only seen between iterations.
func (u *Unit) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(u.PollTick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		default:
		}
		u.Step()
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Iterations returns how many loop iterations have completed. Read it only after
// the unit stopped.
func (u *Unit) Iterations() int { return u.iterations }

func (u *Unit) run(t *Task) {
	var err error
	switch t.Needs {
	case NeedState:
		u.Shared.Update(func(st *model.FlightState) { err = t.Run(st, nil) })
	case NeedADC:
		u.Shared.WithADC(func(adc device.ADC) { err = t.Run(nil, adc) })
	case NeedStateADC:
		u.Shared.UpdateWithADC(func(st *model.FlightState, adc device.ADC) { err = t.Run(st, adc) })
	default:
		err = t.Run(nil, nil)
	}
	t.runs++
	if err != nil {
		log.Printf("[%s] %s: %v", u.Name, t.Name, err)
	}
}
