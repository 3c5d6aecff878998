// Package controller owns the run state of the board CPU and the stepping
// loop that drives it.
package controller

import (
	"context"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ezrec/bitboard/cpu"
)

// RunState gates how many steps happen in a quantum.
type RunState int

//go:generate go tool stringer -linecomment -type=RunState
const (
	STATE_RUNNING   = RunState(0) // running
	STATE_STOPPED   = RunState(1) // stopped
	STATE_STEP_ONCE = RunState(2) // step
)

const (
	STEPS_PER_YIELD = 256                  // Default quanta between scheduler yields.
	IDLE_DELAY      = 2 * time.Millisecond // Default sleep while stopped.
)

// Step describes a completed CPU step.
type Step struct {
	Count     uint64
	State     RunState
	Registers cpu.Registers
}

// Observer receives every completed step, on the stepping loop.
type Observer func(step Step)

// Controller is the execution controller. Commands (Start, Stop, Step,
// Reset) may come from any goroutine; Quantum and Run belong to the stepping
// loop alone.
type Controller struct {
	Verbose       bool          // If set, logs state changes.
	StepsPerYield int           // Quanta between yields of the stepping loop.
	Idle          time.Duration // Sleep between quanta while stopped.
	StepDelay     time.Duration // Optional pause after every step.

	core cpu.Core

	mutex    sync.Mutex
	state    RunState
	fault    error
	observer Observer

	count        atomic.Uint64
	resetPending atomic.Bool
}

// NewController creates a controller for core in the given initial state.
func NewController(core cpu.Core, initial RunState) (ctl *Controller) {
	ctl = &Controller{
		StepsPerYield: STEPS_PER_YIELD,
		Idle:          IDLE_DELAY,
		core:          core,
		state:         initial,
	}
	return
}

func (ctl *Controller) setState(state RunState) {
	ctl.mutex.Lock()
	ctl.state = state
	ctl.mutex.Unlock()

	if ctl.Verbose {
		log.Printf("controller: %v", state)
	}
}

// Start lets the CPU run freely.
func (ctl *Controller) Start() {
	ctl.setState(STATE_RUNNING)
}

// Stop halts the CPU before its next step.
func (ctl *Controller) Stop() {
	ctl.setState(STATE_STOPPED)
}

// Step arranges for exactly one more step, then stops.
func (ctl *Controller) Step() {
	ctl.setState(STATE_STEP_ONCE)
}

// State returns the current run state.
func (ctl *Controller) State() RunState {
	ctl.mutex.Lock()
	defer ctl.mutex.Unlock()

	return ctl.state
}

// Count returns the number of completed steps. A reset does not clear it.
func (ctl *Controller) Count() uint64 {
	return ctl.count.Load()
}

// Fault returns the pending fault, if any, and clears it.
func (ctl *Controller) Fault() (err error) {
	ctl.mutex.Lock()
	defer ctl.mutex.Unlock()

	err = ctl.fault
	ctl.fault = nil
	return
}

// Observe installs the step observer.
func (ctl *Controller) Observe(observer Observer) {
	ctl.mutex.Lock()
	defer ctl.mutex.Unlock()

	ctl.observer = observer
}

// Reset requests a CPU reset. It is carried out by the stepping loop at its
// next quantum, whatever the run state; the run state and step count are
// kept.
func (ctl *Controller) Reset() {
	ctl.resetPending.Store(true)
}

// Quantum performs zero or one CPU step according to the run state.
// A step error stops the controller and becomes the pending fault.
func (ctl *Controller) Quantum() (stepped bool, err error) {
	if ctl.resetPending.Swap(false) {
		err = ctl.core.Reset()
		if err != nil {
			ctl.halt(err)
			return
		}
		if ctl.Verbose {
			log.Printf("controller: reset")
		}
	}

	ctl.mutex.Lock()
	state := ctl.state
	ctl.mutex.Unlock()

	if state == STATE_STOPPED {
		return
	}

	err = ctl.core.Step()
	if err != nil {
		ctl.halt(err)
		return
	}

	count := ctl.count.Add(1)
	stepped = true

	ctl.mutex.Lock()
	if state == STATE_STEP_ONCE && ctl.state == STATE_STEP_ONCE {
		ctl.state = STATE_STOPPED
	}
	state = ctl.state
	observer := ctl.observer
	ctl.mutex.Unlock()

	if observer != nil {
		observer(Step{Count: count, State: state, Registers: ctl.core.Registers()})
	}

	return
}

func (ctl *Controller) halt(err error) {
	log.Printf("controller: %v", err)

	ctl.mutex.Lock()
	ctl.state = STATE_STOPPED
	ctl.fault = err
	ctl.mutex.Unlock()
}

// Run is the stepping loop. It yields after every StepsPerYield quanta and
// sleeps while stopped, until ctx is done.
func (ctl *Controller) Run(ctx context.Context) (err error) {
	per := ctl.StepsPerYield
	if per <= 0 {
		per = STEPS_PER_YIELD
	}

	for {
		stepped := true
		for n := 0; n < per && stepped; n++ {
			if err = ctx.Err(); err != nil {
				return
			}
			stepped, _ = ctl.Quantum()
			if stepped && ctl.StepDelay > 0 {
				if !sleep(ctx, ctl.StepDelay) {
					err = ctx.Err()
					return
				}
			}
		}

		if stepped {
			runtime.Gosched()
			continue
		}

		if !sleep(ctx, ctl.Idle) {
			err = ctx.Err()
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
