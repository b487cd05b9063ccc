// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package mitigation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"grimm.is/linkguard/internal/audit"
	"grimm.is/linkguard/internal/clock"
	"grimm.is/linkguard/internal/logging"
)

// Result describes a finished action.
type Result struct {
	Action   string
	Err      error
	Started  time.Time
	Finished time.Time
}

// Dispatcher fires one action per process lifetime.
type Dispatcher struct {
	dispatched atomic.Bool
	wg         sync.WaitGroup

	recorder audit.Recorder
	clock    clock.Clock
	logger   *logging.Logger

	mu         sync.Mutex
	result     *Result
	onComplete func(Result)
}

// NewDispatcher creates a dispatcher that records lifecycle events to
// recorder.
func NewDispatcher(recorder audit.Recorder, clk clock.Clock, logger *logging.Logger) *Dispatcher {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = logging.WithComponent("mitigation")
	}
	return &Dispatcher{recorder: recorder, clock: clk, logger: logger}
}

// OnComplete registers fn to run on the action goroutine after the outcome
// has been recorded. Call before the first MaybeDispatch.
func (d *Dispatcher) OnComplete(fn func(Result)) {
	d.mu.Lock()
	d.onComplete = fn
	d.mu.Unlock()
}

// MaybeDispatch starts action when breachCount has reached requiredCount and
// nothing has been dispatched yet. It returns true only for the call that
// dispatched. The flag is set before the action starts and never cleared.
//
// The returned error is a failure to record the dispatched event; the action
// has been started regardless.
func (d *Dispatcher) MaybeDispatch(ctx context.Context, breachCount, requiredCount int, action Action) (bool, error) {
	if breachCount < requiredCount {
		return false, nil
	}
	if !d.dispatched.CompareAndSwap(false, true) {
		return false, nil
	}

	started := d.clock.Now()
	d.logger.Warn("Dispatching mitigation", "action", action.Name(), "breaches", breachCount)
	recErr := d.recorder.Record(audit.MitigationEvent(started, audit.EventMitigationDispatched, action.Name()))

	// The action outlives loop cancellation: once started it runs to
	// completion or failure.
	actx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go d.run(actx, action, started)

	return true, recErr
}

func (d *Dispatcher) run(ctx context.Context, action Action, started time.Time) {
	defer d.wg.Done()

	err := action.Execute(ctx)
	finished := d.clock.Now()
	res := Result{Action: action.Name(), Err: err, Started: started, Finished: finished}

	var ev audit.Event
	if err != nil {
		d.logger.Error("Mitigation failed", "action", res.Action, "error", err)
		ev = audit.MitigationEvent(finished, audit.EventMitigationFailed, fmt.Sprintf("%s: %v", res.Action, err))
	} else {
		d.logger.Info("Mitigation succeeded", "action", res.Action, "duration", finished.Sub(started))
		ev = audit.MitigationEvent(finished, audit.EventMitigationSucceeded, res.Action)
	}
	if recErr := d.recorder.Record(ev); recErr != nil {
		d.logger.Error("Failed to record mitigation outcome", "event", ev.Name, "error", recErr)
	}

	d.mu.Lock()
	d.result = &res
	cb := d.onComplete
	d.mu.Unlock()
	if cb != nil {
		cb(res)
	}
}

// Dispatched reports whether an action has been started.
func (d *Dispatcher) Dispatched() bool {
	return d.dispatched.Load()
}

// Result returns the outcome once the action has finished.
func (d *Dispatcher) Result() (Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.result == nil {
		return Result{}, false
	}
	return *d.result, true
}

// Wait blocks until an in-flight action finishes.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
