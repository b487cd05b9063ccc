// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package monitor runs the sampling loop for one interface.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"grimm.is/linkguard/internal/audit"
	"grimm.is/linkguard/internal/clock"
	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/kernel"
	"grimm.is/linkguard/internal/logging"
	"grimm.is/linkguard/internal/metrics"
	"grimm.is/linkguard/internal/mitigation"
	"grimm.is/linkguard/internal/sentinel"
)

// Loop states.
const (
	StateInitializing = "initializing"
	StateRunning      = "running"
	StateStopped      = "stopped"
)

// Options holds the loop's tunables.
type Options struct {
	Interface        string
	CapacityBPS      float64
	Interval         time.Duration
	TriggerThreshold float64
	RequiredBreaches int
	Bands            sentinel.BandSet
	Action           mitigation.Action
}

// Deps bundles the loop's collaborators. Metrics and Clock are optional.
type Deps struct {
	Source     kernel.CounterSource
	Samples    *metrics.SampleLog
	Events     audit.Recorder
	Dispatcher *mitigation.Dispatcher
	Metrics    *metrics.Registry
	Clock      clock.Clock
	Logger     *logging.Logger
}

// Status is a point-in-time view of the loop for readers on other
// goroutines.
type Status struct {
	Interface        string    `json:"interface"`
	State            string    `json:"state"`
	UpdatedAt        time.Time `json:"updated_at"`
	TxBytes          uint64    `json:"tx_bytes"`
	TxPackets        uint64    `json:"tx_packets"`
	RxBytes          uint64    `json:"rx_bytes"`
	RxPackets        uint64    `json:"rx_packets"`
	TxUtilization    float64   `json:"tx_utilization_percent"`
	RxUtilization    float64   `json:"rx_utilization_percent"`
	Band             string    `json:"band"`
	BandIndex        int       `json:"band_index"`
	BreachCount      int       `json:"breach_count"`
	Dispatched       bool      `json:"mitigation_dispatched"`
	MitigationResult string    `json:"mitigation_result,omitempty"`
	Ticks            uint64    `json:"ticks"`
	SkippedTicks     uint64    `json:"skipped_ticks"`
	CounterResets    uint64    `json:"counter_resets"`
}

// Service samples the interface on a fixed cadence.
type Service struct {
	opts Options
	deps Deps

	classifier *sentinel.Classifier
	breaches   sentinel.BreachTracker
	baseline   kernel.InterfaceCounters
	// missed counts consecutive ticks without the interface; the delta taken
	// on its return spans missed+1 intervals.
	missed int

	statusMu sync.RWMutex
	status   Status
}

// NewService wires a loop. Source, Samples, Events and Dispatcher are
// required.
func NewService(opts Options, deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.WithComponent("monitor")
	}
	if opts.Action == nil {
		opts.Action = mitigation.NoAction{}
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	deps.Logger = deps.Logger.With("interface", opts.Interface)

	s := &Service{
		opts:       opts,
		deps:       deps,
		classifier: sentinel.NewClassifier(opts.Bands),
	}
	base := opts.Bands.Base()
	s.status = Status{
		Interface: opts.Interface,
		State:     StateInitializing,
		Band:      base.Label,
		BandIndex: base.Index,
	}
	return s
}

// Init takes the baseline snapshot. The interface must be present.
func (s *Service) Init(ctx context.Context) error {
	snap, err := s.deps.Source.Snapshot(ctx)
	if err != nil {
		return err
	}
	cur, ok := snap.Find(s.opts.Interface)
	if !ok {
		return errors.Attr(errors.Attr(
			errors.Errorf(errors.KindNotFound, "could not find interface %s", s.opts.Interface),
			"interface", s.opts.Interface),
			"available", snap.Names())
	}
	s.baseline = cur
	s.missed = 0

	s.statusMu.Lock()
	s.status.State = StateRunning
	s.status.UpdatedAt = s.deps.Clock.Now()
	s.statusMu.Unlock()

	s.deps.Logger.Info("Monitoring interface",
		"capacity_bps", s.opts.CapacityBPS,
		"interval", s.opts.Interval,
		"trigger", s.opts.TriggerThreshold,
		"required_breaches", s.opts.RequiredBreaches,
		"action", s.opts.Action.Name())
	return nil
}

// Step runs one tick. A returned error is fatal.
func (s *Service) Step(ctx context.Context) error {
	snap, err := s.deps.Source.Snapshot(ctx)
	if err != nil {
		return err
	}

	cur, ok := snap.Find(s.opts.Interface)
	if !ok {
		s.missed++
		s.deps.Logger.Warn("Interface missing from snapshot, skipping tick", "missed", s.missed)
		if s.deps.Metrics != nil {
			s.deps.Metrics.SkippedTicks.Inc()
		}
		s.statusMu.Lock()
		s.status.SkippedTicks++
		s.status.UpdatedAt = s.deps.Clock.Now()
		s.statusMu.Unlock()
		return nil
	}

	sample := metrics.Compute(s.baseline, cur)
	if sample.Reset {
		s.deps.Logger.Warn("Interface counters went backwards, treating as reset")
	}

	now := s.deps.Clock.Now()
	if err := s.deps.Samples.Append(metrics.RecordFromSample(clock.EpochSeconds(now), sample)); err != nil {
		return err
	}

	window := s.opts.Interval * time.Duration(s.missed+1)
	tx := metrics.Utilization(sample.TxBytes, s.opts.CapacityBPS, window)
	rx := metrics.Utilization(sample.RxBytes, s.opts.CapacityBPS, window)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveSample(sample, tx, rx)
	}

	band, changed := s.classifier.Observe(tx, rx)
	if changed {
		detail := fmt.Sprintf("tx=%.2f%% rx=%.2f%%", tx, rx)
		s.deps.Logger.Info("Utilization band changed", "band", band.Label, "tx_percent", tx, "rx_percent", rx)
		if err := s.deps.Events.Record(audit.BandEvent(now, band.Index, band.Label, detail)); err != nil {
			return err
		}
	}

	count := s.breaches.Observe(tx, rx, s.opts.TriggerThreshold)
	_, dispatchErr := s.deps.Dispatcher.MaybeDispatch(ctx, count, s.opts.RequiredBreaches, s.opts.Action)

	s.baseline = cur
	s.missed = 0

	if m := s.deps.Metrics; m != nil {
		m.Band.Set(float64(band.Index))
		m.BreachCount.Set(float64(count))
		if s.deps.Dispatcher.Dispatched() {
			m.Dispatched.Set(1)
		}
	}
	s.updateStatus(now, sample, tx, rx, band, count)

	return dispatchErr
}

func (s *Service) updateStatus(now time.Time, sample metrics.Sample, tx, rx float64, band sentinel.Band, count int) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	st := &s.status
	st.UpdatedAt = now
	st.TxBytes, st.TxPackets = sample.TxBytes, sample.TxPackets
	st.RxBytes, st.RxPackets = sample.RxBytes, sample.RxPackets
	st.TxUtilization, st.RxUtilization = tx, rx
	st.Band, st.BandIndex = band.Label, band.Index
	st.BreachCount = count
	st.Ticks++
	if sample.Reset {
		st.CounterResets++
	}
}

// Run initializes and then ticks until ctx is cancelled or a fatal error
// occurs. Cancellation is not an error.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Init(ctx); err != nil {
		return err
	}
	defer s.setState(StateStopped)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.deps.Logger.Info("Sampling loop stopped")
			return nil
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				if errors.IsFatal(err) {
					return err
				}
				s.deps.Logger.Warn("Tick failed", "error", err)
			}
		}
	}
}

func (s *Service) setState(state string) {
	s.statusMu.Lock()
	s.status.State = state
	s.statusMu.Unlock()
}

// Status returns a copy of the current status.
func (s *Service) Status() Status {
	s.statusMu.RLock()
	st := s.status
	s.statusMu.RUnlock()

	st.Dispatched = s.deps.Dispatcher.Dispatched()
	if res, ok := s.deps.Dispatcher.Result(); ok {
		st.MitigationResult = audit.EventMitigationSucceeded
		if res.Err != nil {
			st.MitigationResult = audit.EventMitigationFailed
		}
	}
	return st
}
