// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"grimm.is/linkguard/internal/audit"
	"grimm.is/linkguard/internal/clock"
	"grimm.is/linkguard/internal/config"
	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/kernel"
	"grimm.is/linkguard/internal/logging"
	"grimm.is/linkguard/internal/metrics"
	"grimm.is/linkguard/internal/mitigation"
	"grimm.is/linkguard/internal/monitor"
	"grimm.is/linkguard/internal/notification"
)

// shutdownTimeout bounds the HTTP server drain on exit.
const shutdownTimeout = 5 * time.Second

// RunOptions carries command-line values. Zero values leave the config
// file (or its defaults) in place.
type RunOptions struct {
	ConfigPath    string
	Interface     string
	OutputDir     string
	CapacityMbps  float64
	Interval      string
	Threshold     float64
	Breaches      int
	Action        string
	Source        string
	MetricsListen string
	LogLevel      string
	LogJSON       bool

	// Counters overrides the configured counter source. Tests use it to
	// inject a simulated kernel.
	Counters kernel.CounterSource
	// LogOutput defaults to stderr.
	LogOutput io.Writer
}

// LoadConfig reads the config file, if any, layers the command-line
// overrides on top and validates the result.
func LoadConfig(opts RunOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := config.LoadFile(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyOverrides(cfg, opts)

	if err := cfg.Validate().Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, opts RunOptions) {
	if opts.Interface != "" {
		cfg.Interface = opts.Interface
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if opts.CapacityMbps != 0 {
		cfg.CapacityBPS = opts.CapacityMbps * 1_000_000
	}
	if opts.Interval != "" {
		cfg.Interval = opts.Interval
	}
	if opts.Threshold != 0 {
		cfg.TriggerThreshold = opts.Threshold
	}
	if opts.Breaches != 0 {
		cfg.RequiredBreaches = opts.Breaches
	}
	if opts.Action != "" {
		cfg.Mitigation.Action = strings.ToLower(opts.Action)
	}
	if opts.Source != "" {
		cfg.CounterSource = opts.Source
	}
	if opts.MetricsListen != "" {
		cfg.MetricsListen = opts.MetricsListen
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogJSON {
		cfg.LogJSON = true
	}
}

// newLogger builds the process logger from the validated config.
func newLogger(cfg *config.Config, out io.Writer) *logging.Logger {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.LogLevel)
	lc.JSON = cfg.LogJSON
	if out != nil {
		lc.Output = out
	}
	if cfg.Syslog != nil {
		lc.Syslog = *cfg.Syslog
	}
	return logging.New(lc)
}

// RunMonitor monitors one interface until ctx is cancelled or a fatal
// error occurs. Cancellation is a clean exit and returns nil.
func RunMonitor(ctx context.Context, opts RunOptions) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, opts.LogOutput)
	logging.SetDefault(logger)

	if err := checkPrivileges(cfg.Mitigation.Action); err != nil {
		return err
	}
	if err := setProcessName("linkguard"); err != nil {
		logger.Debug("Failed to set process name", "error", err)
	}

	bands, err := cfg.BandSet()
	if err != nil {
		return err
	}

	source := opts.Counters
	if source == nil {
		source, err = kernel.NewSource(cfg.CounterSource)
		if err != nil {
			return err
		}
	}

	action, err := mitigation.FromConfig(cfg, logger.WithComponent("mitigation"))
	if err != nil {
		return err
	}

	samples, err := metrics.OpenSampleLog(filepath.Join(cfg.OutputDir, metrics.SampleLogName))
	if err != nil {
		return err
	}
	defer samples.Close()

	events, err := audit.OpenEventLog(filepath.Join(cfg.OutputDir, audit.EventLogName))
	if err != nil {
		return err
	}
	defer events.Close()

	var observers []audit.Recorder
	var notifier *notification.Dispatcher
	if cfg.Notify != nil {
		notifier = notification.NewDispatcher(notifyOptions(cfg), logger.WithComponent("notification"))
		defer notifier.Wait()
		observers = append(observers, notifier)
	}
	recorder := audit.NewFanout(events, logger.WithComponent("audit"), observers...)

	registry := metrics.NewRegistry(cfg.Interface)

	dispatcher := mitigation.NewDispatcher(recorder, clock.Real{}, logger.WithComponent("mitigation"))
	dispatcher.OnComplete(func(r mitigation.Result) {
		registry.MitigationFinished(r.Action, r.Err)
	})
	// Runs before the logs are closed so the outcome event is not lost.
	defer dispatcher.Wait()

	svc := monitor.NewService(monitor.Options{
		Interface:        cfg.Interface,
		CapacityBPS:      cfg.CapacityBPS,
		Interval:         cfg.IntervalDuration(),
		TriggerThreshold: cfg.TriggerThreshold,
		RequiredBreaches: cfg.RequiredBreaches,
		Bands:            bands,
		Action:           action,
	}, monitor.Deps{
		Source:     source,
		Samples:    samples,
		Events:     recorder,
		Dispatcher: dispatcher,
		Metrics:    registry,
		Logger:     logger.WithComponent("monitor"),
	})

	if cfg.MetricsListen != "" {
		srv := metrics.NewServer(cfg.MetricsListen, registry, func() any { return svc.Status() }, logger.WithComponent("http"))
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Warn("HTTP server shutdown failed", "error", err)
			}
		}()
	}

	logger.Info("Starting linkguard",
		"output_dir", cfg.OutputDir,
		"counter_source", cfg.CounterSource,
		"metrics_listen", cfg.MetricsListen,
		"notify", cfg.Notify != nil,
	)

	if err := svc.Run(ctx); err != nil {
		return err
	}
	if dispatcher.Dispatched() {
		logger.Info("Waiting for mitigation to finish")
	}
	return nil
}

func notifyOptions(cfg *config.Config) notification.Options {
	bands, _ := cfg.BandSet()
	minBand := 1
	if cfg.Notify.MinBand != "" {
		if b, ok := bands.Lookup(cfg.Notify.MinBand); ok {
			minBand = b.Index
		}
	}
	return notification.Options{
		URL:          cfg.Notify.URL,
		Format:       cfg.Notify.Format,
		MinBandIndex: minBand,
		TopBandIndex: len(bands.Bands()) - 1,
		Interface:    cfg.Interface,
		Timeout:      cfg.Notify.NotifyTimeout(),
	}
}

// Diagnostic renders err for the terminal, including any attributes.
func Diagnostic(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "linkguard: %v", err)
	if attrs := errors.GetAttributes(err); len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %v", k, attrs[k])
		}
	}
	return b.String()
}
