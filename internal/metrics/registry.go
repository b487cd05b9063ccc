// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Mitigation outcome label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Registry holds linkguard's Prometheus collectors on a private registry.
type Registry struct {
	reg *prometheus.Registry

	IntervalBytes   *prometheus.GaugeVec
	IntervalPackets *prometheus.GaugeVec
	Utilization     *prometheus.GaugeVec
	Band            prometheus.Gauge
	BreachCount     prometheus.Gauge
	Dispatched      prometheus.Gauge
	MitigationRuns  *prometheus.CounterVec
	SkippedTicks    prometheus.Counter
	CounterResets   prometheus.Counter
	Ticks           prometheus.Counter
}

// NewRegistry creates and registers all collectors for iface.
func NewRegistry(iface string) *Registry {
	constLabels := prometheus.Labels{"interface": iface}

	r := &Registry{
		reg: prometheus.NewRegistry(),
		IntervalBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "linkguard_interval_bytes",
			Help:        "Bytes transferred during the last sampling interval",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		IntervalPackets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "linkguard_interval_packets",
			Help:        "Packets transferred during the last sampling interval",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		Utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "linkguard_utilization_percent",
			Help:        "Link utilization relative to configured capacity",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		Band: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "linkguard_band",
			Help:        "Index of the current utilization band (0 is the base band)",
			ConstLabels: constLabels,
		}),
		BreachCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "linkguard_breach_count",
			Help:        "Consecutive samples at or above the trigger threshold",
			ConstLabels: constLabels,
		}),
		Dispatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "linkguard_mitigation_dispatched",
			Help:        "1 once the mitigation action has been dispatched",
			ConstLabels: constLabels,
		}),
		MitigationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "linkguard_mitigation_runs_total",
			Help:        "Completed mitigation actions by outcome",
			ConstLabels: constLabels,
		}, []string{"action", "outcome"}),
		SkippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "linkguard_skipped_ticks_total",
			Help:        "Ticks where the interface was absent from the snapshot",
			ConstLabels: constLabels,
		}),
		CounterResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "linkguard_counter_resets_total",
			Help:        "Samples where an interface counter went backwards",
			ConstLabels: constLabels,
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "linkguard_ticks_total",
			Help:        "Completed sampling ticks",
			ConstLabels: constLabels,
		}),
	}

	r.reg.MustRegister(
		r.IntervalBytes,
		r.IntervalPackets,
		r.Utilization,
		r.Band,
		r.BreachCount,
		r.Dispatched,
		r.MitigationRuns,
		r.SkippedTicks,
		r.CounterResets,
		r.Ticks,
	)
	return r
}

// Gatherer exposes the underlying registry for HTTP export.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveSample records one completed tick.
func (r *Registry) ObserveSample(s Sample, txPct, rxPct float64) {
	r.IntervalBytes.WithLabelValues("tx").Set(float64(s.TxBytes))
	r.IntervalBytes.WithLabelValues("rx").Set(float64(s.RxBytes))
	r.IntervalPackets.WithLabelValues("tx").Set(float64(s.TxPackets))
	r.IntervalPackets.WithLabelValues("rx").Set(float64(s.RxPackets))
	r.Utilization.WithLabelValues("tx").Set(txPct)
	r.Utilization.WithLabelValues("rx").Set(rxPct)
	if s.Reset {
		r.CounterResets.Inc()
	}
	r.Ticks.Inc()
}

// MitigationFinished counts a completed mitigation action.
func (r *Registry) MitigationFinished(action string, err error) {
	outcome := OutcomeSucceeded
	if err != nil {
		outcome = OutcomeFailed
	}
	r.MitigationRuns.WithLabelValues(action, outcome).Inc()
}
