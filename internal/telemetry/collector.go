// Package telemetry exposes the orchestrator's counters to Prometheus as a
// pull-based prometheus.Collector (spec §9 carries ambient observability
// regardless of any feature Non-goals). Grounded on the
// promauto.With(registry).New*Vec construction style used throughout
// dittofs's pkg/metrics/prometheus package (e.g. cache.go's cacheMetrics),
// adapted from "eagerly registered, hand-incremented vectors" to "a single
// Collector that snapshots the orchestrator's existing atomic counters on
// each scrape" since those counters already exist in root package Metrics
// and must not be duplicated or raced.
//
// Collector takes a SnapshotFunc rather than depending on the root
// orchestrator package directly, so this package has no import edge back
// to the package that constructs it — prometheus.go in the root package
// supplies the closure when wiring a Collector into its own Metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is the subset of root package MetricsSnapshot this package needs
// to render Prometheus series. It is a plain value, not an import of the
// root type, to keep this package free of a cycle back to it.
type Snapshot struct {
	TicksTotal        uint64
	CommandsDispatched uint64
	CommandsCompleted  uint64
	CommandsFailed     uint64
	CommandsTimedOut   uint64
	CommandsCancelled  uint64
	WKCStrikes         uint64
	FatalErrors        uint64
	Recoveries         uint64
	Reinitializations  uint64
	FaultCounts        map[string]uint64
	LastCycle          time.Duration
	MinCycle           time.Duration
	MaxCycle           time.Duration
	UptimeNs           uint64
}

// SnapshotFunc produces the current Snapshot; supplied by the caller that
// owns the live Metrics (root package orchestrator.Metrics.Snapshot,
// mapped into this package's Snapshot shape).
type SnapshotFunc func() Snapshot

// Collector is a prometheus.Collector that renders a Snapshot on each
// scrape. It holds no counters of its own — Describe/Collect are the only
// prometheus-facing surface, everything else lives in root Metrics.
type Collector struct {
	snapshot SnapshotFunc

	ticksTotal         *prometheus.Desc
	commandsDispatched *prometheus.Desc
	commandsCompleted  *prometheus.Desc
	commandsFailed     *prometheus.Desc
	commandsTimedOut   *prometheus.Desc
	commandsCancelled  *prometheus.Desc
	wkcStrikes         *prometheus.Desc
	fatalErrors        *prometheus.Desc
	recoveries         *prometheus.Desc
	reinitializations  *prometheus.Desc
	faultCount         *prometheus.Desc
	lastCycleSeconds   *prometheus.Desc
	minCycleSeconds    *prometheus.Desc
	maxCycleSeconds    *prometheus.Desc
	uptimeSeconds      *prometheus.Desc
}

const namespace = "driveorch"

// NewCollector builds a Collector that calls fn on each Collect.
func NewCollector(fn SnapshotFunc) *Collector {
	return &Collector{
		snapshot: fn,
		ticksTotal: prometheus.NewDesc(
			namespace+"_ticks_total", "Total I/O loop ticks executed.", nil, nil),
		commandsDispatched: prometheus.NewDesc(
			namespace+"_commands_dispatched_total", "Total commands submitted to the I/O loop's ingest queue.", nil, nil),
		commandsCompleted: prometheus.NewDesc(
			namespace+"_commands_completed_total", "Total commands that reached their completion criterion.", nil, nil),
		commandsFailed: prometheus.NewDesc(
			namespace+"_commands_failed_total", "Total commands failed without timing out: rejected at ingest, failed by the AL-status gate, or ended by a session event.", nil, nil),
		commandsTimedOut: prometheus.NewDesc(
			namespace+"_commands_timed_out_total", "Total commands that timed out.", nil, nil),
		commandsCancelled: prometheus.NewDesc(
			namespace+"_commands_cancelled_total", "Total commands dropped by caller cancellation.", nil, nil),
		wkcStrikes: prometheus.NewDesc(
			namespace+"_wkc_strikes_total", "Total working-counter strikes observed.", nil, nil),
		fatalErrors: prometheus.NewDesc(
			namespace+"_fatal_errors_total", "Total fatal adapter exchange errors observed.", nil, nil),
		recoveries: prometheus.NewDesc(
			namespace+"_recoveries_total", "Total successful in-place bus recoveries.", nil, nil),
		reinitializations: prometheus.NewDesc(
			namespace+"_reinitializations_total", "Total full adapter re-initializations.", nil, nil),
		faultCount: prometheus.NewDesc(
			namespace+"_faults_total", "Total faults raised by decoded code.", []string{"code"}, nil),
		lastCycleSeconds: prometheus.NewDesc(
			namespace+"_cycle_last_seconds", "Most recent tick's cycle time in seconds.", nil, nil),
		minCycleSeconds: prometheus.NewDesc(
			namespace+"_cycle_min_seconds", "Minimum observed cycle time in seconds.", nil, nil),
		maxCycleSeconds: prometheus.NewDesc(
			namespace+"_cycle_max_seconds", "Maximum observed cycle time in seconds.", nil, nil),
		uptimeSeconds: prometheus.NewDesc(
			namespace+"_uptime_seconds", "Time since the loop started, in seconds.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ticksTotal
	ch <- c.commandsDispatched
	ch <- c.commandsCompleted
	ch <- c.commandsFailed
	ch <- c.commandsTimedOut
	ch <- c.commandsCancelled
	ch <- c.wkcStrikes
	ch <- c.fatalErrors
	ch <- c.recoveries
	ch <- c.reinitializations
	ch <- c.faultCount
	ch <- c.lastCycleSeconds
	ch <- c.minCycleSeconds
	ch <- c.maxCycleSeconds
	ch <- c.uptimeSeconds
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()

	ch <- prometheus.MustNewConstMetric(c.ticksTotal, prometheus.CounterValue, float64(s.TicksTotal))
	ch <- prometheus.MustNewConstMetric(c.commandsDispatched, prometheus.CounterValue, float64(s.CommandsDispatched))
	ch <- prometheus.MustNewConstMetric(c.commandsCompleted, prometheus.CounterValue, float64(s.CommandsCompleted))
	ch <- prometheus.MustNewConstMetric(c.commandsFailed, prometheus.CounterValue, float64(s.CommandsFailed))
	ch <- prometheus.MustNewConstMetric(c.commandsTimedOut, prometheus.CounterValue, float64(s.CommandsTimedOut))
	ch <- prometheus.MustNewConstMetric(c.commandsCancelled, prometheus.CounterValue, float64(s.CommandsCancelled))
	ch <- prometheus.MustNewConstMetric(c.wkcStrikes, prometheus.CounterValue, float64(s.WKCStrikes))
	ch <- prometheus.MustNewConstMetric(c.fatalErrors, prometheus.CounterValue, float64(s.FatalErrors))
	ch <- prometheus.MustNewConstMetric(c.recoveries, prometheus.CounterValue, float64(s.Recoveries))
	ch <- prometheus.MustNewConstMetric(c.reinitializations, prometheus.CounterValue, float64(s.Reinitializations))

	for code, count := range s.FaultCounts {
		ch <- prometheus.MustNewConstMetric(c.faultCount, prometheus.CounterValue, float64(count), code)
	}

	ch <- prometheus.MustNewConstMetric(c.lastCycleSeconds, prometheus.GaugeValue, s.LastCycle.Seconds())
	ch <- prometheus.MustNewConstMetric(c.minCycleSeconds, prometheus.GaugeValue, s.MinCycle.Seconds())
	ch <- prometheus.MustNewConstMetric(c.maxCycleSeconds, prometheus.GaugeValue, s.MaxCycle.Seconds())
	ch <- prometheus.MustNewConstMetric(c.uptimeSeconds, prometheus.GaugeValue, time.Duration(s.UptimeNs).Seconds())
}

var _ prometheus.Collector = (*Collector)(nil)
