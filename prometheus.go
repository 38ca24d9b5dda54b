package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ecat-drives/orchestrator/internal/telemetry"
)

// toTelemetrySnapshot maps a MetricsSnapshot into internal/telemetry's
// Snapshot shape, the narrow view that package needs to render Prometheus
// series without importing the root package back (see internal/telemetry's
// package doc).
func (s MetricsSnapshot) toTelemetrySnapshot() telemetry.Snapshot {
	faults := make(map[string]uint64, len(s.FaultCounts))
	for code, count := range s.FaultCounts {
		faults[string(code)] = count
	}
	return telemetry.Snapshot{
		TicksTotal:         s.TicksTotal,
		CommandsDispatched: s.CommandsDispatched,
		CommandsCompleted:  s.CommandsCompleted,
		CommandsFailed:     s.CommandsFailed,
		CommandsTimedOut:   s.CommandsTimedOut,
		CommandsCancelled:  s.CommandsCancelled,
		WKCStrikes:         s.WKCStrikes,
		FatalErrors:        s.FatalErrors,
		Recoveries:         s.Recoveries,
		Reinitializations:  s.Reinitializations,
		FaultCounts:        faults,
		LastCycle:          s.LastCycle,
		MinCycle:           s.MinCycle,
		MaxCycle:           s.MaxCycle,
		UptimeNs:           s.UptimeNs,
	}
}

// PrometheusCollector returns a prometheus.Collector that renders this
// Orchestrator's live Metrics on each scrape (spec §9: Prometheus counters
// are live, scraped gauges/counters, not a telemetry store, so this does not
// conflict with the Non-goal against storing telemetry beyond the most
// recent snapshot). Callers register it with their own prometheus.Registerer;
// the orchestrator never registers itself with the default registry.
func (o *Orchestrator) PrometheusCollector() prometheus.Collector {
	return telemetry.NewCollector(func() telemetry.Snapshot {
		return o.metrics.Snapshot().toTelemetrySnapshot()
	})
}
