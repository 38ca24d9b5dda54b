package orchestrator

import (
	"sync/atomic"
	"time"
)

// driveErrorCodes is the fixed, ordered set of every DriveErrorCode except
// DriveErrNone, used to index Metrics.FaultCounts without requiring a map.
var driveErrorCodes = []DriveErrorCode{
	DriveErrFollowError,
	DriveErrPositionFail,
	DriveErrSafetyTimeout,
	DriveErrEmergencyStop,
	DriveErrEncoderError,
	DriveErrThermalProtection,
	DriveErrEndStopHit,
	DriveErrForceZero,
	DriveErrErrorCompensationFault,
	DriveErrUnknownFault,
}

func faultCodeIndex(code DriveErrorCode) int {
	for i, c := range driveErrorCodes {
		if c == code {
			return i
		}
	}
	return -1
}

// Metrics tracks the orchestrator's operational statistics: per-tick cycle
// timing, command outcomes, the WKC ladder's counters, and fault counts per
// drive error code. It is updated exclusively from the I/O loop goroutine
// except where noted, and read from any goroutine via Snapshot.
type Metrics struct {
	TicksTotal atomic.Uint64

	// CommandsDispatched is incremented by the calling goroutine when it
	// submits a command, not by the I/O loop.
	CommandsDispatched atomic.Uint64
	CommandsCompleted  atomic.Uint64
	CommandsFailed     atomic.Uint64
	CommandsTimedOut   atomic.Uint64
	CommandsCancelled  atomic.Uint64

	WKCStrikes        atomic.Uint64
	FatalErrors       atomic.Uint64
	Recoveries        atomic.Uint64
	Reinitializations atomic.Uint64

	// FaultCounts[i] counts occurrences of driveErrorCodes[i] that were
	// actually emitted (i.e. survived the RaiseFault throttle).
	FaultCounts [10]atomic.Uint64

	LastCycleNs atomic.Uint64
	MinCycleNs  atomic.Uint64
	MaxCycleNs  atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordTick folds one tick's cycle duration into the running last/min/max
// statistics reported by Snapshot. The cycle statistics in StatusSnapshot
// are kept separately by the loop.
func (m *Metrics) RecordTick(cycleTime time.Duration) {
	m.TicksTotal.Add(1)
	ns := uint64(cycleTime.Nanoseconds())
	m.LastCycleNs.Store(ns)

	for {
		cur := m.MinCycleNs.Load()
		if cur != 0 && cur <= ns {
			break
		}
		if m.MinCycleNs.CompareAndSwap(cur, ns) {
			break
		}
	}
	for {
		cur := m.MaxCycleNs.Load()
		if cur >= ns {
			break
		}
		if m.MaxCycleNs.CompareAndSwap(cur, ns) {
			break
		}
	}
}

// RecordFault increments the counter for a fault code that was actually
// emitted (post-throttle). Unknown codes and DriveErrNone are ignored.
func (m *Metrics) RecordFault(code DriveErrorCode) {
	if i := faultCodeIndex(code); i >= 0 {
		m.FaultCounts[i].Add(1)
	}
}

// RecordCommandOutcome increments the counter matching a completed command's
// terminal state.
func (m *Metrics) RecordCommandOutcome(outcome CommandOutcome) {
	switch outcome {
	case OutcomeCompleted:
		m.CommandsCompleted.Add(1)
	case OutcomeFailed:
		m.CommandsFailed.Add(1)
	case OutcomeTimedOut:
		m.CommandsTimedOut.Add(1)
	case OutcomeCancelled:
		m.CommandsCancelled.Add(1)
	}
}

// Stop marks the orchestrator as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read without
// further synchronization.
type MetricsSnapshot struct {
	TicksTotal uint64

	CommandsDispatched uint64
	CommandsCompleted  uint64
	CommandsFailed     uint64
	CommandsTimedOut   uint64
	CommandsCancelled  uint64

	WKCStrikes        uint64
	FatalErrors       uint64
	Recoveries        uint64
	Reinitializations uint64

	FaultCounts map[DriveErrorCode]uint64

	LastCycle time.Duration
	MinCycle  time.Duration
	MaxCycle  time.Duration

	UptimeNs uint64
}

// Snapshot creates a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TicksTotal:         m.TicksTotal.Load(),
		CommandsDispatched: m.CommandsDispatched.Load(),
		CommandsCompleted:  m.CommandsCompleted.Load(),
		CommandsFailed:     m.CommandsFailed.Load(),
		CommandsTimedOut:   m.CommandsTimedOut.Load(),
		CommandsCancelled:  m.CommandsCancelled.Load(),
		WKCStrikes:         m.WKCStrikes.Load(),
		FatalErrors:        m.FatalErrors.Load(),
		Recoveries:         m.Recoveries.Load(),
		Reinitializations:  m.Reinitializations.Load(),
		LastCycle:          time.Duration(m.LastCycleNs.Load()),
		MinCycle:           time.Duration(m.MinCycleNs.Load()),
		MaxCycle:           time.Duration(m.MaxCycleNs.Load()),
	}

	snap.FaultCounts = make(map[DriveErrorCode]uint64, len(driveErrorCodes))
	for i, code := range driveErrorCodes {
		if v := m.FaultCounts[i].Load(); v > 0 {
			snap.FaultCounts[code] = v
		}
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	return snap
}

// CommandOutcome is a completed command's terminal state, used for metrics
// and for the error delivered through the command's completion promise.
type CommandOutcome int

const (
	OutcomeCompleted CommandOutcome = iota
	OutcomeFailed
	OutcomeTimedOut
	OutcomeCancelled
)

// Observer allows pluggable metrics collection alongside the built-in
// Metrics counters, mirroring the capability-interface pattern used for the
// adapter itself.
type Observer interface {
	ObserveTick(cycleTime time.Duration)
	ObserveFault(code DriveErrorCode)
	ObserveCommandOutcome(outcome CommandOutcome)
	ObserveWKCStrike()
	ObserveFatalError()
	ObserveRecovery(succeeded bool)
	ObserveReinitialize()
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveTick(time.Duration)            {}
func (NoOpObserver) ObserveFault(DriveErrorCode)          {}
func (NoOpObserver) ObserveCommandOutcome(CommandOutcome) {}
func (NoOpObserver) ObserveWKCStrike()                    {}
func (NoOpObserver) ObserveFatalError()                   {}
func (NoOpObserver) ObserveRecovery(bool)                 {}
func (NoOpObserver) ObserveReinitialize()                 {}

// MetricsObserver implements Observer by recording into a *Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveTick(cycleTime time.Duration) { o.metrics.RecordTick(cycleTime) }
func (o *MetricsObserver) ObserveFault(code DriveErrorCode)    { o.metrics.RecordFault(code) }
func (o *MetricsObserver) ObserveCommandOutcome(outcome CommandOutcome) {
	o.metrics.RecordCommandOutcome(outcome)
}
func (o *MetricsObserver) ObserveWKCStrike()    { o.metrics.WKCStrikes.Add(1) }
func (o *MetricsObserver) ObserveFatalError()   { o.metrics.FatalErrors.Add(1) }
func (o *MetricsObserver) ObserveReinitialize() { o.metrics.Reinitializations.Add(1) }
func (o *MetricsObserver) ObserveRecovery(succeeded bool) {
	if succeeded {
		o.metrics.Recoveries.Add(1)
	}
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
