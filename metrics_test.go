package orchestrator

import (
	"testing"
	"time"
)

func TestMetricsTick(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TicksTotal != 0 {
		t.Errorf("Expected 0 initial ticks, got %d", snap.TicksTotal)
	}

	m.RecordTick(2 * time.Millisecond)
	m.RecordTick(5 * time.Millisecond)
	m.RecordTick(1 * time.Millisecond)

	snap = m.Snapshot()
	if snap.TicksTotal != 3 {
		t.Errorf("Expected 3 ticks, got %d", snap.TicksTotal)
	}
	if snap.LastCycle != 1*time.Millisecond {
		t.Errorf("Expected last cycle 1ms, got %v", snap.LastCycle)
	}
	if snap.MinCycle != 1*time.Millisecond {
		t.Errorf("Expected min cycle 1ms, got %v", snap.MinCycle)
	}
	if snap.MaxCycle != 5*time.Millisecond {
		t.Errorf("Expected max cycle 5ms, got %v", snap.MaxCycle)
	}
}

func TestMetricsFaultCounts(t *testing.T) {
	m := NewMetrics()

	m.RecordFault(DriveErrThermalProtection)
	m.RecordFault(DriveErrThermalProtection)
	m.RecordFault(DriveErrFollowError)
	m.RecordFault(DriveErrNone) // not a countable code

	snap := m.Snapshot()
	if snap.FaultCounts[DriveErrThermalProtection] != 2 {
		t.Errorf("Expected 2 thermal protection faults, got %d", snap.FaultCounts[DriveErrThermalProtection])
	}
	if snap.FaultCounts[DriveErrFollowError] != 1 {
		t.Errorf("Expected 1 follow error fault, got %d", snap.FaultCounts[DriveErrFollowError])
	}
	if _, ok := snap.FaultCounts[DriveErrNone]; ok {
		t.Error("Expected DriveErrNone to not appear in fault counts")
	}
}

func TestMetricsCommandOutcomes(t *testing.T) {
	m := NewMetrics()

	m.RecordCommandOutcome(OutcomeCompleted)
	m.RecordCommandOutcome(OutcomeCompleted)
	m.RecordCommandOutcome(OutcomeFailed)
	m.RecordCommandOutcome(OutcomeTimedOut)
	m.RecordCommandOutcome(OutcomeCancelled)

	snap := m.Snapshot()
	if snap.CommandsCompleted != 2 {
		t.Errorf("Expected 2 completed commands, got %d", snap.CommandsCompleted)
	}
	if snap.CommandsFailed != 1 {
		t.Errorf("Expected 1 failed command, got %d", snap.CommandsFailed)
	}
	if snap.CommandsTimedOut != 1 {
		t.Errorf("Expected 1 timed out command, got %d", snap.CommandsTimedOut)
	}
	if snap.CommandsCancelled != 1 {
		t.Errorf("Expected 1 cancelled command, got %d", snap.CommandsCancelled)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)
	snap := m.Snapshot()
	if snap.UptimeNs < 10*uint64(time.Millisecond) {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+uint64(2*time.Millisecond) {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveTick(time.Millisecond)
	observer.ObserveFault(DriveErrEncoderError)
	observer.ObserveCommandOutcome(OutcomeCompleted)
	observer.ObserveWKCStrike()
	observer.ObserveFatalError()
	observer.ObserveRecovery(true)
	observer.ObserveReinitialize()

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveTick(2 * time.Millisecond)
	metricsObserver.ObserveFault(DriveErrEncoderError)
	metricsObserver.ObserveCommandOutcome(OutcomeCompleted)
	metricsObserver.ObserveWKCStrike()
	metricsObserver.ObserveFatalError()
	metricsObserver.ObserveRecovery(true)
	metricsObserver.ObserveReinitialize()

	snap := m.Snapshot()
	if snap.TicksTotal != 1 {
		t.Errorf("Expected 1 tick from observer, got %d", snap.TicksTotal)
	}
	if snap.FaultCounts[DriveErrEncoderError] != 1 {
		t.Errorf("Expected 1 encoder error fault from observer, got %d", snap.FaultCounts[DriveErrEncoderError])
	}
	if snap.CommandsCompleted != 1 {
		t.Errorf("Expected 1 completed command from observer, got %d", snap.CommandsCompleted)
	}
	if snap.WKCStrikes != 1 {
		t.Errorf("Expected 1 WKC strike from observer, got %d", snap.WKCStrikes)
	}
	if snap.FatalErrors != 1 {
		t.Errorf("Expected 1 fatal error from observer, got %d", snap.FatalErrors)
	}
	if snap.Recoveries != 1 {
		t.Errorf("Expected 1 recovery from observer, got %d", snap.Recoveries)
	}
	if snap.Reinitializations != 1 {
		t.Errorf("Expected 1 reinitialization from observer, got %d", snap.Reinitializations)
	}
}
