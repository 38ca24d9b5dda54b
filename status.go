package orchestrator

import (
	"time"

	"github.com/ecat-drives/orchestrator/internal/snapshot"
	"github.com/ecat-drives/orchestrator/internal/wire"
)

// HealthSnapshot reports the bus's working-counter and AL-status state as
// of the most recent tick (spec §3), re-exported at the root so callers
// never need to import an internal package to hold one.
type HealthSnapshot struct {
	SlavesFound       int
	GroupExpectedWKC  int
	LastWKC           int
	BytesOut          int
	BytesIn           int
	SlavesOperational int
	ALStatusCode      int
}

// DriveState is one axis's decoded view within a StatusSnapshot.
type DriveState struct {
	Slave                int
	ActualPosition        int32
	AmplifiersEnabled     bool
	MotorOn               bool
	ClosedLoop            bool
	EncoderValid          bool
	EncoderAtIndex        bool
	PositionReached       bool
	Scanning              bool
	ActiveCommandKeyword  string
	StopLatched           bool
}

// StatusSnapshot is the immutable, point-in-time view returned by
// GetStatus (spec §4.6): built once per tick and handed out via atomic
// pointer swap, so reading it never blocks or allocates beyond the copy
// GetStatus itself performs.
type StatusSnapshot struct {
	Timestamp time.Time
	Health    HealthSnapshot
	Drives    []DriveState

	CycleTime time.Duration
	MinCycle  time.Duration
	MaxCycle  time.Duration
}

func fromInternalSnapshot(s *snapshot.StatusSnapshot, stopLatched []bool) StatusSnapshot {
	out := StatusSnapshot{
		Timestamp: s.Timestamp,
		Health: HealthSnapshot{
			SlavesFound:       s.Health.SlavesFound,
			GroupExpectedWKC:  s.Health.GroupExpectedWKC,
			LastWKC:           s.Health.LastWKC,
			BytesOut:          s.Health.BytesOut,
			BytesIn:           s.Health.BytesIn,
			SlavesOperational: s.Health.SlavesOperational,
			ALStatusCode:      s.Health.ALStatusCode,
		},
		CycleTime: s.CycleTime,
		MinCycle:  s.MinCycle,
		MaxCycle:  s.MaxCycle,
	}

	out.Drives = make([]DriveState, len(s.Drives))
	for i, d := range s.Drives {
		ds := driveStateFromInternal(d)
		if i < len(stopLatched) {
			ds.StopLatched = stopLatched[i]
		}
		out.Drives[i] = ds
	}

	return out
}

// driveStateFromInternal decodes one slave's snapshot.DriveState into the
// root DriveState shape, leaving StopLatched for the caller to fill in
// (only the orchestrator, not the snapshot package, knows the latch bit).
func driveStateFromInternal(d snapshot.DriveState) DriveState {
	ds := DriveState{
		Slave:                d.Slave,
		ActualPosition:       d.Frame.ActualPosition,
		ActiveCommandKeyword: d.ActiveKeyword,
	}
	ds.AmplifiersEnabled = d.Frame.Flag(wire.FlagAmplifiersEnabled)
	ds.MotorOn = d.Frame.Flag(wire.FlagMotorOn)
	ds.ClosedLoop = d.Frame.Flag(wire.FlagClosedLoop)
	ds.EncoderValid = d.Frame.Flag(wire.FlagEncoderValid)
	ds.EncoderAtIndex = d.Frame.Flag(wire.FlagEncoderAtIndex)
	ds.PositionReached = d.Frame.Flag(wire.FlagPositionReached)
	ds.Scanning = d.Frame.Flag(wire.FlagScanning)
	return ds
}
