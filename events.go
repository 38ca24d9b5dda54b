package orchestrator

import (
	"time"

	"github.com/ecat-drives/orchestrator/internal/events"
	"github.com/ecat-drives/orchestrator/internal/fault"
)

// DriveStatusChangeEvent is delivered on the StatusChanged stream whenever
// a slave's decoded TxFrame changes while it has an active command (spec
// §3, §4.6). Events are delivered from the loop worker; handlers must not
// block it.
type DriveStatusChangeEvent struct {
	Slave                int
	Timestamp            time.Time
	MonotonicTicks       uint64
	Sequence             uint64
	Current              uint32
	Previous             uint32
	ChangedBitsMask      uint32
	ActiveCommandKeyword string
}

// FaultEvent is delivered on the Faulted stream whenever a decoded drive
// fault survives the per-(slave,code) throttle (spec §4.5, §4.6).
type FaultEvent struct {
	Slave      int
	Timestamp  time.Time
	StatusBits uint32
	Code       DriveErrorCode
	Hint       string
	Health     HealthSnapshot
}

func fromInternalStatusChange(e events.DriveStatusChangeEvent) DriveStatusChangeEvent {
	return DriveStatusChangeEvent{
		Slave:                e.Slave,
		Timestamp:            e.Timestamp,
		MonotonicTicks:       e.MonotonicTicks,
		Sequence:             e.Sequence,
		Current:              e.Current,
		Previous:             e.Previous,
		ChangedBitsMask:      e.ChangedBitsMask,
		ActiveCommandKeyword: e.ActiveCommandKeyword,
	}
}

var faultCodeFromInternal = map[fault.Code]DriveErrorCode{
	fault.None:                   DriveErrNone,
	fault.ThermalProtection:      DriveErrThermalProtection,
	fault.EncoderError:           DriveErrEncoderError,
	fault.FollowError:            DriveErrFollowError,
	fault.SafetyTimeout:          DriveErrSafetyTimeout,
	fault.EmergencyStop:          DriveErrEmergencyStop,
	fault.PositionFail:           DriveErrPositionFail,
	fault.EndStopHit:             DriveErrEndStopHit,
	fault.ForceZero:              DriveErrForceZero,
	fault.ErrorCompensationFault: DriveErrErrorCompensationFault,
	fault.UnknownFault:           DriveErrUnknownFault,
}

func driveErrorCodeFromFault(code fault.Code) DriveErrorCode {
	if dc, ok := faultCodeFromInternal[code]; ok {
		return dc
	}
	return DriveErrUnknownFault
}

func (o *Orchestrator) fromInternalFault(e events.FaultEvent) FaultEvent {
	return FaultEvent{
		Slave:      e.Slave,
		Timestamp:  e.Timestamp,
		StatusBits: e.StatusBits,
		Code:       driveErrorCodeFromFault(e.Code),
		Hint:       e.Hint,
		Health:     o.GetStatus().Health,
	}
}

// StatusChanged subscribes to the StatusChanged event stream. The returned
// unsubscribe func must be called once the caller stops reading, or the
// underlying subscriber slot leaks until the orchestrator shuts down.
func (o *Orchestrator) StatusChanged() (<-chan DriveStatusChangeEvent, func()) {
	src, unsubscribe := o.loop.StatusChanges()
	out := make(chan DriveStatusChangeEvent, statusChangedRelayDepth)

	go func() {
		defer close(out)
		for e := range src {
			ev := fromInternalStatusChange(e)
			select {
			case out <- ev:
			default:
				// Relay buffer full: drop the oldest queued event.
				select {
				case <-out:
				default:
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	return out, unsubscribe
}

// Faulted subscribes to the Faulted event stream.
func (o *Orchestrator) Faulted() (<-chan FaultEvent, func()) {
	src, unsubscribe := o.loop.Faults()
	out := make(chan FaultEvent, statusChangedRelayDepth)

	go func() {
		defer close(out)
		for e := range src {
			ev := o.fromInternalFault(e)
			select {
			case out <- ev:
			default:
				// Relay buffer full: drop the oldest queued event.
				select {
				case <-out:
				default:
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	return out, unsubscribe
}

const statusChangedRelayDepth = 64
