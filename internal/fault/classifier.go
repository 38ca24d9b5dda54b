// Package fault decodes a TxFrame's status bits into the closed
// DriveErrorCode set and throttles repeat notification of the same fault
// (spec §4.5, §4.6). Code and Throttle are pure/stateful respectively but
// neither touches an axis's active command — that decision belongs to the
// loop, which is why Classify never returns anything beyond a code and a
// hint.
package fault

import (
	"time"

	"github.com/ecat-drives/orchestrator/internal/wire"
)

// Code mirrors orchestrator.DriveErrorCode without importing the root
// package, avoiding an import cycle between internal/fault and the package
// that constructs orchestrator.DriveError values from a Classify result.
type Code string

const (
	None                   Code = "none"
	ThermalProtection      Code = "thermal_protection"
	EncoderError           Code = "encoder_error"
	FollowError            Code = "follow_error"
	SafetyTimeout          Code = "safety_timeout"
	EmergencyStop          Code = "emergency_stop"
	PositionFail           Code = "position_fail"
	EndStopHit             Code = "end_stop_hit"
	ForceZero              Code = "force_zero"
	ErrorCompensationFault Code = "error_compensation_fault"
	UnknownFault           Code = "unknown_fault"
)

// entry is one row of the priority-ordered table (spec §4.5).
type entry struct {
	code  Code
	hint  string
	match func(tx *wire.TxFrame) bool
}

var table = []entry{
	{ThermalProtection, "let drive cool; ENBL=1 or RSET", func(tx *wire.TxFrame) bool {
		return tx.Flag(wire.FlagThermalProtection1)
	}},
	{ThermalProtection, "let drive cool; ENBL=1 or RSET", func(tx *wire.TxFrame) bool {
		return tx.Flag(wire.FlagThermalProtection2)
	}},
	{EncoderError, "check encoder; RSET then INDX", func(tx *wire.TxFrame) bool {
		return tx.Flag(wire.FlagEncoderError)
	}},
	{FollowError, "reduce speed/accel; ENBL=1", func(tx *wire.TxFrame) bool {
		return tx.Flag(wire.FlagErrorLimit)
	}},
	{SafetyTimeout, "RSET or ENBL=1; adjust TOU2", func(tx *wire.TxFrame) bool {
		return tx.Flag(wire.FlagSafetyTimeout)
	}},
	{EmergencyStop, "clear E-stop; ENBL=1 or RSET", func(tx *wire.TxFrame) bool {
		return tx.Flag(wire.FlagEmergencyStop)
	}},
	{PositionFail, "relax PTOL/PTO2/TOU3; ENBL=1 or RSET", func(tx *wire.TxFrame) bool {
		return tx.Flag(wire.FlagPositionFail)
	}},
	{EndStopHit, "jog away from left", func(tx *wire.TxFrame) bool {
		return tx.Flag(wire.FlagEndStop) && tx.Flag(wire.FlagLeftEndStop)
	}},
	{EndStopHit, "jog away from right", func(tx *wire.TxFrame) bool {
		return tx.Flag(wire.FlagEndStop) && tx.Flag(wire.FlagRightEndStop)
	}},
}

// Classify returns the first matching entry of the priority-ordered table,
// or (None, "") if no fault bit is set (spec §4.5).
func Classify(tx *wire.TxFrame) (code Code, hint string) {
	for _, e := range table {
		if e.match(tx) {
			return e.code, e.hint
		}
	}
	return None, ""
}

// defaultSuppressionWindow is how long a repeated (slave, code) pair is
// silenced for by default (spec §4.6, "RaiseFault throttle"; matches root
// package DefaultFaultRepeatInterval).
const defaultSuppressionWindow = 5 * time.Second

// state is one slave's last-raised fault bookkeeping.
type state struct {
	lastCode Code
	lastTime time.Time
}

// Throttle implements the per-slave RaiseFault suppression rule (spec
// §4.6): the same code repeating inside the suppression window is
// silenced; a different code, or the classifier returning None, resets the
// window immediately.
type Throttle struct {
	window time.Duration
	slaves map[int]*state
}

// NewThrottle creates an empty Throttle with the given suppression window.
// A zero window falls back to defaultSuppressionWindow.
func NewThrottle(window time.Duration) *Throttle {
	if window <= 0 {
		window = defaultSuppressionWindow
	}
	return &Throttle{window: window, slaves: make(map[int]*state)}
}

// Should reports whether a fault decoded for slave at now should be raised,
// and advances the throttle's bookkeeping as a side effect. The loop calls
// it once per tick for each slave that has an active command, whether or not
// a fault is present — when code is None, the suppression state resets so a
// future reappearance of any code emits immediately.
func (t *Throttle) Should(slave int, code Code, now time.Time) bool {
	s, ok := t.slaves[slave]
	if !ok {
		s = &state{}
		t.slaves[slave] = s
	}

	if code == None {
		s.lastCode = None
		s.lastTime = time.Time{}
		return false
	}

	if s.lastCode == code && !s.lastTime.IsZero() && now.Sub(s.lastTime) < t.window {
		return false
	}

	s.lastCode = code
	s.lastTime = now
	return true
}
