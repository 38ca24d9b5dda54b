package axis

import (
	"time"

	"github.com/ecat-drives/orchestrator/internal/wire"
)

// Evaluate applies step 4 of §4.4's pending-command evaluation to cmd
// against the tick's decoded tx frame, assuming the ack latch (step 1) has
// already been applied by the caller. now is the loop's current tick time,
// used for the AckWithTimeout and Timeout rules (step 5).
//
// Evaluate does not itself apply the AL-status gate (§4.4 step 3) or the
// fault-decode/RaiseFault step (step 2) — those depend on state the axis
// package doesn't own (fault throttling, health) and are applied by the
// caller before or after this call.
func Evaluate(cmd *PendingCommand, tx *wire.TxFrame, now time.Time) Outcome {
	if cmd.IsCancelled() {
		return Cancelled
	}

	elapsed := now.Sub(cmd.StartedAt)

	switch cmd.Criterion {
	case AckOnly:
		if cmd.Acked {
			return Completed
		}

	case AckWithTimeout:
		if cmd.Acked && elapsed >= cmd.Timeout {
			return Completed
		}
		if elapsed >= cmd.Timeout {
			return TimedOut
		}
		return Pending

	case PositionReached:
		posReached := tx.Flag(wire.FlagPositionReached)
		motorOn := tx.Flag(wire.FlagMotorOn)
		if cmd.SeedEdges(posReached, motorOn) {
			return Pending
		}
		risingPos := cmd.PositionReachedEdge(posReached)
		fallingMotor := cmd.MotorOnFallingEdge(motorOn)
		reachedByPosition := cmd.Keyword == "DPOS" && tx.ActualPosition == cmd.Parameter
		if risingPos || fallingMotor || reachedByPosition {
			return Completed
		}

	case Indexed:
		if tx.Flag(wire.FlagEncoderValid) && tx.Flag(wire.FlagPositionReached) {
			return Completed
		}

	case Enabled:
		if tx.Flag(wire.FlagAmplifiersEnabled) && tx.Flag(wire.FlagMotorOn) {
			return Completed
		}

	case Disabled:
		if !tx.Flag(wire.FlagAmplifiersEnabled) {
			return Completed
		}

	case Halt:
		if !tx.Flag(wire.FlagScanning) {
			return Completed
		}
	}

	if cmd.Timeout > 0 && elapsed >= cmd.Timeout {
		return TimedOut
	}
	return Pending
}
