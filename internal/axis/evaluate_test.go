package axis

import (
	"testing"
	"time"

	"github.com/ecat-drives/orchestrator/internal/wire"
)

func TestEvaluateCancelled(t *testing.T) {
	cmd := NewPendingCommand(1, "SCAN", AckOnly)
	cmd.Start(time.Now())
	cmd.Cancel()

	if got := Evaluate(cmd, &wire.TxFrame{}, time.Now()); got != Cancelled {
		t.Errorf("Evaluate() = %v, want Cancelled", got)
	}
}

func TestEvaluateAckOnly(t *testing.T) {
	cmd := NewPendingCommand(1, "SCAN", AckOnly)
	cmd.Start(time.Now())

	if got := Evaluate(cmd, &wire.TxFrame{}, time.Now()); got != Pending {
		t.Errorf("Evaluate() with no ack = %v, want Pending", got)
	}

	cmd.Acked = true
	if got := Evaluate(cmd, &wire.TxFrame{}, time.Now()); got != Completed {
		t.Errorf("Evaluate() after ack = %v, want Completed", got)
	}
}

func TestEvaluateAckWithTimeoutRequiresBoth(t *testing.T) {
	start := time.Now()
	cmd := NewPendingCommand(1, "RSET", AckWithTimeout)
	cmd.Timeout = time.Second
	cmd.Start(start)
	cmd.Acked = true

	if got := Evaluate(cmd, &wire.TxFrame{}, start.Add(100*time.Millisecond)); got != Pending {
		t.Errorf("Evaluate() acked but before timeout = %v, want Pending", got)
	}
	if got := Evaluate(cmd, &wire.TxFrame{}, start.Add(time.Second)); got != Completed {
		t.Errorf("Evaluate() acked at timeout = %v, want Completed", got)
	}
}

func TestEvaluateAckWithTimeoutTimesOutWithoutAck(t *testing.T) {
	start := time.Now()
	cmd := NewPendingCommand(1, "RSET", AckWithTimeout)
	cmd.Timeout = time.Second
	cmd.Start(start)

	if got := Evaluate(cmd, &wire.TxFrame{}, start.Add(time.Second)); got != TimedOut {
		t.Errorf("Evaluate() unacked at timeout = %v, want TimedOut", got)
	}
}

func TestEvaluatePositionReachedSeedsBeforeObserving(t *testing.T) {
	start := time.Now()
	cmd := NewPendingCommand(1, "DPOS", PositionReached)
	cmd.Parameter = 1000
	cmd.Start(start)

	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagPositionReached, true)

	if got := Evaluate(cmd, tx, start); got != Pending {
		t.Errorf("Evaluate() on first tick with PositionReached already set = %v, want Pending (must wait for a fresh edge)", got)
	}
	if got := Evaluate(cmd, tx, start.Add(2*time.Millisecond)); got != Pending {
		t.Errorf("Evaluate() on second tick with no edge = %v, want Pending", got)
	}
}

func TestEvaluatePositionReachedRisingEdgeCompletes(t *testing.T) {
	start := time.Now()
	cmd := NewPendingCommand(1, "DPOS", PositionReached)
	cmd.Parameter = 1000
	cmd.Start(start)

	tx := &wire.TxFrame{}
	Evaluate(cmd, tx, start) // seed with PositionReached false

	tx.SetFlag(wire.FlagPositionReached, true)
	if got := Evaluate(cmd, tx, start.Add(2*time.Millisecond)); got != Completed {
		t.Errorf("Evaluate() on rising edge = %v, want Completed", got)
	}
}

func TestEvaluatePositionReachedByActualPosition(t *testing.T) {
	start := time.Now()
	cmd := NewPendingCommand(1, "DPOS", PositionReached)
	cmd.Parameter = 1000
	cmd.Start(start)

	tx := &wire.TxFrame{}
	Evaluate(cmd, tx, start) // seed

	tx.ActualPosition = 1000
	if got := Evaluate(cmd, tx, start.Add(2*time.Millisecond)); got != Completed {
		t.Errorf("Evaluate() when actual_position == parameter = %v, want Completed", got)
	}
}

func TestEvaluatePositionReachedMotorOnFallingEdgeCompletes(t *testing.T) {
	start := time.Now()
	cmd := NewPendingCommand(1, "DPOS", PositionReached)
	cmd.Start(start)

	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagMotorOn, true)
	Evaluate(cmd, tx, start) // seed with MotorOn true

	tx.SetFlag(wire.FlagMotorOn, false)
	if got := Evaluate(cmd, tx, start.Add(2*time.Millisecond)); got != Completed {
		t.Errorf("Evaluate() on MotorOn falling edge = %v, want Completed", got)
	}
}

func TestEvaluateIndexed(t *testing.T) {
	cmd := NewPendingCommand(1, "INDX", Indexed)
	cmd.Start(time.Now())

	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagEncoderValid, true)
	if got := Evaluate(cmd, tx, time.Now()); got != Pending {
		t.Errorf("Evaluate() with only EncoderValid = %v, want Pending", got)
	}

	tx.SetFlag(wire.FlagPositionReached, true)
	if got := Evaluate(cmd, tx, time.Now()); got != Completed {
		t.Errorf("Evaluate() with EncoderValid and PositionReached = %v, want Completed", got)
	}
}

func TestEvaluateEnabled(t *testing.T) {
	cmd := NewPendingCommand(1, "ENBL", Enabled)
	cmd.Start(time.Now())

	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagAmplifiersEnabled, true)
	if got := Evaluate(cmd, tx, time.Now()); got != Pending {
		t.Errorf("Evaluate() with only AmplifiersEnabled = %v, want Pending", got)
	}

	tx.SetFlag(wire.FlagMotorOn, true)
	if got := Evaluate(cmd, tx, time.Now()); got != Completed {
		t.Errorf("Evaluate() with AmplifiersEnabled and MotorOn = %v, want Completed", got)
	}
}

func TestEvaluateDisabled(t *testing.T) {
	cmd := NewPendingCommand(1, "ENBL", Disabled)
	cmd.Start(time.Now())

	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagAmplifiersEnabled, true)
	if got := Evaluate(cmd, tx, time.Now()); got != Pending {
		t.Errorf("Evaluate() with AmplifiersEnabled still set = %v, want Pending", got)
	}

	tx.SetFlag(wire.FlagAmplifiersEnabled, false)
	if got := Evaluate(cmd, tx, time.Now()); got != Completed {
		t.Errorf("Evaluate() with AmplifiersEnabled cleared = %v, want Completed", got)
	}
}

func TestEvaluateHalt(t *testing.T) {
	cmd := NewPendingCommand(1, "HALT", Halt)
	cmd.Start(time.Now())

	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagScanning, true)
	if got := Evaluate(cmd, tx, time.Now()); got != Pending {
		t.Errorf("Evaluate() while still Scanning = %v, want Pending", got)
	}

	tx.SetFlag(wire.FlagScanning, false)
	if got := Evaluate(cmd, tx, time.Now()); got != Completed {
		t.Errorf("Evaluate() once Scanning clears = %v, want Completed", got)
	}
}

func TestEvaluateGenericTimeout(t *testing.T) {
	start := time.Now()
	cmd := NewPendingCommand(1, "HALT", Halt)
	cmd.Timeout = 2 * time.Second
	cmd.Start(start)

	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagScanning, true)

	if got := Evaluate(cmd, tx, start.Add(2*time.Second)); got != TimedOut {
		t.Errorf("Evaluate() past timeout while still Scanning = %v, want TimedOut", got)
	}
}
