package wire

import "testing"

func TestRxFrameMarshalSize(t *testing.T) {
	f := &RxFrame{}
	f.SetCommand("dpos")
	f.Parameter = 100_000
	f.Velocity = 30_000
	f.Acceleration = 1000
	f.Deceleration = 1000
	f.Execute = 1

	data := f.Marshal()
	if len(data) != RxFrameSize {
		t.Errorf("Marshal length = %d, want %d", len(data), RxFrameSize)
	}
}

func TestRxFrameCommandUppercased(t *testing.T) {
	f := &RxFrame{}
	f.SetCommand("dpos")

	if got := f.CommandString(); got != "DPOS" {
		t.Errorf("CommandString() = %q, want %q", got, "DPOS")
	}
}

func TestRxFrameMarshalRoundTrip(t *testing.T) {
	original := &RxFrame{}
	original.SetCommand("SCAN")
	original.Parameter = -1
	original.Velocity = 12_345
	original.Acceleration = 500
	original.Deceleration = 750
	original.Execute = 1

	data := original.Marshal()
	decoded, err := UnmarshalRxFrame(data)
	if err != nil {
		t.Fatalf("UnmarshalRxFrame failed: %v", err)
	}

	if decoded.CommandString() != "SCAN" {
		t.Errorf("CommandString() = %q, want SCAN", decoded.CommandString())
	}
	if decoded.Parameter != original.Parameter {
		t.Errorf("Parameter = %d, want %d", decoded.Parameter, original.Parameter)
	}
	if decoded.Velocity != original.Velocity {
		t.Errorf("Velocity = %d, want %d", decoded.Velocity, original.Velocity)
	}
	if decoded.Acceleration != original.Acceleration {
		t.Errorf("Acceleration = %d, want %d", decoded.Acceleration, original.Acceleration)
	}
	if decoded.Deceleration != original.Deceleration {
		t.Errorf("Deceleration = %d, want %d", decoded.Deceleration, original.Deceleration)
	}
	if decoded.Execute != original.Execute {
		t.Errorf("Execute = %d, want %d", decoded.Execute, original.Execute)
	}
}

func TestUnmarshalRxFrameShort(t *testing.T) {
	if _, err := UnmarshalRxFrame(make([]byte, RxFrameSize-1)); err != ErrShortFrame {
		t.Errorf("expected ErrShortFrame, got %v", err)
	}
}

func TestTxFrameFlags(t *testing.T) {
	tx := &TxFrame{}

	tx.SetFlag(FlagAmplifiersEnabled, true)
	tx.SetFlag(FlagPositionReached, true)
	tx.SetFlag(FlagExecuteAck, true)

	if !tx.Flag(FlagAmplifiersEnabled) {
		t.Error("expected FlagAmplifiersEnabled set")
	}
	if !tx.Flag(FlagPositionReached) {
		t.Error("expected FlagPositionReached set")
	}
	if !tx.Flag(FlagExecuteAck) {
		t.Error("expected FlagExecuteAck set")
	}
	if tx.Flag(FlagEmergencyStop) {
		t.Error("expected FlagEmergencyStop clear")
	}

	tx.SetFlag(FlagPositionReached, false)
	if tx.Flag(FlagPositionReached) {
		t.Error("expected FlagPositionReached cleared after unset")
	}
}

func TestTxFrameStatusBitsChangeDetection(t *testing.T) {
	prev := &TxFrame{}
	prev.SetFlag(FlagMotorOn, true)

	cur := &TxFrame{}
	cur.SetFlag(FlagMotorOn, true)
	cur.SetFlag(FlagPositionReached, true)

	changed := cur.StatusBits() ^ prev.StatusBits()
	if changed == 0 {
		t.Error("expected a non-zero changed mask when PositionReached flips")
	}
	if changed&(1<<uint(FlagPositionReached)) == 0 {
		t.Error("expected the changed mask to include the PositionReached bit")
	}
	if changed&(1<<uint(FlagMotorOn)) != 0 {
		t.Error("expected the changed mask to exclude the unchanged MotorOn bit")
	}
}

func TestTxFrameMarshalRoundTrip(t *testing.T) {
	original := &TxFrame{ActualPosition: -42, Slot: 7}
	original.SetFlag(FlagClosedLoop, true)
	original.SetFlag(FlagEncoderValid, true)
	original.SetFlag(FlagPositionFail, true) // highest bit, exercises the third status byte

	data := original.Marshal()
	if len(data) != TxFrameSize {
		t.Fatalf("Marshal length = %d, want %d", len(data), TxFrameSize)
	}

	decoded, err := UnmarshalTxFrame(data)
	if err != nil {
		t.Fatalf("UnmarshalTxFrame failed: %v", err)
	}

	if decoded.ActualPosition != original.ActualPosition {
		t.Errorf("ActualPosition = %d, want %d", decoded.ActualPosition, original.ActualPosition)
	}
	if decoded.Slot != original.Slot {
		t.Errorf("Slot = %d, want %d", decoded.Slot, original.Slot)
	}
	if decoded.StatusBits() != original.StatusBits() {
		t.Errorf("StatusBits() = %b, want %b", decoded.StatusBits(), original.StatusBits())
	}
	if !decoded.Flag(FlagPositionFail) {
		t.Error("expected FlagPositionFail to round-trip")
	}
}

func TestUnmarshalTxFrameShort(t *testing.T) {
	if _, err := UnmarshalTxFrame(make([]byte, TxFrameSize-1)); err != ErrShortFrame {
		t.Errorf("expected ErrShortFrame, got %v", err)
	}
}
