package fault

import (
	"testing"
	"time"

	"github.com/ecat-drives/orchestrator/internal/wire"
)

func TestClassifyNone(t *testing.T) {
	if code, _ := Classify(&wire.TxFrame{}); code != None {
		t.Errorf("Classify() on a clean frame = %v, want None", code)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagEncoderError, true)
	tx.SetFlag(wire.FlagEmergencyStop, true)

	code, _ := Classify(tx)
	if code != EncoderError {
		t.Errorf("Classify() with EncoderError and EmergencyStop both set = %v, want EncoderError (higher priority)", code)
	}
}

func TestClassifyThermalTakesPriorityOverEverything(t *testing.T) {
	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagPositionFail, true)
	tx.SetFlag(wire.FlagThermalProtection2, true)

	code, _ := Classify(tx)
	if code != ThermalProtection {
		t.Errorf("Classify() = %v, want ThermalProtection", code)
	}
}

func TestClassifyEndStopSide(t *testing.T) {
	left := &wire.TxFrame{}
	left.SetFlag(wire.FlagEndStop, true)
	left.SetFlag(wire.FlagLeftEndStop, true)
	if code, hint := Classify(left); code != EndStopHit || hint != "jog away from left" {
		t.Errorf("Classify(left) = (%v, %q), want (EndStopHit, jog away from left)", code, hint)
	}

	right := &wire.TxFrame{}
	right.SetFlag(wire.FlagEndStop, true)
	right.SetFlag(wire.FlagRightEndStop, true)
	if code, hint := Classify(right); code != EndStopHit || hint != "jog away from right" {
		t.Errorf("Classify(right) = (%v, %q), want (EndStopHit, jog away from right)", code, hint)
	}
}

func TestClassifyEndStopBitAloneDoesNotMatch(t *testing.T) {
	tx := &wire.TxFrame{}
	tx.SetFlag(wire.FlagEndStop, true)
	if code, _ := Classify(tx); code != None {
		t.Errorf("Classify() with bare EndStop and no side bit = %v, want None", code)
	}
}

func TestThrottleSuppressesRepeat(t *testing.T) {
	th := NewThrottle(0)
	start := time.Now()

	if !th.Should(1, EncoderError, start) {
		t.Error("expected the first occurrence to be raised")
	}
	if th.Should(1, EncoderError, start.Add(time.Second)) {
		t.Error("expected a repeat within the suppression window to be suppressed")
	}
	if !th.Should(1, EncoderError, start.Add(6*time.Second)) {
		t.Error("expected a repeat past the suppression window to be raised again")
	}
}

func TestThrottleDifferentCodeResetsWindow(t *testing.T) {
	th := NewThrottle(0)
	start := time.Now()

	th.Should(1, EncoderError, start)
	if !th.Should(1, ThermalProtection, start.Add(time.Second)) {
		t.Error("expected a different code to raise immediately even inside the window")
	}
}

func TestThrottleNoneResetsSuppression(t *testing.T) {
	th := NewThrottle(0)
	start := time.Now()

	th.Should(1, EncoderError, start)
	th.Should(1, None, start.Add(time.Second))

	if !th.Should(1, EncoderError, start.Add(2*time.Second)) {
		t.Error("expected the code to raise immediately after an intervening None observation")
	}
}

func TestThrottleIsPerSlave(t *testing.T) {
	th := NewThrottle(0)
	start := time.Now()

	th.Should(1, EncoderError, start)
	if !th.Should(2, EncoderError, start) {
		t.Error("expected a different slave's identical fault to raise independently")
	}
}
