// Package wire implements the fixed-size binary records exchanged with a
// slave each tick: RxFrame going out, TxFrame coming back. Both are packed,
// little-endian, and unaligned — the layout is dictated by the adapter's
// wire contract (spec §3, §6), not by Go struct alignment, so fields are
// marshaled by hand rather than left to encoding/binary.Write.
package wire

import (
	"encoding/binary"
)

// CommandKeywordLen is the fixed width of RxFrame's ASCII command field.
const CommandKeywordLen = 32

// RxFrameSize is the wire size of RxFrame in bytes (32 + 4 + 4 + 2 + 2 + 1).
const RxFrameSize = 45

// TxFrameSize is the wire size of TxFrame in bytes (4 + 3 + 1).
const TxFrameSize = 8

// RxFrame is the output side of one tick's process data for a single slave.
type RxFrame struct {
	Command      [CommandKeywordLen]byte
	Parameter    int32
	Velocity     int32
	Acceleration uint16
	Deceleration uint16
	Execute      uint8
}

// SetCommand upper-cases keyword and copies it into Command, null-padding
// the remainder. It truncates to CommandKeywordLen rather than erroring;
// callers validate length before this point (spec §4.2).
func (f *RxFrame) SetCommand(keyword string) {
	for i := range f.Command {
		f.Command[i] = 0
	}
	upper := toUpperASCII(keyword)
	n := copy(f.Command[:], upper)
	_ = n
}

// CommandString returns the command keyword with trailing NULs trimmed.
func (f *RxFrame) CommandString() string {
	n := 0
	for n < len(f.Command) && f.Command[n] != 0 {
		n++
	}
	return string(f.Command[:n])
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// Marshal packs the frame into its 45-byte wire representation.
func (f *RxFrame) Marshal() []byte {
	buf := make([]byte, RxFrameSize)
	copy(buf[0:32], f.Command[:])
	binary.LittleEndian.PutUint32(buf[32:36], uint32(f.Parameter))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(f.Velocity))
	binary.LittleEndian.PutUint16(buf[40:42], f.Acceleration)
	binary.LittleEndian.PutUint16(buf[42:44], f.Deceleration)
	buf[44] = f.Execute
	return buf
}

// UnmarshalRxFrame is the inverse of Marshal, used by the simulated adapter
// to decode what the loop wrote.
func UnmarshalRxFrame(data []byte) (*RxFrame, error) {
	if len(data) < RxFrameSize {
		return nil, ErrShortFrame
	}
	f := &RxFrame{}
	copy(f.Command[:], data[0:32])
	f.Parameter = int32(binary.LittleEndian.Uint32(data[32:36]))
	f.Velocity = int32(binary.LittleEndian.Uint32(data[36:40]))
	f.Acceleration = binary.LittleEndian.Uint16(data[40:42])
	f.Deceleration = binary.LittleEndian.Uint16(data[42:44])
	f.Execute = data[44]
	return f, nil
}

// StatusFlag enumerates the 22 one-bit status flags packed into TxFrame's
// three status bytes, in the bit order fixed by the adapter's wire contract
// (spec §3). Order matters: it is part of the wire format.
type StatusFlag uint8

const (
	FlagAmplifiersEnabled StatusFlag = iota
	FlagEndStop
	FlagThermalProtection1
	FlagThermalProtection2
	FlagForceZero
	FlagMotorOn
	FlagClosedLoop
	FlagEncoderAtIndex
	FlagEncoderValid
	FlagSearchingIndex
	FlagPositionReached
	FlagErrorCompensation
	FlagEncoderError
	FlagScanning
	FlagLeftEndStop
	FlagRightEndStop
	FlagErrorLimit
	FlagSearchingOptimalFrequency
	FlagSafetyTimeout
	FlagExecuteAck
	FlagEmergencyStop
	FlagPositionFail

	numStatusFlags
)

// TxFrame is the input side of one tick's process data for a single slave:
// a signed position followed by the 22 packed status flags and a slot byte
// (spec §3, §6). The core only depends on the 22 decoded booleans, never on
// their wire placement, so all flag access goes through Flag/SetFlag.
type TxFrame struct {
	ActualPosition int32
	status         [3]byte
	Slot           uint8
}

// Flag reports whether the given status bit is set.
func (t *TxFrame) Flag(f StatusFlag) bool {
	byteIdx := f / 8
	bitIdx := f % 8
	return t.status[byteIdx]&(1<<bitIdx) != 0
}

// SetFlag sets or clears the given status bit. Used by the simulated
// adapter and by tests constructing synthetic TxFrames.
func (t *TxFrame) SetFlag(f StatusFlag, v bool) {
	byteIdx := f / 8
	bitIdx := f % 8
	if v {
		t.status[byteIdx] |= 1 << bitIdx
	} else {
		t.status[byteIdx] &^= 1 << bitIdx
	}
}

// StatusBits returns the packed 24-bit status word (top 2 bits reserved),
// used to detect any flag change between ticks with a single XOR (spec
// §4.3 Phase F).
func (t *TxFrame) StatusBits() uint32 {
	return uint32(t.status[0]) | uint32(t.status[1])<<8 | uint32(t.status[2])<<16
}

// SetStatusBits overwrites the packed status word directly; used when
// decoding a wire TxFrame.
func (t *TxFrame) SetStatusBits(bits uint32) {
	t.status[0] = byte(bits)
	t.status[1] = byte(bits >> 8)
	t.status[2] = byte(bits >> 16)
}

// Marshal packs the frame into its 8-byte wire representation.
func (t *TxFrame) Marshal() []byte {
	buf := make([]byte, TxFrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(t.ActualPosition))
	buf[4] = t.status[0]
	buf[5] = t.status[1]
	buf[6] = t.status[2]
	buf[7] = t.Slot
	return buf
}

// UnmarshalTxFrame is the inverse of Marshal.
func UnmarshalTxFrame(data []byte) (*TxFrame, error) {
	if len(data) < TxFrameSize {
		return nil, ErrShortFrame
	}
	t := &TxFrame{
		ActualPosition: int32(binary.LittleEndian.Uint32(data[0:4])),
		status:         [3]byte{data[4], data[5], data[6]},
		Slot:           data[7],
	}
	return t, nil
}

// FrameError is a sentinel error type for this package, kept distinct from
// the orchestrator's own *orchestrator.Error since wire decoding can happen
// independently of any axis or command context.
type FrameError string

func (e FrameError) Error() string { return string(e) }

const ErrShortFrame FrameError = "wire: short frame"
