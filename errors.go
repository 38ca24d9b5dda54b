package orchestrator

import (
	"errors"
	"fmt"
)

// Error represents a structured orchestrator error with axis and command
// context. It is the single error type returned across the public API.
type Error struct {
	Op    string    // operation that failed (e.g. "MoveAbsolute", "Initialize")
	Slave int       // slave number, 1-based (0 if not applicable)
	Code  ErrorCode // high-level error category
	Hint  string    // recovery hint, set for drive-side faults (§4.5)
	Msg   string    // human-readable message
	Inner error     // wrapped error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Slave != 0 {
		parts = append(parts, fmt.Sprintf("slave=%d", e.Slave))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("orchestrator: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("orchestrator: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches on Code so callers can do errors.Is(err, orchestrator.ErrNotReady)
// style comparisons against a bare code value as well as against another
// *Error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if ec, ok := target.(ErrorCode); ok {
		return e.Code == ec
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode is the closed set of high-level error categories surfaced to
// callers (spec §6).
type ErrorCode string

func (c ErrorCode) Error() string { return string(c) }

const (
	ErrCodeNotInitialized     ErrorCode = "not initialized"
	ErrCodeAlreadyInitialized ErrorCode = "already initialized"
	ErrCodeAdapterOpenFailed  ErrorCode = "adapter open failed"
	ErrCodeNoSlaves           ErrorCode = "no slaves found"
	ErrCodeInvalidArgument    ErrorCode = "invalid argument"
	ErrCodeSlaveOutOfRange    ErrorCode = "slave out of range"
	ErrCodeAlreadyInFlight    ErrorCode = "command already in flight"
	ErrCodeNotReady           ErrorCode = "axis not ready"
	ErrCodeLatched            ErrorCode = "axis stop-latched"
	ErrCodeCancelled          ErrorCode = "command cancelled"
	ErrCodeSessionRestarted   ErrorCode = "session restarted"
	ErrCodeSessionEnded       ErrorCode = "session ended"
)

// DriveErrorCode is the closed set of drive-side fault codes the classifier
// produces (spec §3, §4.5), plus the two codes produced outside the
// classifier itself: SafetyTimeout for command timeouts and UnknownFault
// for an AL-status hard fault or an out-of-range ingest failure.
type DriveErrorCode string

const (
	DriveErrNone                   DriveErrorCode = "none"
	DriveErrFollowError            DriveErrorCode = "follow error"
	DriveErrPositionFail           DriveErrorCode = "position fail"
	DriveErrSafetyTimeout          DriveErrorCode = "safety timeout"
	DriveErrEmergencyStop          DriveErrorCode = "emergency stop"
	DriveErrEncoderError           DriveErrorCode = "encoder error"
	DriveErrThermalProtection      DriveErrorCode = "thermal protection"
	DriveErrEndStopHit             DriveErrorCode = "end stop hit"
	DriveErrForceZero              DriveErrorCode = "force zero"
	DriveErrErrorCompensationFault DriveErrorCode = "error compensation fault"
	DriveErrUnknownFault           DriveErrorCode = "unknown fault"
)

// DriveError carries a classified drive-side fault: the code, a
// human-readable message, and the recovery hint from the classifier table
// (spec §4.5). It wraps into an *Error via WrapDriveError so callers can
// still use errors.As(err, &orchestrator.Error{}).
type DriveError struct {
	Code DriveErrorCode
	Hint string
	Msg  string
}

func (d *DriveError) Error() string {
	if d.Msg != "" {
		return d.Msg
	}
	return string(d.Code)
}

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewSlaveError creates a new slave-scoped structured error.
func NewSlaveError(op string, slave int, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Slave: slave, Code: code, Msg: msg}
}

// WrapDriveError turns a classified DriveError into the public *Error shape,
// carrying the axis and the recovery hint through to the caller.
func WrapDriveError(op string, slave int, de *DriveError) *Error {
	if de == nil {
		return nil
	}
	return &Error{
		Op:    op,
		Slave: slave,
		Code:  ErrorCode(de.Code),
		Hint:  de.Hint,
		Msg:   de.Msg,
		Inner: de,
	}
}

// WrapError wraps an existing error with orchestrator context, preserving
// code/slave/hint if the inner error is already structured.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if oe, ok := inner.(*Error); ok {
		return &Error{
			Op:    op,
			Slave: oe.Slave,
			Code:  oe.Code,
			Hint:  oe.Hint,
			Msg:   oe.Msg,
			Inner: oe.Inner,
		}
	}
	return &Error{Op: op, Code: ErrCodeNotReady, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err (or anything it wraps) is a structured *Error
// carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code == code
	}
	return false
}
