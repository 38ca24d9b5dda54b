package loop

import "github.com/ecat-drives/orchestrator/internal/fault"

// Reason is why the loop failed a PendingCommand, independent of the root
// package's ErrorCode set so this package never imports back to it (root
// package orchestrator.go maps a Reason to its own *Error shape instead).
type Reason string

const (
	ReasonOutOfRange       Reason = "slave out of range"
	ReasonAlreadyInFlight  Reason = "command already in-flight on this axis"
	ReasonALStatusFault    Reason = "bus group reported a non-zero AL status"
	ReasonTimedOut         Reason = "command did not reach its completion criterion in time"
	ReasonSessionRestarted Reason = "adapter was reinitialized while this command was active"
	ReasonSessionEnded     Reason = "orchestrator was shut down while this command was active"
)

// CommandError is the error value a failed PendingCommand resolves with.
// Fault is set only for AL-status, timeout and out-of-range ingest failures,
// which carry a drive fault code to attach (spec §4.4 step 3, step 5).
type CommandError struct {
	Reason Reason
	Fault  fault.Code
}

func (e *CommandError) Error() string {
	if e.Fault != "" && e.Fault != fault.None {
		return string(e.Reason) + ": " + string(e.Fault)
	}
	return string(e.Reason)
}

func newCommandError(reason Reason) *CommandError {
	return &CommandError{Reason: reason}
}

func newCommandFaultError(reason Reason, code fault.Code) *CommandError {
	return &CommandError{Reason: reason, Fault: code}
}
