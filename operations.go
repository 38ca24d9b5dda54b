package orchestrator

import (
	"context"
	"time"

	"github.com/ecat-drives/orchestrator/internal/axis"
)

// MoveAbsolute drives slave to target using the DPOS keyword, completing on
// a PositionReached edge (or actual_position==target, or a MotorOn falling
// edge), and fails immediately with ErrCodeLatched or ErrCodeNotReady
// without enqueueing anything if its precondition isn't met (spec §4.2).
func (o *Orchestrator) MoveAbsolute(ctx context.Context, slave int, target, vel int32, acc, dec uint16, settle time.Duration) error {
	const op = "MoveAbsolute"

	idx, err := o.axisIndex(op, slave)
	if err != nil {
		return err
	}
	if o.stopLatched[idx].Load() {
		return NewSlaveError(op, slave, ErrCodeLatched, "axis is stop-latched; Reset or Enable(true) first")
	}
	state, _ := o.currentDriveState(idx)
	if !state.AmplifiersEnabled || !state.MotorOn || !state.ClosedLoop || !state.EncoderValid {
		return NewSlaveError(op, slave, ErrCodeNotReady, "axis must be enabled, motor-on, closed-loop, and encoder-valid")
	}

	timeout := settle
	if timeout <= 0 {
		timeout = o.opts.DefaultSettleTimeout
	}

	cmd := axis.NewPendingCommand(idx, "DPOS", axis.PositionReached)
	cmd.Parameter = target
	cmd.Velocity = vel
	cmd.Acceleration = acc
	cmd.Deceleration = dec
	cmd.RequiresAck = true
	cmd.Timeout = timeout

	return o.dispatch(ctx, op, slave, cmd)
}

// Jog drives slave at a continuous velocity using the SCAN keyword, dir ∈
// {-1, 0, 1}, completing as soon as the drive acks (no timeout; spec §4.2).
func (o *Orchestrator) Jog(ctx context.Context, slave int, dir int, vel int32, acc, dec uint16) error {
	const op = "Jog"

	if dir < -1 || dir > 1 {
		return NewSlaveError(op, slave, ErrCodeInvalidArgument, "jog direction must be -1, 0, or 1")
	}

	idx, err := o.axisIndex(op, slave)
	if err != nil {
		return err
	}
	if o.stopLatched[idx].Load() {
		return NewSlaveError(op, slave, ErrCodeLatched, "axis is stop-latched; Reset or Enable(true) first")
	}
	state, _ := o.currentDriveState(idx)
	if !state.AmplifiersEnabled || !state.MotorOn || !state.ClosedLoop {
		return NewSlaveError(op, slave, ErrCodeNotReady, "axis must be enabled, motor-on, and closed-loop")
	}

	cmd := axis.NewPendingCommand(idx, "SCAN", axis.AckOnly)
	cmd.Parameter = int32(dir)
	cmd.Velocity = vel
	cmd.Acceleration = acc
	cmd.Deceleration = dec
	cmd.RequiresAck = true

	return o.dispatch(ctx, op, slave, cmd)
}

// Index seeks the axis's encoder index mark using the INDX keyword, dir ∈
// {0, 1}, completing when EncoderValid and PositionReached are both set. A
// call against an axis whose encoder is already valid resolves immediately
// without enqueueing anything (spec §9 testable property 10).
func (o *Orchestrator) Index(ctx context.Context, slave int, dir int, vel int32, acc, dec uint16, settle time.Duration) error {
	const op = "Index"

	if dir != 0 && dir != 1 {
		return NewSlaveError(op, slave, ErrCodeInvalidArgument, "index direction must be 0 or 1")
	}

	idx, err := o.axisIndex(op, slave)
	if err != nil {
		return err
	}
	if o.stopLatched[idx].Load() {
		return NewSlaveError(op, slave, ErrCodeLatched, "axis is stop-latched; Reset or Enable(true) first")
	}
	state, _ := o.currentDriveState(idx)
	if !state.AmplifiersEnabled {
		return NewSlaveError(op, slave, ErrCodeNotReady, "axis must be enabled")
	}
	if state.EncoderValid {
		return nil
	}

	timeout := settle
	if timeout <= 0 {
		timeout = o.opts.DefaultSettleTimeout
	}

	cmd := axis.NewPendingCommand(idx, "INDX", axis.Indexed)
	cmd.Parameter = int32(dir)
	cmd.Velocity = vel
	cmd.Acceleration = acc
	cmd.Deceleration = dec
	cmd.RequiresAck = true
	cmd.Timeout = timeout

	return o.dispatch(ctx, op, slave, cmd)
}

// Reset issues RSET and always runs AckWithTimeout(1s): it never completes
// before the drive acks, and never before a full second has elapsed, even
// if the ack arrives sooner (spec §4.2, §9 testable property 8). On
// success it clears the axis's stop latch.
func (o *Orchestrator) Reset(ctx context.Context, slave int) error {
	const op = "Reset"

	idx, err := o.axisIndex(op, slave)
	if err != nil {
		return err
	}

	cmd := axis.NewPendingCommand(idx, "RSET", axis.AckWithTimeout)
	cmd.RequiresAck = true
	cmd.Timeout = resetAckTimeout

	if err := o.dispatch(ctx, op, slave, cmd); err != nil {
		return err
	}
	o.stopLatched[idx].Store(false)
	return nil
}

// Enable sets or clears the axis's amplifier-enable state using ENBL,
// completing when Enabled (AmplifiersEnabled ∧ MotorOn) or Disabled
// (¬AmplifiersEnabled) is observed. A call whose target state already holds
// resolves immediately without enqueueing (spec §9 testable property 9).
// Enable(true) additionally clears the stop latch on success.
func (o *Orchestrator) Enable(ctx context.Context, slave int, enabled bool) error {
	const op = "Enable"

	idx, err := o.axisIndex(op, slave)
	if err != nil {
		return err
	}
	state, _ := o.currentDriveState(idx)
	if enabled && state.AmplifiersEnabled && state.MotorOn {
		o.stopLatched[idx].Store(false)
		return nil
	}
	if !enabled && !state.AmplifiersEnabled {
		return nil
	}

	criterion := axis.Disabled
	param := int32(0)
	if enabled {
		criterion = axis.Enabled
		param = 1
	}

	cmd := axis.NewPendingCommand(idx, "ENBL", criterion)
	cmd.Parameter = param
	cmd.RequiresAck = true
	cmd.Timeout = enableTimeout

	if err := o.dispatch(ctx, op, slave, cmd); err != nil {
		return err
	}
	if enabled {
		o.stopLatched[idx].Store(false)
	}
	return nil
}

// Halt issues HALT, completing when Scanning clears (spec §4.2).
func (o *Orchestrator) Halt(ctx context.Context, slave int) error {
	const op = "Halt"

	idx, err := o.axisIndex(op, slave)
	if err != nil {
		return err
	}

	cmd := axis.NewPendingCommand(idx, "HALT", axis.Halt)
	cmd.RequiresAck = true
	cmd.Timeout = haltTimeout

	return o.dispatch(ctx, op, slave, cmd)
}

// Stop issues STOP, completing on ack, and sets the axis's stop latch on
// success: until an intervening Reset or Enable(true), the axis rejects
// motion commands with ErrCodeLatched (spec §4.2, §9 testable property 7).
func (o *Orchestrator) Stop(ctx context.Context, slave int) error {
	const op = "Stop"

	idx, err := o.axisIndex(op, slave)
	if err != nil {
		return err
	}

	cmd := axis.NewPendingCommand(idx, "STOP", axis.AckOnly)
	cmd.RequiresAck = true
	cmd.Timeout = stopTimeout

	if err := o.dispatch(ctx, op, slave, cmd); err != nil {
		return err
	}
	o.stopLatched[idx].Store(true)
	return nil
}

// SendRaw issues an arbitrary command keyword, completing on ack, for
// callers that need a keyword this package doesn't expose a named method
// for. keyword must be at most 32 bytes (spec §4.2, §3's RxFrame layout).
func (o *Orchestrator) SendRaw(ctx context.Context, slave int, keyword string, parameter, velocity int32, acc, dec uint16, requiresAck bool, timeout time.Duration) error {
	const op = "SendRaw"

	if len(keyword) == 0 || len(keyword) > maxKeywordLength {
		return NewSlaveError(op, slave, ErrCodeInvalidArgument, "keyword must be non-empty and at most 32 bytes")
	}

	idx, err := o.axisIndex(op, slave)
	if err != nil {
		return err
	}

	cmd := axis.NewPendingCommand(idx, keyword, axis.AckOnly)
	cmd.Parameter = parameter
	cmd.Velocity = velocity
	cmd.Acceleration = acc
	cmd.Deceleration = dec
	cmd.RequiresAck = requiresAck
	cmd.Timeout = timeout

	return o.dispatch(ctx, op, slave, cmd)
}
