// Package orchestrator is the public entry point for driving a fieldbus
// network of piezo-motion drives: one periodic I/O loop per process,
// per-axis command dispatch serialized through an axis gate, and a
// lock-free snapshot/event surface for observers.
//
// Grounded on the teacher's top-level backend.go: a single constructor
// wires a capability-interface backend (here, adapter.Adapter) into a
// worker that owns the hot path, while the public type exposes a small,
// blocking request/response API plus a background event surface. The
// difference this domain forces is the worker's cadence: the teacher reacts
// to queue submissions, this one reacts to a fixed-period fieldbus cycle,
// so Orchestrator's operations enqueue into the cycle rather than execute
// inline.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ecat-drives/orchestrator/internal/adapter"
	"github.com/ecat-drives/orchestrator/internal/axis"
	"github.com/ecat-drives/orchestrator/internal/fault"
	"github.com/ecat-drives/orchestrator/internal/logging"
	"github.com/ecat-drives/orchestrator/internal/loop"
)

// Orchestrator drives one fieldbus network. The zero value is not usable;
// construct with New.
type Orchestrator struct {
	iface   string
	opts    Options
	adapter adapter.Adapter
	loop    *loop.Loop
	metrics *Metrics
	logger  *logging.Logger

	mu          sync.Mutex
	started     bool
	stopLatched []atomic.Bool
}

// New constructs an Orchestrator bound to the given network interface name
// and Adapter. Call Initialize before issuing any operation.
func New(iface string, a adapter.Adapter, opts Options) *Orchestrator {
	opts = opts.withDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	o := &Orchestrator{
		iface:   iface,
		opts:    opts,
		adapter: a,
		metrics: NewMetrics(),
		logger:  logger,
	}
	o.loop = loop.New(a, opts.toLoopConfig(iface, &observerBridge{o: o}))
	return o
}

// Initialize opens the adapter, allocates per-axis state, and starts the
// I/O loop (spec §4.1). Must be called exactly once before any operation.
func (o *Orchestrator) Initialize() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return NewError("Initialize", ErrCodeAlreadyInitialized, "orchestrator already initialized")
	}

	n, err := o.loop.Initialize()
	if err != nil {
		return NewError("Initialize", ErrCodeAdapterOpenFailed, err.Error())
	}
	if n == 0 {
		return NewError("Initialize", ErrCodeNoSlaves, "adapter reported zero slaves")
	}

	o.stopLatched = make([]atomic.Bool, n)
	o.loop.Start()
	o.started = true
	return nil
}

// Shutdown stops the I/O loop, fails every in-flight command with
// ErrCodeSessionEnded, and releases the adapter (spec §4.1).
func (o *Orchestrator) Shutdown() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		return NewError("Shutdown", ErrCodeNotInitialized, "orchestrator not initialized")
	}

	o.loop.Stop()
	o.loop.FailAllActive(loop.ReasonSessionEnded)

	if err := o.adapter.Shutdown(); err != nil {
		o.logger.Warnf("orchestrator: adapter shutdown: %v", err)
	}

	o.metrics.Stop()
	o.started = false
	return nil
}

// SlaveCount reports the number of axes discovered at Initialize.
func (o *Orchestrator) SlaveCount() int {
	return o.loop.SlaveCount()
}

// Metrics returns the orchestrator's live metrics counters.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// GetStatus returns the latest published StatusSnapshot without blocking or
// allocating beyond the copy this call itself performs (spec §4.2, §4.6).
func (o *Orchestrator) GetStatus() StatusSnapshot {
	latched := make([]bool, len(o.stopLatched))
	for i := range o.stopLatched {
		latched[i] = o.stopLatched[i].Load()
	}
	return fromInternalSnapshot(o.loop.Publisher().Load(), latched)
}

// axisIndex converts a 1-based slave number into a validated 0-based index.
func (o *Orchestrator) axisIndex(op string, slave int) (int, error) {
	idx := slave - 1
	if idx < 0 || idx >= o.loop.SlaveCount() {
		return 0, NewSlaveError(op, slave, ErrCodeSlaveOutOfRange, "slave out of range")
	}
	return idx, nil
}

// dispatch runs the common install/await/translate sequence for every
// operation that submits a PendingCommand (spec §4.2 step-by-step): acquire
// the axis gate, submit, await the completion promise (honoring ctx
// cancellation), then translate the loop's result into a public error.
func (o *Orchestrator) dispatch(ctx context.Context, op string, slave int, cmd *axis.PendingCommand) error {
	idx, err := o.axisIndex(op, slave)
	if err != nil {
		return err
	}

	if !o.started {
		return NewSlaveError(op, slave, ErrCodeNotInitialized, "orchestrator not initialized")
	}

	table := o.loop.Table()
	table.Lock(idx)
	defer table.Unlock(idx)

	o.metrics.CommandsDispatched.Add(1)
	o.loop.Submit(cmd)

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}

	result, ok := cmd.Await(done)
	if !ok {
		cmd.Cancel()
		return NewSlaveError(op, slave, ErrCodeCancelled, "context cancelled before the command completed")
	}
	return o.translateResult(op, slave, result)
}

func (o *Orchestrator) translateResult(op string, slave int, result axis.Result) error {
	switch result.Outcome {
	case axis.Completed:
		return nil
	case axis.Cancelled:
		return NewSlaveError(op, slave, ErrCodeCancelled, "command was cancelled")
	default:
		ce, ok := result.Err.(*loop.CommandError)
		if !ok || ce == nil {
			return NewSlaveError(op, slave, ErrCodeNotReady, "command failed")
		}
		if ce.Fault != "" && ce.Fault != fault.None {
			return WrapDriveError(op, slave, &DriveError{
				Code: driveErrorCodeFromFault(ce.Fault),
				Msg:  string(ce.Reason),
			})
		}
		return reasonError(op, slave, ce.Reason)
	}
}

func reasonError(op string, slave int, reason loop.Reason) error {
	switch reason {
	case loop.ReasonOutOfRange:
		return NewSlaveError(op, slave, ErrCodeSlaveOutOfRange, string(reason))
	case loop.ReasonAlreadyInFlight:
		return NewSlaveError(op, slave, ErrCodeAlreadyInFlight, string(reason))
	case loop.ReasonALStatusFault:
		return NewSlaveError(op, slave, ErrCodeNotReady, string(reason))
	case loop.ReasonSessionRestarted:
		return NewSlaveError(op, slave, ErrCodeSessionRestarted, string(reason))
	case loop.ReasonSessionEnded:
		return NewSlaveError(op, slave, ErrCodeSessionEnded, string(reason))
	default:
		return NewSlaveError(op, slave, ErrCodeNotReady, string(reason))
	}
}

// currentDriveState reads the latest published decode for the axis at the
// 0-based index idx. Used for the idempotency/precondition checks that must not
// reach into the loop's internal tx/rx slices directly (spec §4.2's
// preconditions column, §9's testable properties 7, 9, 10).
func (o *Orchestrator) currentDriveState(idx int) (DriveState, bool) {
	snap := o.loop.Publisher().Load()
	if idx >= len(snap.Drives) {
		return DriveState{}, false
	}
	return driveStateFromInternal(snap.Drives[idx]), true
}
