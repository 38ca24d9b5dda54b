// Package axis owns the per-axis active-command table: one
// CompletionCriterion-tagged PendingCommand slot per slave, plus the
// edge-detection scratch PositionReached needs and the gate that serializes
// callers targeting the same axis (spec §3, §4.2, §4.4).
//
// The shape mirrors the teacher's per-tag TagState/tagMutexes split in
// internal/queue/runner.go: there, one io_uring tag owns at most one
// in-flight kernel command and a dedicated mutex; here, one drive axis owns
// at most one in-flight PendingCommand and a dedicated gate. Unlike the
// teacher's tag state, a PendingCommand's slot is touched only by the loop
// goroutine once installed — the gate exists purely to serialize the
// callers that want to install the next one.
package axis

import (
	"sync"
	"sync/atomic"
	"time"
)

// CompletionCriterion tags how the loop decides a PendingCommand is done
// (spec §3, §4.4).
type CompletionCriterion int

const (
	AckOnly CompletionCriterion = iota
	AckWithTimeout
	PositionReached
	Indexed
	Enabled
	Disabled
	Halt
)

// Outcome is what evaluating a PendingCommand against a tick produced.
type Outcome int

const (
	Pending Outcome = iota
	Completed
	TimedOut
	Cancelled
)

// PendingCommand is one in-flight request against a single axis (spec §3).
// Fields after the dashed comment are mutated only by the loop goroutine
// once the command has been installed into an axis's slot; nothing else
// may touch them.
type PendingCommand struct {
	Slave        int
	Keyword      string
	Parameter    int32
	Velocity     int32
	Acceleration uint16
	Deceleration uint16
	Timeout      time.Duration
	RequiresAck  bool
	Criterion    CompletionCriterion

	// cancelled is written by the caller's cancellation registration and
	// read by the loop goroutine, so it alone among these fields is not
	// loop-exclusive; it is atomic for that reason.
	cancelled atomic.Bool

	// --- loop-owned from here down ---

	Acked       bool
	StartedAt   time.Time
	edgeInit    bool
	prevPosOK   bool
	prevMotorOn bool

	done chan Result
}

// Result is what a PendingCommand's completion promise resolves to.
type Result struct {
	Outcome Outcome
	Err     error
}

// NewPendingCommand builds a command with its completion promise ready to
// await. The caller holds the returned value only long enough to send it to
// ingest and then call Await; the loop takes over all other fields once it
// installs the command (Phase A, spec §4.3).
func NewPendingCommand(slave int, keyword string, criterion CompletionCriterion) *PendingCommand {
	return &PendingCommand{
		Slave:     slave,
		Keyword:   keyword,
		Criterion: criterion,
		done:      make(chan Result, 1),
	}
}

// Cancel marks the command cancelled. Safe to call from any goroutine — the
// caller's cancellation registration calls this concurrently with the loop
// goroutine reading IsCancelled, so the flag is an atomic.Bool rather than a
// plain bool (spec §5: "Caller cancellation triggers the command's
// cancellation registration, which sets cancelled").
func (c *PendingCommand) Cancel() {
	c.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called. Safe to call from any
// goroutine.
func (c *PendingCommand) IsCancelled() bool {
	return c.cancelled.Load()
}

// Start resets the command for the tick it becomes active on (spec §4.3
// Phase A: "install it in the active-command slot and call Start()").
func (c *PendingCommand) Start(now time.Time) {
	c.Acked = false
	c.StartedAt = now
	c.edgeInit = false
	c.prevPosOK = false
	c.prevMotorOn = false
}

// Resolve delivers the command's final Result exactly once; later calls are
// no-ops, matching the "destroyed when the loop completes or fails it"
// single-writer lifecycle (spec §3).
func (c *PendingCommand) Resolve(outcome Outcome, err error) {
	select {
	case c.done <- Result{Outcome: outcome, Err: err}:
	default:
	}
}

// Await blocks until the loop resolves this command or ctxDone fires,
// whichever comes first. Passing a nil ctxDone waits unconditionally.
func (c *PendingCommand) Await(ctxDone <-chan struct{}) (Result, bool) {
	select {
	case r := <-c.done:
		return r, true
	case <-ctxDone:
		return Result{}, false
	}
}

// SeedEdges records this tick's PositionReached/MotorOn bits as the
// baseline for next tick's edge detection, and reports whether this was the
// first observation (spec §4.4.4: "seeded on the first evaluation
// (returning Pending) so an axis that is already reported as
// PositionReached still waits for a fresh edge").
func (c *PendingCommand) SeedEdges(posReached, motorOn bool) (firstObservation bool) {
	if !c.edgeInit {
		c.edgeInit = true
		c.prevPosOK = posReached
		c.prevMotorOn = motorOn
		return true
	}
	return false
}

// PositionReachedEdge reports a rising edge of PositionReached since the
// last tick, updating the scratch baseline for the next call.
func (c *PendingCommand) PositionReachedEdge(posReached bool) bool {
	rising := posReached && !c.prevPosOK
	c.prevPosOK = posReached
	return rising
}

// MotorOnFallingEdge reports a falling edge of MotorOn since the last tick,
// updating the scratch baseline for the next call.
func (c *PendingCommand) MotorOnFallingEdge(motorOn bool) bool {
	falling := !motorOn && c.prevMotorOn
	c.prevMotorOn = motorOn
	return falling
}

// Table holds one PendingCommand slot and one gate per axis. The gate
// serializes callers wanting to install the next command on an axis (spec
// §4.2 step 2: "Acquires the axis gate ... the loop does not take this gate
// — it owns the slot directly"); the slot itself is read and written only
// by the loop goroutine after installation.
type Table struct {
	gates []*sync.Mutex
	slots []*PendingCommand
}

// NewTable allocates a Table sized for the given slave count (1-based
// external indexing, 0-based internal arrays per spec §3's invariant).
func NewTable(slaveCount int) *Table {
	t := &Table{
		gates: make([]*sync.Mutex, slaveCount),
		slots: make([]*PendingCommand, slaveCount),
	}
	for i := range t.gates {
		t.gates[i] = &sync.Mutex{}
	}
	return t
}

// Len reports the configured slave count.
func (t *Table) Len() int {
	return len(t.slots)
}

// InRange reports whether the given 0-based axis index is valid.
func (t *Table) InRange(axis int) bool {
	return axis >= 0 && axis < len(t.slots)
}

// Lock acquires the axis gate for axis. Callers only; the loop never calls
// this.
func (t *Table) Lock(axis int) {
	t.gates[axis].Lock()
}

// Unlock releases the axis gate for axis.
func (t *Table) Unlock(axis int) {
	t.gates[axis].Unlock()
}

// Active returns the axis's current active command, or nil.
func (t *Table) Active(axis int) *PendingCommand {
	return t.slots[axis]
}

// Install places cmd into axis's slot, overwriting whatever was there. Only
// the loop calls this, and only after confirming the slot was empty (spec
// §4.3 Phase A: a second enqueue against a busy axis fails the newcomer
// instead of reaching here).
func (t *Table) Install(axis int, cmd *PendingCommand) {
	t.slots[axis] = cmd
}

// Clear empties axis's slot.
func (t *Table) Clear(axis int) {
	t.slots[axis] = nil
}

// Reset drops every active command without resolving them, used by
// Reinitialize after the caller has already resolved each one with a
// session-restarted error (spec §4.7).
func (t *Table) Reset() {
	for i := range t.slots {
		t.slots[i] = nil
	}
}

// Resize grows or shrinks the table to a new slave count. Gates for axes
// that survive the resize keep their original *sync.Mutex object, so a
// caller already blocked on Lock(axis) from before the resize contends with
// the same gate the post-resize loop honors; only slots are discarded,
// since an active command is never valid across a Reinitialize (spec
// §4.7).
func (t *Table) Resize(slaveCount int) {
	gates := make([]*sync.Mutex, slaveCount)
	for i := range gates {
		if i < len(t.gates) {
			gates[i] = t.gates[i]
		} else {
			gates[i] = &sync.Mutex{}
		}
	}
	t.gates = gates
	t.slots = make([]*PendingCommand, slaveCount)
}
