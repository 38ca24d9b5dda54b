// Package snapshot publishes an immutable StatusSnapshot each tick using an
// atomic pointer swap: readers on any goroutine see either the prior
// snapshot or the new one, never a torn mix of the two (spec §3, §4.6).
//
// Grounded on the teacher's Metrics.Snapshot() in metrics.go, which copies
// live atomic counters into a plain value so a reader never observes a
// field mid-update. Here the "copy" step moves up a level: the loop builds
// a brand-new StatusSnapshot value each tick and swaps it in, rather than
// copying out of shared live state, so no lock is needed on the read path
// at all (upgrading the teacher's "copy under consistent reads" to "swap a
// whole immutable value" per the lock-free requirement in spec §4.6).
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/ecat-drives/orchestrator/internal/adapter"
	"github.com/ecat-drives/orchestrator/internal/wire"
)

// DriveState is one slave's decoded process data as carried in a
// StatusSnapshot (spec §3: "drive_states: sequence of TxFrame").
type DriveState struct {
	Slave          int
	Frame          wire.TxFrame
	ActiveKeyword  string // empty when the axis has no active command
}

// StatusSnapshot is the immutable value published once per tick (spec §3).
// Callers must never mutate a StatusSnapshot obtained from a Publisher;
// Publish always hands out a freshly built value specifically so callers
// don't have to defend against that.
type StatusSnapshot struct {
	Timestamp  time.Time
	Health     adapter.HealthSnapshot
	Drives     []DriveState
	CycleTime  time.Duration
	MinCycle   time.Duration
	MaxCycle   time.Duration
}

// Publisher holds the latest StatusSnapshot behind an atomic pointer.
// Publish is called by the loop goroutine only; Load is safe from any
// goroutine and never blocks or allocates (spec §4.2: "GetStatus():
// returns the latest StatusSnapshot without blocking or allocating").
type Publisher struct {
	current atomic.Pointer[StatusSnapshot]
}

// NewPublisher creates a Publisher with an empty initial snapshot so Load
// never returns nil before the loop's first tick.
func NewPublisher() *Publisher {
	p := &Publisher{}
	p.current.Store(&StatusSnapshot{})
	return p
}

// Publish atomically replaces the published snapshot. snap must not be
// referenced by the caller afterward.
func (p *Publisher) Publish(snap *StatusSnapshot) {
	p.current.Store(snap)
}

// Load returns the most recently published snapshot.
func (p *Publisher) Load() *StatusSnapshot {
	return p.current.Load()
}
