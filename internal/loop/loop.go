// Package loop implements the periodic I/O loop at the center of the
// orchestrator: one dedicated worker pinned to an OS thread, executing the
// tick phases of spec §4.3 in order, forever, until Stop is called.
//
// Grounded on go-ublk/internal/queue/runner.go's ioLoop/processRequests
// structure: pin with runtime.LockOSThread, optionally set CPU affinity via
// golang.org/x/sys/unix.SchedSetaffinity, then loop draining and processing
// work until ctx.Done(). The teacher's loop reacts to io_uring completions;
// this one reacts to a periodic ticker, since a fieldbus cycle is a fixed
// cadence rather than an event stream — the one structural change the
// different domain actually requires.
package loop

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ecat-drives/orchestrator/internal/adapter"
	"github.com/ecat-drives/orchestrator/internal/axis"
	"github.com/ecat-drives/orchestrator/internal/events"
	"github.com/ecat-drives/orchestrator/internal/fault"
	"github.com/ecat-drives/orchestrator/internal/snapshot"
	"github.com/ecat-drives/orchestrator/internal/wire"
)

// Observer is the narrow metrics capability the loop depends on, mirroring
// root package Observer's method set without importing that package
// (avoiding the import cycle root package orchestrator.go would otherwise
// create by depending on this package to run the loop).
type Observer interface {
	ObserveTick(cycleTime time.Duration)
	ObserveFault(code fault.Code)
	ObserveCommandOutcome(outcome CommandOutcome)
	ObserveWKCStrike()
	ObserveFatalError()
	ObserveRecovery(succeeded bool)
	ObserveReinitialize()
}

// CommandOutcome mirrors root package CommandOutcome; duplicated here for
// the same reason as Observer.
type CommandOutcome int

const (
	OutcomeCompleted CommandOutcome = iota
	OutcomeFailed
	OutcomeTimedOut
	OutcomeCancelled
)

type noopObserver struct{}

func (noopObserver) ObserveTick(time.Duration)            {}
func (noopObserver) ObserveFault(fault.Code)              {}
func (noopObserver) ObserveCommandOutcome(CommandOutcome) {}
func (noopObserver) ObserveWKCStrike()                    {}
func (noopObserver) ObserveFatalError()                   {}
func (noopObserver) ObserveRecovery(bool)                 {}
func (noopObserver) ObserveReinitialize()                 {}

// Config configures a Loop. Zero-valued duration and threshold fields fall
// back via withDefaults to literal defaults equal to the root package's
// Default* constants.
type Config struct {
	Interface             string
	CyclePeriod           time.Duration
	ExchangeTimeout       time.Duration
	WKCRecoveryThreshold  int
	FatalErrorThreshold   int
	RecoveryTimeout       time.Duration
	RecoverySettleDelay   time.Duration
	ReinitializationDelay time.Duration
	FaultRepeatInterval   time.Duration
	CPUAffinity           []int
	Logger                adapter.Logger
	Observer              Observer
}

// cycleStats tracks last/min/max cycle time for the published snapshot,
// independent of whatever an Observer also records.
type cycleStats struct {
	mu       sync.Mutex
	last     time.Duration
	min      time.Duration
	max      time.Duration
}

func (s *cycleStats) record(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = d
	if s.min == 0 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
}

func (s *cycleStats) snapshot() (last, min, max time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.min, s.max
}

// Loop is the periodic I/O loop. Initialize must be called before Start,
// and the same Loop value must never be started twice concurrently.
type Loop struct {
	cfg     Config
	adapter adapter.Adapter

	table     *axis.Table
	publisher *snapshot.Publisher
	statusBus *events.Bus[events.DriveStatusChangeEvent]
	faultBus  *events.Bus[events.FaultEvent]
	throttle  *fault.Throttle

	rx []wire.RxFrame
	tx []wire.TxFrame

	ingest chan *axis.PendingCommand

	stats cycleStats

	sequence       uint64
	monotonicTicks uint64

	wkcStrikes      int
	fatalErrorCount int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Loop bound to the given adapter. Call Initialize before
// Start to perform the first bus initialization (spec §4.1).
func New(a adapter.Adapter, cfg Config) *Loop {
	cfg = cfg.withDefaults()

	l := &Loop{
		cfg:       cfg,
		adapter:   a,
		publisher: snapshot.NewPublisher(),
		statusBus: events.NewBus[events.DriveStatusChangeEvent](),
		faultBus:  events.NewBus[events.FaultEvent](),
		throttle:  fault.NewThrottle(cfg.FaultRepeatInterval),
		ingest:    make(chan *axis.PendingCommand, ingestBufferSize),
		done:      make(chan struct{}),
	}
	return l
}

const ingestBufferSize = 256

func (c Config) withDefaults() Config {
	if c.CyclePeriod <= 0 {
		c.CyclePeriod = 2 * time.Millisecond
	}
	if c.ExchangeTimeout <= 0 {
		c.ExchangeTimeout = 100 * time.Millisecond
	}
	if c.WKCRecoveryThreshold <= 0 {
		c.WKCRecoveryThreshold = 3
	}
	if c.FatalErrorThreshold <= 0 {
		c.FatalErrorThreshold = 3
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 500 * time.Millisecond
	}
	if c.RecoverySettleDelay <= 0 {
		c.RecoverySettleDelay = 20 * time.Millisecond
	}
	if c.ReinitializationDelay <= 0 {
		c.ReinitializationDelay = 200 * time.Millisecond
	}
	if c.FaultRepeatInterval <= 0 {
		c.FaultRepeatInterval = 5 * time.Second
	}
	if c.Observer == nil {
		c.Observer = noopObserver{}
	}
	return c
}

// Initialize opens the adapter and allocates per-axis state. Must be called
// exactly once before Start (spec §4.1).
func (l *Loop) Initialize() (slaveCount int, err error) {
	n, err := l.adapter.Initialize(l.cfg.Interface)
	if err != nil {
		return 0, err
	}
	l.allocate(n)
	return n, nil
}

// allocate (re)sizes every per-axis array. When a table already exists
// (Reinitialize observed a changed slave count) it is resized in place
// rather than replaced, so an axis gate a caller acquired before the
// reinitialize remains the gate the post-reinitialize loop honors too.
func (l *Loop) allocate(slaveCount int) {
	if l.table == nil {
		l.table = axis.NewTable(slaveCount)
	} else {
		l.table.Resize(slaveCount)
	}
	l.rx = make([]wire.RxFrame, slaveCount)
	l.tx = make([]wire.TxFrame, slaveCount)
	for i := range l.rx {
		l.rx[i].SetCommand("NOP")
	}
}

// SlaveCount reports the current number of allocated axes.
func (l *Loop) SlaveCount() int {
	if l.table == nil {
		return 0
	}
	return l.table.Len()
}

// Table exposes the axis table so the public API can take axis gates and
// install commands (spec §4.2 steps 2-3). The loop never locks these gates
// itself.
func (l *Loop) Table() *axis.Table {
	return l.table
}

// Publisher exposes the snapshot publisher for GetStatus.
func (l *Loop) Publisher() *snapshot.Publisher {
	return l.publisher
}

// StatusChanges returns a subscription to DriveStatusChangeEvent.
func (l *Loop) StatusChanges() (<-chan events.DriveStatusChangeEvent, func()) {
	return l.statusBus.Subscribe()
}

// Faults returns a subscription to FaultEvent.
func (l *Loop) Faults() (<-chan events.FaultEvent, func()) {
	return l.faultBus.Subscribe()
}

// Submit enqueues a command for installation on the next tick's Phase A
// (spec §4.2 step 3). It never blocks on the axis gate itself — the caller
// must already hold it.
func (l *Loop) Submit(cmd *axis.PendingCommand) {
	l.ingest <- cmd
}

// Start launches a goroutine that pins itself to an OS thread and runs the
// tick loop until Stop. It returns immediately and reports no errors; adapter
// failures during ticks are handled by the loop itself.
func (l *Loop) Start() {
	l.ctx, l.cancel = context.WithCancel(context.Background())
	go l.run()
}

// Stop signals the loop to exit and blocks until it has (spec §4.1
// shutdown: "signals the loop to stop, awaits it").
func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	<-l.done
}

// FailAllActive resolves every currently active command with reason and
// clears the table, used both by shutdown (ReasonSessionEnded) and by
// Reinitialize (ReasonSessionRestarted).
func (l *Loop) FailAllActive(reason Reason) {
	for i := 0; i < l.table.Len(); i++ {
		if cmd := l.table.Active(i); cmd != nil {
			cmd.Resolve(axis.TimedOut, newCommandError(reason))
			l.cfg.Observer.ObserveCommandOutcome(OutcomeFailed)
		}
	}
	l.table.Reset()
}

func (l *Loop) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	if len(l.cfg.CPUAffinity) > 0 {
		var mask unix.CPUSet
		mask.Set(l.cfg.CPUAffinity[0])
		if err := unix.SchedSetaffinity(0, &mask); err != nil && l.cfg.Logger != nil {
			l.cfg.Logger.Warnf("loop: failed to set CPU affinity: %v", err)
		}
	}

	ticker := time.NewTicker(l.cfg.CyclePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case now := <-ticker.C:
			start := time.Now()
			l.tick(now)
			l.stats.record(time.Since(start))
			l.cfg.Observer.ObserveTick(time.Since(start))
		}
	}
}
