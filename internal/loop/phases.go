package loop

import (
	"time"

	"github.com/ecat-drives/orchestrator/internal/adapter"
	"github.com/ecat-drives/orchestrator/internal/axis"
	"github.com/ecat-drives/orchestrator/internal/events"
	"github.com/ecat-drives/orchestrator/internal/fault"
	"github.com/ecat-drives/orchestrator/internal/snapshot"
	"github.com/ecat-drives/orchestrator/internal/wire"
)

// tick runs one full cycle: phases A through I in order (spec §4.3).
func (l *Loop) tick(now time.Time) {
	l.monotonicTicks++

	l.phaseA_Ingest()
	l.phaseB_StageOutputs()

	wkc, exchangeErr := l.adapter.Exchange(l.cfg.ExchangeTimeout)
	health, healthErr := l.adapter.Health()
	if healthErr != nil && l.cfg.Logger != nil {
		l.cfg.Logger.Warnf("loop: health query failed: %v", healthErr)
	}

	l.phaseE_ClassifyWire(wkc, exchangeErr, health, now)
	l.phaseF_PerSlave(health, now)
	l.phaseG_Publish(health, now)
	l.phaseH_DrainErrors()
}

// phaseA_Ingest drains the ingest channel and installs each ready command
// (spec §4.3 Phase A).
func (l *Loop) phaseA_Ingest() {
	for {
		select {
		case cmd := <-l.ingest:
			l.installOne(cmd)
		default:
			return
		}
	}
}

func (l *Loop) installOne(cmd *axis.PendingCommand) {
	if cmd.IsCancelled() {
		return
	}
	if !l.table.InRange(cmd.Slave) {
		cmd.Resolve(axis.TimedOut, newCommandFaultError(ReasonOutOfRange, fault.UnknownFault))
		l.cfg.Observer.ObserveCommandOutcome(OutcomeFailed)
		return
	}
	if l.table.Active(cmd.Slave) != nil {
		cmd.Resolve(axis.TimedOut, newCommandError(ReasonAlreadyInFlight))
		l.cfg.Observer.ObserveCommandOutcome(OutcomeFailed)
		return
	}
	cmd.Start(time.Now())
	l.table.Install(cmd.Slave, cmd)
}

// phaseB_StageOutputs mutates rx[i] in place for every axis (spec §4.3
// Phase B) and writes it to the adapter.
func (l *Loop) phaseB_StageOutputs() {
	for i := range l.rx {
		cmd := l.table.Active(i)

		switch {
		case cmd == nil:
			l.clearToNOP(i)
		case cmd.IsCancelled():
			l.clearToNOP(i)
			cmd.Resolve(axis.Cancelled, nil)
			l.cfg.Observer.ObserveCommandOutcome(OutcomeCancelled)
			l.table.Clear(i)
		default:
			l.rx[i].SetCommand(cmd.Keyword)
			l.rx[i].Parameter = cmd.Parameter
			l.rx[i].Velocity = cmd.Velocity
			l.rx[i].Acceleration = cmd.Acceleration
			l.rx[i].Deceleration = cmd.Deceleration
			if cmd.Acked && cmd.RequiresAck {
				l.rx[i].Execute = 0
			} else {
				l.rx[i].Execute = 1
			}
		}

		if err := l.adapter.WriteRx(i+1, &l.rx[i]); err != nil && l.cfg.Logger != nil {
			l.cfg.Logger.Warnf("loop: write_rx[%d] failed: %v", i+1, err)
		}
	}
}

func (l *Loop) clearToNOP(i int) {
	l.rx[i] = wire.RxFrame{}
	l.rx[i].SetCommand("NOP")
}

// wkcOutcome classifies an exchange result per the table in spec §4.3 Phase E.
type wkcOutcome int

const (
	wkcHealthy wkcOutcome = iota
	wkcLow
	wkcFatal
	wkcUnknown
)

func classifyWKC(wkc int, health healthView) wkcOutcome {
	switch {
	case wkc >= 0 && health.LastWKC == health.GroupExpectedWKC:
		return wkcHealthy
	case wkc >= 0:
		return wkcLow
	case wkc == -10:
		return wkcLow
	case wkc == -11, wkc == -12, wkc == -13:
		return wkcFatal
	default:
		return wkcUnknown
	}
}

// healthView is the subset of adapter.HealthSnapshot classifyWKC needs;
// kept separate so tests can construct it without importing the adapter
// package's full struct.
type healthView struct {
	LastWKC          int
	GroupExpectedWKC int
}

// phaseE_ClassifyWire implements spec §4.3 Phase E and the ladder entry
// point of §4.7.
func (l *Loop) phaseE_ClassifyWire(wkc int, exchangeErr error, health adapter.HealthSnapshot, now time.Time) {
	if exchangeErr != nil && l.cfg.Logger != nil {
		l.cfg.Logger.Debugf("loop: exchange returned wkc=%d err=%v", wkc, exchangeErr)
	}

	outcome := classifyWKC(wkc, healthView{LastWKC: health.LastWKC, GroupExpectedWKC: health.GroupExpectedWKC})

	switch outcome {
	case wkcHealthy:
		l.wkcStrikes = 0
		l.fatalErrorCount = 0
	case wkcLow:
		l.fatalErrorCount = 0
		l.wkcStrikes++
		l.cfg.Observer.ObserveWKCStrike()
		l.runStrikeLadder(now)
	case wkcFatal:
		l.wkcStrikes = 0
		l.fatalErrorCount++
		l.cfg.Observer.ObserveFatalError()
		if l.fatalErrorCount >= l.cfg.FatalErrorThreshold {
			l.reinitialize(now)
			l.fatalErrorCount = 0
			l.wkcStrikes = 0
		} else {
			l.runStrikeLadder(now)
		}
	case wkcUnknown:
		l.wkcStrikes++
		l.cfg.Observer.ObserveWKCStrike()
		l.runStrikeLadder(now)
	}
}

// phaseF_PerSlave reads each slave's TX PDO, emits StatusChanged events for
// slaves with an active command whose frame changed, and evaluates active
// commands (spec §4.3 Phase F, §4.4).
func (l *Loop) phaseF_PerSlave(health adapter.HealthSnapshot, now time.Time) {
	for i := range l.tx {
		tx, err := l.adapter.ReadTx(i + 1)
		if err != nil {
			if l.cfg.Logger != nil {
				l.cfg.Logger.Warnf("loop: read_tx[%d] failed: %v", i+1, err)
			}
			continue
		}

		previous := l.tx[i]
		l.tx[i] = *tx

		cmd := l.table.Active(i)

		changed := tx.StatusBits()^previous.StatusBits() != 0 || tx.ActualPosition != previous.ActualPosition
		if changed && cmd != nil {
			l.sequence++
			l.statusBus.Publish(events.DriveStatusChangeEvent{
				Slave:                i + 1,
				Timestamp:            now,
				MonotonicTicks:       l.monotonicTicks,
				Sequence:             l.sequence,
				Current:              tx.StatusBits(),
				Previous:             previous.StatusBits(),
				ChangedBitsMask:      tx.StatusBits() ^ previous.StatusBits(),
				ActiveCommandKeyword: cmd.Keyword,
			})
		}

		if cmd != nil {
			l.evaluateCommand(i, cmd, tx, health, now)
		}
	}
}

// evaluateCommand applies spec §4.4's steps 1-5 to one axis's active
// command.
func (l *Loop) evaluateCommand(axisIdx int, cmd *axis.PendingCommand, tx *wire.TxFrame, health adapter.HealthSnapshot, now time.Time) {
	// Step 1: ack latch.
	if !cmd.Acked && tx.Flag(wire.FlagExecuteAck) {
		cmd.Acked = true
	}

	// Step 2: fault decode + RaiseFault (does not fail the command alone).
	code, hint := fault.Classify(tx)
	l.raiseFault(axisIdx, code, hint, tx.StatusBits(), health, now)

	// Step 3: AL-status gate.
	if health.ALStatusCode != 0 {
		l.raiseFault(axisIdx, fault.UnknownFault, "check AL status register; may require re-initialize", tx.StatusBits(), health, now)
		cmd.Resolve(axis.TimedOut, newCommandFaultError(ReasonALStatusFault, fault.UnknownFault))
		l.cfg.Observer.ObserveCommandOutcome(OutcomeFailed)
		l.table.Clear(axisIdx)
		return
	}

	// Steps 4-5: completion check + timeout.
	switch axis.Evaluate(cmd, tx, now) {
	case axis.Completed:
		cmd.Resolve(axis.Completed, nil)
		l.cfg.Observer.ObserveCommandOutcome(OutcomeCompleted)
		l.table.Clear(axisIdx)
	case axis.TimedOut:
		l.raiseFault(axisIdx, fault.SafetyTimeout, "command did not reach its completion criterion in time", tx.StatusBits(), health, now)
		cmd.Resolve(axis.TimedOut, newCommandFaultError(ReasonTimedOut, fault.SafetyTimeout))
		l.cfg.Observer.ObserveCommandOutcome(OutcomeTimedOut)
		l.table.Clear(axisIdx)
	case axis.Cancelled:
		cmd.Resolve(axis.Cancelled, nil)
		l.cfg.Observer.ObserveCommandOutcome(OutcomeCancelled)
		l.table.Clear(axisIdx)
	case axis.Pending:
		// stays active
	}
}

// raiseFault applies the RaiseFault throttle (spec §4.6) and, if the fault
// survives it, publishes a FaultEvent.
func (l *Loop) raiseFault(axisIdx int, code fault.Code, hint string, statusBits uint32, health adapter.HealthSnapshot, now time.Time) {
	if !l.throttle.Should(axisIdx+1, code, now) {
		return
	}
	l.cfg.Observer.ObserveFault(code)
	l.faultBus.Publish(events.FaultEvent{
		Slave:      axisIdx + 1,
		Timestamp:  now,
		StatusBits: statusBits,
		Code:       code,
		Hint:       hint,
		WKC:        health.LastWKC,
	})
}

// phaseG_Publish builds and atomically swaps a fresh StatusSnapshot (spec
// §4.3 Phase G).
func (l *Loop) phaseG_Publish(health adapter.HealthSnapshot, now time.Time) {
	last, min, max := l.stats.snapshot()

	drives := make([]snapshot.DriveState, len(l.tx))
	for i := range l.tx {
		ds := snapshot.DriveState{Slave: i + 1, Frame: l.tx[i]}
		if cmd := l.table.Active(i); cmd != nil {
			ds.ActiveKeyword = cmd.Keyword
		}
		drives[i] = ds
	}

	l.publisher.Publish(&snapshot.StatusSnapshot{
		Timestamp: now,
		Health: health,
		Drives:    drives,
		CycleTime: last,
		MinCycle:  min,
		MaxCycle:  max,
	})
}

// phaseH_DrainErrors drains and logs adapter-level error text (spec §4.3
// Phase H).
func (l *Loop) phaseH_DrainErrors() {
	if text := l.adapter.DrainErrors(); text != "" && l.cfg.Logger != nil {
		l.cfg.Logger.Errorf("loop: adapter error: %s", text)
	}
}
