package orchestrator

import (
	"time"

	"github.com/ecat-drives/orchestrator/internal/fault"
	"github.com/ecat-drives/orchestrator/internal/loop"
)

// observerBridge implements loop.Observer and translates each call into the
// root package's own Observer shape (distinct CommandOutcome/DriveErrorCode
// types, per internal/loop's note on avoiding an import cycle back to this
// package). It always records into o.metrics and, when EnableCycleTraceLogging
// is set, additionally logs every tick's cycle time at debug level.
type observerBridge struct {
	o *Orchestrator
}

var _ loop.Observer = (*observerBridge)(nil)

func (b *observerBridge) ObserveTick(cycleTime time.Duration) {
	b.o.metrics.RecordTick(cycleTime)
	if b.o.opts.EnableCycleTraceLogging {
		b.o.logger.Debugf("loop: cycle took %s", cycleTime)
	}
}

func (b *observerBridge) ObserveFault(code fault.Code) {
	b.o.metrics.RecordFault(driveErrorCodeFromFault(code))
}

func (b *observerBridge) ObserveCommandOutcome(outcome loop.CommandOutcome) {
	b.o.metrics.RecordCommandOutcome(commandOutcomeFromLoop(outcome))
}

func (b *observerBridge) ObserveWKCStrike() {
	b.o.metrics.WKCStrikes.Add(1)
}

func (b *observerBridge) ObserveFatalError() {
	b.o.metrics.FatalErrors.Add(1)
}

func (b *observerBridge) ObserveRecovery(succeeded bool) {
	if succeeded {
		b.o.metrics.Recoveries.Add(1)
	}
}

func (b *observerBridge) ObserveReinitialize() {
	b.o.metrics.Reinitializations.Add(1)
}

func commandOutcomeFromLoop(outcome loop.CommandOutcome) CommandOutcome {
	switch outcome {
	case loop.OutcomeCompleted:
		return OutcomeCompleted
	case loop.OutcomeTimedOut:
		return OutcomeTimedOut
	case loop.OutcomeCancelled:
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
