package loop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecat-drives/orchestrator/internal/axis"
	"github.com/ecat-drives/orchestrator/internal/fault"
	"github.com/ecat-drives/orchestrator/internal/wire"
	"github.com/ecat-drives/orchestrator/simulated"
)

type recordingObserver struct {
	ticks       int
	faults      []fault.Code
	outcomes    []CommandOutcome
	wkcStrikes  int
	fatalErrors int
	recoveries  []bool
	reinitCount int
}

func (o *recordingObserver) ObserveTick(time.Duration)              { o.ticks++ }
func (o *recordingObserver) ObserveFault(code fault.Code)           { o.faults = append(o.faults, code) }
func (o *recordingObserver) ObserveCommandOutcome(c CommandOutcome) { o.outcomes = append(o.outcomes, c) }
func (o *recordingObserver) ObserveWKCStrike()                      { o.wkcStrikes++ }
func (o *recordingObserver) ObserveFatalError()                     { o.fatalErrors++ }
func (o *recordingObserver) ObserveRecovery(ok bool)                { o.recoveries = append(o.recoveries, ok) }
func (o *recordingObserver) ObserveReinitialize()                   { o.reinitCount++ }

func newTestLoop(t *testing.T, slaves int) (*Loop, *simulated.Adapter, *recordingObserver) {
	t.Helper()
	a := simulated.New(slaves)
	obs := &recordingObserver{}
	l := New(a, Config{
		Interface:             "sim0",
		CyclePeriod:           time.Millisecond,
		WKCRecoveryThreshold:  2,
		FatalErrorThreshold:   2,
		RecoverySettleDelay:   time.Millisecond,
		ReinitializationDelay: time.Millisecond,
		FaultRepeatInterval:   time.Minute,
		Observer:              obs,
	})
	_, err := l.Initialize()
	require.NoError(t, err)
	return l, a, obs
}

func TestInitializeAllocatesTable(t *testing.T) {
	l, _, _ := newTestLoop(t, 3)
	assert.Equal(t, 3, l.SlaveCount())
	assert.Equal(t, 3, l.Table().Len())
}

func TestTickInstallsSubmittedCommand(t *testing.T) {
	l, _, _ := newTestLoop(t, 1)

	cmd := axis.NewPendingCommand(0, "ENABLE", axis.AckOnly)
	l.table.Lock(0)
	l.Submit(cmd)
	l.table.Unlock(0)

	l.tick(time.Now())

	assert.Same(t, cmd, l.table.Active(0))
	assert.Equal(t, "ENABLE", l.rx[0].CommandString())
}

func TestInstallRejectsOutOfRangeAxis(t *testing.T) {
	l, _, obs := newTestLoop(t, 1)

	cmd := axis.NewPendingCommand(5, "ENABLE", axis.AckOnly)
	l.Submit(cmd)
	l.tick(time.Now())

	res, ok := cmd.Await(nil)
	require.True(t, ok)
	assert.Equal(t, axis.TimedOut, res.Outcome)
	require.Len(t, obs.outcomes, 1)
	assert.Equal(t, OutcomeFailed, obs.outcomes[0])
}

func TestInstallRejectsAlreadyActiveAxis(t *testing.T) {
	l, _, _ := newTestLoop(t, 1)

	first := axis.NewPendingCommand(0, "ENABLE", axis.AckOnly)
	l.Submit(first)
	l.tick(time.Now())

	second := axis.NewPendingCommand(0, "DISABLE", axis.AckOnly)
	l.Submit(second)
	l.tick(time.Now())

	res, ok := second.Await(nil)
	require.True(t, ok)
	assert.Equal(t, axis.TimedOut, res.Outcome)
}

func TestAckOnlyCommandCompletesOnAckBit(t *testing.T) {
	l, a, obs := newTestLoop(t, 1)

	cmd := axis.NewPendingCommand(0, "ENABLE", axis.AckOnly)
	l.Submit(cmd)
	l.tick(time.Now())

	a.InjectFault(1, wire.FlagExecuteAck, true)

	l.tick(time.Now())

	res, ok := cmd.Await(nil)
	require.True(t, ok)
	assert.Equal(t, axis.Completed, res.Outcome)
	assert.Nil(t, l.table.Active(0))
	assert.Contains(t, obs.outcomes, OutcomeCompleted)
}

func TestWKCStrikeLadderTriggersRecoverThenReinitialize(t *testing.T) {
	l, a, obs := newTestLoop(t, 1)

	a.InjectWKC(0)
	l.tick(time.Now())
	l.tick(time.Now())

	assert.NotZero(t, obs.wkcStrikes)
	require.NotEmpty(t, obs.recoveries)

	a.SetRecoverResult(-1)
	a.InjectWKC(0)
	l.wkcStrikes = l.cfg.WKCRecoveryThreshold
	l.tick(time.Now())

	assert.NotZero(t, obs.reinitCount)
}

func TestReinitializeFailsActiveCommandsAndKeepsSlaveCount(t *testing.T) {
	l, _, obs := newTestLoop(t, 2)

	cmd := axis.NewPendingCommand(1, "ENABLE", axis.AckOnly)
	l.Submit(cmd)
	l.tick(time.Now())

	l.reinitialize(time.Now())

	res, ok := cmd.Await(nil)
	require.True(t, ok)
	assert.Equal(t, axis.TimedOut, res.Outcome)
	assert.Equal(t, 1, obs.reinitCount)
	assert.Equal(t, 2, l.SlaveCount())
}

func TestStopDrainsLoopCleanly(t *testing.T) {
	l, _, _ := newTestLoop(t, 1)
	l.Start()
	time.Sleep(5 * time.Millisecond)
	l.Stop()
}
