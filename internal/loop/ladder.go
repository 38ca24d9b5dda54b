package loop

import (
	"time"

	"go.uber.org/multierr"
)

// reinitBackoff is paused after a failed Initialize attempt during
// reinitialize, before returning control to the next tick's ladder check,
// so a persistently down bus doesn't get hammered once per cycle.
const reinitBackoff = 200 * time.Millisecond

// runStrikeLadder implements spec §4.7's "else if wkc_strikes >= threshold"
// branch: call Recover, settle on success, force Reinitialize on failure.
func (l *Loop) runStrikeLadder(now time.Time) {
	if l.wkcStrikes < l.cfg.WKCRecoveryThreshold {
		return
	}

	n, err := l.adapter.Recover(l.cfg.RecoveryTimeout)
	if err != nil && l.cfg.Logger != nil {
		l.cfg.Logger.Warnf("loop: recover failed: %v", err)
	}

	if n > 0 {
		l.cfg.Observer.ObserveRecovery(true)
		time.Sleep(l.cfg.RecoverySettleDelay)
		l.wkcStrikes = 0
		return
	}

	l.cfg.Observer.ObserveRecovery(false)
	l.reinitialize(now)
	l.wkcStrikes = 0
}

// reinitialize implements spec §4.7's Reinitialize: fail every active
// command, tear down the adapter, pause, and bring it back up. If the
// slave count changed, per-axis state is reallocated.
func (l *Loop) reinitialize(now time.Time) {
	l.cfg.Observer.ObserveReinitialize()
	l.FailAllActive(ReasonSessionRestarted)

	var combined error
	combined = multierr.Append(combined, l.adapter.Shutdown())

	time.Sleep(l.cfg.ReinitializationDelay)

	n, err := l.adapter.Initialize(l.cfg.Interface)
	combined = multierr.Append(combined, err)

	if combined != nil && l.cfg.Logger != nil {
		l.cfg.Logger.Warnf("loop: reinitialize encountered errors: %v", combined)
	}

	if err != nil {
		if l.cfg.Logger != nil {
			l.cfg.Logger.Errorf("loop: reinitialize failed, will retry on the next unhealthy cycle")
		}
		time.Sleep(reinitBackoff)
		return
	}

	if n != l.table.Len() {
		l.allocate(n)
	}
}
