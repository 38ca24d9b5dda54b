package orchestrator

import "time"

// Named defaults for Options (spec §6). Every timing constant gets a name
// and a comment rather than a bare literal, matching the teacher's practice
// in its own constants table.
const (
	// DefaultCyclePeriod is the I/O loop's tick period. 2 ms sits in the
	// middle of the spec's 1-5 ms cadence window.
	DefaultCyclePeriod = 2 * time.Millisecond

	// DefaultExchangeTimeout bounds a single adapter.Exchange call.
	DefaultExchangeTimeout = 100 * time.Millisecond

	// DefaultWKCRecoveryThreshold is the number of consecutive unhealthy
	// cycles tolerated before the ladder calls Recover.
	DefaultWKCRecoveryThreshold = 3

	// DefaultFatalErrorThreshold is the number of consecutive fatal
	// exchange errors tolerated before the ladder forces Reinitialize.
	DefaultFatalErrorThreshold = 3

	// DefaultRecoveryTimeout bounds a single adapter.Recover call.
	DefaultRecoveryTimeout = 500 * time.Millisecond

	// recoverySettleDelay is the pause after a successful Recover before
	// resuming normal ticking, giving the bus a moment to settle.
	recoverySettleDelay = 20 * time.Millisecond

	// DefaultReinitializationDelay is the pause between adapter.Shutdown
	// and adapter.Initialize during a forced re-initialize.
	DefaultReinitializationDelay = 200 * time.Millisecond

	// DefaultSettleTimeout is the fallback completion timeout for motion
	// commands that don't specify their own settle duration.
	DefaultSettleTimeout = 10 * time.Second

	// DefaultFaultRepeatInterval is the per-(slave,code) suppression
	// window for the Faulted event (spec §4.6).
	DefaultFaultRepeatInterval = 5 * time.Second

	// resetAckTimeout is Reset()'s fixed AckWithTimeout duration (spec §9,
	// the stricter of two coexisting Reset variants).
	resetAckTimeout = 1 * time.Second

	// enableTimeout and haltTimeout/stopTimeout are the fixed completion
	// timeouts for the corresponding operations (spec §4.2 table).
	enableTimeout = 500 * time.Millisecond
	haltTimeout   = 2 * time.Second
	stopTimeout   = 2 * time.Second

	// maxKeywordLength is the maximum accepted command keyword length,
	// matching the 32-byte ASCII RxFrame command field.
	maxKeywordLength = 32

	// ingestQueueDepth records the ingest channel's buffer size. It is not
	// referenced by the code: the channel is sized by internal/loop's own
	// ingestBufferSize, which has the same value. Callers block on Submit
	// when that buffer is full.
	ingestQueueDepth = 256

	// eventQueueDepth records each subscriber's bounded event channel size.
	// It is not referenced by the code: internal/events sizes the channels
	// with its own queueDepth, which has the same value; overflow drops the
	// oldest queued event (spec §5, §9).
	eventQueueDepth = 64
)
