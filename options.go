package orchestrator

import (
	"time"

	"github.com/ecat-drives/orchestrator/internal/adapter"
	"github.com/ecat-drives/orchestrator/internal/logging"
	"github.com/ecat-drives/orchestrator/internal/loop"
)

// Options configures a new Orchestrator (spec §6, "Configuration"). The
// zero value is valid; every duration and threshold field falls back to its
// Default* constant, and the remaining fields are off or empty by default.
type Options struct {
	CyclePeriod            time.Duration
	ExchangeTimeout        time.Duration
	WKCRecoveryThreshold   int
	FatalErrorThreshold    int
	RecoveryTimeout        time.Duration
	ReinitializationDelay  time.Duration
	DefaultSettleTimeout   time.Duration
	EnableCycleTraceLogging bool
	FaultRepeatInterval    time.Duration

	// CPUAffinity optionally pins the I/O loop worker to the given CPU IDs
	// (first entry wins, matching the teacher's single-core pin).
	CPUAffinity []int

	// Logger receives the loop's structured log output. A nil Logger
	// disables loop-originated logging entirely (still safe: every call
	// site nil-checks before using it).
	Logger *logging.Logger
}

func (o Options) withDefaults() Options {
	if o.CyclePeriod <= 0 {
		o.CyclePeriod = DefaultCyclePeriod
	}
	if o.ExchangeTimeout <= 0 {
		o.ExchangeTimeout = DefaultExchangeTimeout
	}
	if o.WKCRecoveryThreshold <= 0 {
		o.WKCRecoveryThreshold = DefaultWKCRecoveryThreshold
	}
	if o.FatalErrorThreshold <= 0 {
		o.FatalErrorThreshold = DefaultFatalErrorThreshold
	}
	if o.RecoveryTimeout <= 0 {
		o.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if o.ReinitializationDelay <= 0 {
		o.ReinitializationDelay = DefaultReinitializationDelay
	}
	if o.DefaultSettleTimeout <= 0 {
		o.DefaultSettleTimeout = DefaultSettleTimeout
	}
	if o.FaultRepeatInterval <= 0 {
		o.FaultRepeatInterval = DefaultFaultRepeatInterval
	}
	return o
}

func (o Options) toLoopConfig(iface string, obs loop.Observer) loop.Config {
	// A nil *logging.Logger must stay a nil interface so the loop's nil
	// checks see it as absent.
	var logger adapter.Logger
	if o.Logger != nil {
		logger = o.Logger
	}
	return loop.Config{
		Interface:             iface,
		CyclePeriod:           o.CyclePeriod,
		ExchangeTimeout:       o.ExchangeTimeout,
		WKCRecoveryThreshold:  o.WKCRecoveryThreshold,
		FatalErrorThreshold:   o.FatalErrorThreshold,
		RecoveryTimeout:       o.RecoveryTimeout,
		RecoverySettleDelay:   recoverySettleDelay,
		ReinitializationDelay: o.ReinitializationDelay,
		FaultRepeatInterval:   o.FaultRepeatInterval,
		CPUAffinity:           o.CPUAffinity,
		Logger:                logger,
		Observer:              obs,
	}
}
