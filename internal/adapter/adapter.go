// Package adapter defines the capability surface the core depends on to
// reach a fieldbus network of drives. It deliberately says nothing about
// wire protocol, transport, or distributed-clock sync (spec §1, §9) — those
// belong to a concrete Adapter implementation such as simulated.Adapter.
package adapter

import (
	"time"

	"github.com/ecat-drives/orchestrator/internal/wire"
)

// HealthSnapshot reports the bus's working-counter and AL-status state for
// the most recent exchange (spec §3).
type HealthSnapshot struct {
	SlavesFound      int
	GroupExpectedWKC int
	LastWKC          int
	BytesOut         int
	BytesIn          int
	SlavesOperational int
	ALStatusCode     int
}

// Adapter is the capability set the core depends on (spec §2.1, §9): a
// dynamic dispatch boundary. This module ships one implementation,
// simulated.Adapter; no native implementation is included. The core never
// depends on any specific concurrency model inside an Adapter
// implementation.
type Adapter interface {
	// Initialize opens the given interface and returns the slave count, or
	// an error on failure (the root package reports any such error as
	// ErrCodeAdapterOpenFailed).
	Initialize(iface string) (slaveCount int, err error)

	// WriteRx stages an outbound frame for the given 1-based slave. Errors
	// are logged by the caller, not treated as fatal (spec §4.3 Phase B).
	WriteRx(slave int, frame *wire.RxFrame) error

	// ReadTx retrieves the most recently exchanged inbound frame for the
	// given 1-based slave.
	ReadTx(slave int) (*wire.TxFrame, error)

	// Exchange performs one bus cycle and returns the working counter, or a
	// negative value/error per the Phase E outcome table (spec §4.3).
	Exchange(timeout time.Duration) (wkc int, err error)

	// Health returns the bus's current HealthSnapshot.
	Health() (HealthSnapshot, error)

	// Recover attempts in-place recovery without a full re-initialize.
	// Returns a positive count on success, <= 0 otherwise (spec §4.7).
	Recover(timeout time.Duration) (int, error)

	// DrainErrors returns and clears any buffered adapter-level error text.
	DrainErrors() string

	// Shutdown releases the adapter. Safe to call multiple times.
	Shutdown() error
}

// Logger is the narrow logging capability the loop and adapter code depend
// on, matching internal/logging.Logger's Printf/Debugf surface without
// creating an import-cycle-prone dependency on that concrete type.
type Logger interface {
	Printf(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// FaultInjector is an optional capability some simulated adapters implement
// to script TxFrame faults or WKC degradation for tests (mirrors the
// optional DiscardBackend pattern in the capability interface this is
// adapted from).
type FaultInjector interface {
	InjectFault(slave int, flag wire.StatusFlag, active bool)
	InjectWKC(wkc int)
}

// AdapterError is a sentinel error type for this package, kept small and
// comparable so concrete Adapter implementations can return it directly.
type AdapterError string

func (e AdapterError) Error() string { return string(e) }

const (
	ErrNotOpen         AdapterError = "adapter: not open"
	ErrSlaveOutOfRange AdapterError = "adapter: slave out of range"
)
