package snapshot

import (
	"sync"
	"testing"
	"time"
)

func TestNewPublisherStartsNonNil(t *testing.T) {
	p := NewPublisher()
	if p.Load() == nil {
		t.Fatal("expected a non-nil initial snapshot")
	}
}

func TestPublishThenLoad(t *testing.T) {
	p := NewPublisher()
	want := &StatusSnapshot{CycleTime: 2 * time.Millisecond}
	p.Publish(want)

	got := p.Load()
	if got != want {
		t.Error("expected Load to return the exact value most recently Published")
	}
}

func TestLoadNeverObservesTornWrite(t *testing.T) {
	p := NewPublisher()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		for {
			select {
			case <-stop:
				return
			default:
				p.Publish(&StatusSnapshot{CycleTime: time.Duration(i)})
				i++
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		snap := p.Load()
		if snap == nil {
			t.Error("Load returned nil mid-publish")
		}
	}
	close(stop)
	wg.Wait()
}
