package services

import (
	"sync"
	"time"

	"school_fleet/internal/events"
)

// memPublisher collects published envelopes so tests can assert on the
// event stream after Notifier.Flush.
type memPublisher struct {
	mu  sync.Mutex
	got []events.Envelope
}

func (p *memPublisher) Publish(_ events.Event, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, env)
	return nil
}

func (p *memPublisher) Close() {}

func (p *memPublisher) count(ev events.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.got {
		if e.Event == ev {
			n++
		}
	}
	return n
}

func newTestNotifier() (*events.Notifier, *memPublisher) {
	pub := &memPublisher{}
	return events.NewNotifier(pub, 1, time.Millisecond, nil), pub
}
