package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"school_fleet/internal/metrics"
)

// Notifier fans events out to the publisher asynchronously. A publish
// failure is retried with backoff and, if retries are exhausted, logged and
// counted; it never propagates to the operation that raised the event.
type Notifier struct {
	pub      Publisher
	attempts int
	backoff  time.Duration
	metrics  *metrics.Collector
	wg       sync.WaitGroup
}

func NewNotifier(pub Publisher, attempts int, backoff time.Duration, m *metrics.Collector) *Notifier {
	if attempts < 1 {
		attempts = 1
	}
	return &Notifier{pub: pub, attempts: attempts, backoff: backoff, metrics: m}
}

// Emit queues the event for delivery and returns immediately.
func (n *Notifier) Emit(ev Event, payload interface{}) {
	if n == nil || n.pub == nil {
		return
	}
	env := newEnvelope(ev, payload)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(ev, env)
	}()
}

func (n *Notifier) deliver(ev Event, env Envelope) {
	delay := n.backoff
	for attempt := 1; attempt <= n.attempts; attempt++ {
		err := n.pub.Publish(ev, env)
		if err == nil {
			if n.metrics != nil {
				n.metrics.EventsPublished.WithLabelValues(string(ev)).Inc()
			}
			return
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":   ev,
			"attempt": attempt,
		}).Warn("event publish failed")
		if attempt < n.attempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	if n.metrics != nil {
		n.metrics.EventErrors.WithLabelValues(string(ev)).Inc()
	}
	logrus.WithFields(logrus.Fields{"event": ev, "id": env.ID}).
		Error("event dropped after exhausting retries")
}

// Flush blocks until all queued deliveries finish. Used on shutdown and in
// tests.
func (n *Notifier) Flush() {
	if n != nil {
		n.wg.Wait()
	}
}
