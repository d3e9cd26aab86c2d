// subscriber.go — the stream.Subscriber adapter an SSE connection registers
// with a session so its producer loop can auto-push frames (spec §4.8,
// §5 "each subscriber queue has a bounded size (default 10 messages for
// SSE)").
package sse

import (
	"sync"
	"sync/atomic"

	"github.com/brennhill/screencap-mcp/internal/stream"
)

// DefaultQueueSize is the default bound on a subscriber's pending-
// notification queue per spec §5.
const DefaultQueueSize = 10

var nextSubscriberID atomic.Uint64

type pushSubscriber struct {
	id    uint64
	queue chan stream.Notification

	closeOnce sync.Once
}

func newPushSubscriber() *pushSubscriber {
	return &pushSubscriber{
		id:    nextSubscriberID.Add(1),
		queue: make(chan stream.Notification, DefaultQueueSize),
	}
}

func (s *pushSubscriber) ID() uint64 { return s.id }

// Enqueue is non-blocking; a full queue means this subscriber is the
// slowest consumer and should be dropped per the backpressure policy —
// the caller (the session) removes it, never the other way around.
func (s *pushSubscriber) Enqueue(n stream.Notification) bool {
	select {
	case s.queue <- n:
		return true
	default:
		return false
	}
}

func (s *pushSubscriber) Close() {
	s.closeOnce.Do(func() { close(s.queue) })
}
