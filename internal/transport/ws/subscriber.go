// subscriber.go — the stream.Subscriber adapter one WS connection registers
// with a session (spec §5 "5 for WS").
package ws

import (
	"sync"
	"sync/atomic"

	"github.com/brennhill/screencap-mcp/internal/stream"
)

// DefaultQueueSize bounds a WS subscriber's pending-notification queue.
const DefaultQueueSize = 5

var nextSubscriberID atomic.Uint64

type wsSubscriber struct {
	id    uint64
	queue chan stream.Notification

	closeOnce sync.Once
}

func newWSSubscriber() *wsSubscriber {
	return &wsSubscriber{
		id:    nextSubscriberID.Add(1),
		queue: make(chan stream.Notification, DefaultQueueSize),
	}
}

func (s *wsSubscriber) ID() uint64 { return s.id }

func (s *wsSubscriber) Enqueue(n stream.Notification) bool {
	select {
	case s.queue <- n:
		return true
	default:
		return false
	}
}

func (s *wsSubscriber) Close() {
	s.closeOnce.Do(func() { close(s.queue) })
}
