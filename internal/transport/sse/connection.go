// connection.go — SSE connection bookkeeping, grounded on the dev-console
// MCP SSE transport's SSEConnection/SSERegistry pattern: a registry of
// live connections keyed by session id, each owning its own http.Flusher
// and a set of stream subscriptions it tears down on disconnect.
package sse

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brennhill/screencap-mcp/internal/stream"
)

// KeepaliveInterval matches spec §4.8 "Keepalive pings are emitted every
// 30s of idle."
const KeepaliveInterval = 30 * time.Second

type streamAttachment struct {
	session *stream.Session
	sub     *pushSubscriber
}

// Connection is one long-lived GET /sse client. It owns the http.Flusher
// for the life of the request and a set of stream subscriptions created by
// create_stream calls that arrived over its paired POST /messages.
type Connection struct {
	SessionID string
	ctx       context.Context

	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex // serializes writes to w

	attachMu sync.Mutex
	attached map[string]streamAttachment
}

// Registry tracks every live SSE connection by session id.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Register upgrades w into a flushable SSE connection and tracks it.
func (r *Registry) Register(ctx context.Context, w http.ResponseWriter) (*Connection, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: ResponseWriter does not support flushing")
	}
	conn := &Connection{
		SessionID: uuid.NewString(),
		ctx:       ctx,
		w:         w,
		flusher:   flusher,
		attached:  make(map[string]streamAttachment),
	}
	r.mu.Lock()
	r.conns[conn.SessionID] = conn
	r.mu.Unlock()
	return conn, nil
}

// Unregister removes a connection and detaches it from every stream it
// subscribed to.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	conn, ok := r.conns[sessionID]
	delete(r.conns, sessionID)
	r.mu.Unlock()
	if ok {
		conn.detachAll()
	}
}

// Get returns the connection for sessionID, if still live.
func (r *Registry) Get(sessionID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[sessionID]
	return conn, ok
}

// Count reports the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// WriteEvent writes one SSE event frame, flushing immediately so the
// client observes it without buffering delay.
func (c *Connection) WriteEvent(event, data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.ctx.Done():
		return fmt.Errorf("sse: connection closed")
	default:
	}

	if _, err := c.w.Write([]byte(formatSSEEvent(event, data))); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func formatSSEEvent(event, data string) string {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteString("\n")
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// attach subscribes this connection to session and remembers the pairing
// so disconnect cleanly unsubscribes.
func (c *Connection) attach(session *stream.Session, sub *pushSubscriber) {
	session.Subscribe(sub)
	c.attachMu.Lock()
	c.attached[session.ID()] = streamAttachment{session: session, sub: sub}
	c.attachMu.Unlock()
	go c.pumpSubscriber(sub)
}

func (c *Connection) detachAll() {
	c.attachMu.Lock()
	attachments := make([]streamAttachment, 0, len(c.attached))
	for _, a := range c.attached {
		attachments = append(attachments, a)
	}
	c.attached = make(map[string]streamAttachment)
	c.attachMu.Unlock()

	for _, a := range attachments {
		a.session.Unsubscribe(a.sub.ID())
	}
}
