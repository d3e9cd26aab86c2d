// connection.go — WS connection bookkeeping, grounded on the gorilla/
// websocket StreamManager/StreamSession pattern (screenshot-mcp-server's
// ws-streamer): a registry of live connections, each a single owner of its
// *websocket.Conn with all writes serialized through one mutex, since
// gorilla/websocket forbids concurrent writers.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/brennhill/screencap-mcp/internal/stream"
)

type streamAttachment struct {
	session *stream.Session
	sub     *wsSubscriber
}

// Connection is one accepted WS client. Every frame sent to it (text or
// binary, whether a tools/call response or an auto-push triplet) goes
// through WriteText/WriteBinary, which share one write mutex.
type Connection struct {
	id   uint64
	conn *websocket.Conn

	writeMu sync.Mutex

	attachMu sync.Mutex
	attached map[string]streamAttachment
}

// Registry tracks every live WS connection so a create_stream on any one
// of them can broadcast to the rest (spec §4.8 "broadcast to all connected
// clients").
type Registry struct {
	mu      sync.RWMutex
	conns   map[uint64]*Connection
	nextID  uint64
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uint64]*Connection)}
}

// Register wraps conn and tracks it.
func (r *Registry) Register(conn *websocket.Conn) *Connection {
	r.mu.Lock()
	r.nextID++
	c := &Connection{id: r.nextID, conn: conn, attached: make(map[string]streamAttachment)}
	r.conns[c.id] = c
	r.mu.Unlock()
	return c
}

// Unregister removes a connection and detaches it from every stream it was
// subscribed to.
func (r *Registry) Unregister(c *Connection) {
	r.mu.Lock()
	delete(r.conns, c.id)
	r.mu.Unlock()
	c.detachAll()
}

// All returns a snapshot of every live connection, for broadcast attach.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Count reports the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// WriteText writes v as a JSON text frame.
func (c *Connection) WriteText(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// WriteBinary writes raw bytes as a single binary frame.
func (c *Connection) WriteBinary(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, b)
}

// attach subscribes this connection to session, starting a pump goroutine
// that relays the subscriber's queue as the three-message triplet.
func (c *Connection) attach(session *stream.Session) {
	c.attachMu.Lock()
	if _, already := c.attached[session.ID()]; already {
		c.attachMu.Unlock()
		return
	}
	sub := newWSSubscriber()
	c.attached[session.ID()] = streamAttachment{session: session, sub: sub}
	c.attachMu.Unlock()

	session.Subscribe(sub)
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

// pumpSubscriber relays one attached subscriber's queue as the auto-push
// triplet (metadata text frame, binary frame, no ack — spec §4.8 "Auto-push
// in WS sends the same three messages per frame"; the third message for a
// push is a plain notification, not a request/response ack).
func (c *Connection) pumpSubscriber(sub *wsSubscriber) {
	for n := range sub.queue {
		if n.Type == "stream_stopped" {
			_ = c.WriteText(map[string]any{
				"jsonrpc": "2.0",
				"method":  "notifications/stream_stopped",
				"params":  map[string]any{"reason": n.Reason},
			})
			continue
		}
		if err := c.WriteText(map[string]any{
			"type":     "resource_metadata",
			"uri":      n.URI,
			"mimeType": n.Mime,
			"size":     n.Size,
			"metadata": n.Metadata,
		}); err != nil {
			return
		}
		if err := c.WriteBinary(n.Bytes); err != nil {
			return
		}
		_ = c.WriteText(map[string]any{
			"jsonrpc": "2.0",
			"method":  "notifications/resource_updated",
			"params":  map[string]any{"uri": n.URI, "mimeType": n.Mime, "size": n.Size},
		})
	}
}
