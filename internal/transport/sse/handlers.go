// handlers.go — GET /sse and POST /messages, grounded on the dev-console
// MCP SSE transport's handleMCPSSE/handleMCPMessages pair (spec §4.8).
package sse

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brennhill/screencap-mcp/internal/mcp"
	"github.com/brennhill/screencap-mcp/internal/stream"
)

// HandleSSE returns the GET /sse handler: it upgrades the connection,
// announces the POST endpoint, then blocks pushing keepalives and
// auto-push notifications until the client disconnects.
func HandleSSE(registry *Registry, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		conn, err := registry.Register(r.Context(), w)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer registry.Unregister(conn.SessionID)

		endpoint, _ := json.Marshal(map[string]string{"uri": "/messages?sessionId=" + conn.SessionID})
		if err := conn.WriteEvent("endpoint", string(endpoint)); err != nil {
			return
		}
		if log != nil {
			log.Infow("sse connection opened", "session_id", conn.SessionID)
		}

		ticker := time.NewTicker(KeepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				if log != nil {
					log.Infow("sse connection closed", "session_id", conn.SessionID)
				}
				return
			case <-ticker.C:
				if err := conn.WriteEvent("ping", "keepalive"); err != nil {
					return
				}
			}
		}
	}
}

// HandleMessages returns the POST /messages handler: it decodes one
// JSON-RPC request, dispatches it synchronously, attaches the connection
// to any stream the call just created, and writes the response inline
// (spec §4.8 "returns the response synchronously", unlike the auto-push
// notification channel).
func HandleMessages(registry *Registry, d *mcp.Dispatcher, streamMgr *stream.Manager, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("sessionId")
		if sessionID == "" {
			sessionID = strings.TrimPrefix(r.URL.Path, "/messages/")
		}
		conn, ok := registry.Get(sessionID)
		if !ok {
			http.Error(w, "unknown or expired sse session", http.StatusNotFound)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		var req mcp.JSONRPCRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, mcp.NewError(nil, mcp.CodeParseError, "parse error: "+err.Error()))
			return
		}

		resp, _ := d.Dispatch(req, false)
		if resp == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		if streamID, ok := extractCreatedStreamID(req, resp); ok && streamMgr != nil {
			if session, ok := streamMgr.Get(streamID); ok {
				conn.attach(session, newPushSubscriber())
				if log != nil {
					log.Infow("sse connection attached to stream", "session_id", sessionID, "stream_id", streamID)
				}
			}
		}

		writeJSON(w, *resp)
	}
}

func writeJSON(w http.ResponseWriter, resp mcp.JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// extractCreatedStreamID pulls the stream_id out of a successful
// create_stream tool result. The result text is "<summary>\n<json>" (spec
// §9 JSONResponse convention); the json half carries stream_id.
func extractCreatedStreamID(req mcp.JSONRPCRequest, resp *mcp.JSONRPCResponse) (string, bool) {
	var call struct {
		Name string `json:"name"`
	}
	if req.Method != "tools/call" || json.Unmarshal(req.Params, &call) != nil || call.Name != "create_stream" {
		return "", false
	}

	var result mcp.MCPToolResult
	if json.Unmarshal(resp.Result, &result) != nil || result.IsError || len(result.Content) == 0 {
		return "", false
	}

	parts := strings.SplitN(result.Content[0].Text, "\n", 2)
	if len(parts) != 2 {
		return "", false
	}
	var payload struct {
		StreamID string `json:"stream_id"`
	}
	if err := json.Unmarshal([]byte(parts[1]), &payload); err != nil || payload.StreamID == "" {
		return "", false
	}
	return payload.StreamID, true
}

// pumpSubscriber relays one attached subscriber's queue onto the SSE wire
// until the subscriber is closed (by the session, on backpressure or
// stop) or the connection itself disconnects.
func (c *Connection) pumpSubscriber(sub *pushSubscriber) {
	for n := range sub.queue {
		event, payload := renderNotification(n)
		if err := c.WriteEvent(event, payload); err != nil {
			return
		}
	}
}

func renderNotification(n stream.Notification) (event, payload string) {
	switch n.Type {
	case "stream_stopped":
		b, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"method":  "notifications/stream_stopped",
			"params":  map[string]any{"reason": n.Reason},
		})
		return "message", string(b)
	default:
		b, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"method":  "notifications/resource_updated",
			"params": map[string]any{
				"uri":      n.URI,
				"mimeType": n.Mime,
				"size":     n.Size,
				"metadata": n.Metadata,
			},
		})
		return "message", string(b)
	}
}
