// handlers.go — the WS upgrade handler and its read loop (spec §4.8 binary
// resource framing contract), grounded on the gorilla/websocket
// StreamManager.HandleWebSocket pattern (screenshot-mcp-server's
// ws-streamer.go), adapted from a per-window-capture stream protocol to
// generic MCP JSON-RPC framing plus the three-message resource triplet.
package ws

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/brennhill/screencap-mcp/internal/mcp"
	"github.com/brennhill/screencap-mcp/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1 << 20, // large enough for an uncompressed 1080p frame
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request to a WS connection and runs its JSON-RPC
// read loop until the client disconnects.
func HandleWS(registry *Registry, d *mcp.Dispatcher, streamMgr *stream.Manager, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if log != nil {
				log.Warnw("ws upgrade failed", "error", err)
			}
			return
		}
		conn := registry.Register(raw)
		defer func() {
			registry.Unregister(conn)
			_ = raw.Close()
		}()

		if streamMgr != nil {
			for _, info := range streamMgr.List() {
				if session, ok := streamMgr.Get(info.ID); ok {
					conn.attach(session)
				}
			}
		}

		for {
			_, payload, err := raw.ReadMessage()
			if err != nil {
				return
			}

			var req mcp.JSONRPCRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				_ = conn.WriteText(mcp.NewError(nil, mcp.CodeParseError, "parse error: "+err.Error()))
				continue
			}

			resp, binary := d.Dispatch(req, true)
			if resp == nil {
				continue
			}

			if binary != nil {
				if err := conn.WriteText(map[string]any{
					"type":     "resource_metadata",
					"uri":      binary.URI,
					"mimeType": binary.Mime,
					"size":     len(binary.Bytes),
					"metadata": binary.Metadata,
				}); err != nil {
					return
				}
				if err := conn.WriteBinary(binary.Bytes); err != nil {
					return
				}
				if err := conn.WriteText(*resp); err != nil {
					return
				}
				continue
			}

			if err := conn.WriteText(*resp); err != nil {
				return
			}

			if streamID, ok := extractCreatedStreamID(req, resp); ok && streamMgr != nil {
				if session, ok := streamMgr.Get(streamID); ok {
					for _, c := range registry.All() {
						c.attach(session)
					}
				}
			}
		}
	}
}

// extractCreatedStreamID mirrors the SSE transport's helper of the same
// name: the stream_id rides inside create_stream's "<summary>\n<json>"
// tool result text (spec §9 JSONResponse convention).
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
