// ws.go — wiring entry point for the WebSocket transport.
package ws

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/brennhill/screencap-mcp/internal/mcp"
	"github.com/brennhill/screencap-mcp/internal/stream"
)

// Mount registers the /ws upgrade route on mux, backed by a fresh
// connection Registry.
func Mount(mux *http.ServeMux, d *mcp.Dispatcher, streamMgr *stream.Manager, log *zap.SugaredLogger) *Registry {
	registry := NewRegistry()
	mux.Handle("/ws", HandleWS(registry, d, streamMgr, log))
	return registry
}
