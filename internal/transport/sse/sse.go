// sse.go — wiring entry point for the SSE transport.
package sse

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/brennhill/screencap-mcp/internal/mcp"
	"github.com/brennhill/screencap-mcp/internal/stream"
)

// Mount registers the GET /sse and POST /messages routes on mux, backed by
// a fresh connection Registry.
func Mount(mux *http.ServeMux, d *mcp.Dispatcher, streamMgr *stream.Manager, log *zap.SugaredLogger) *Registry {
	registry := NewRegistry()
	mux.Handle("/sse", HandleSSE(registry, log))
	mux.Handle("/messages", HandleMessages(registry, d, streamMgr, log))
	mux.Handle("/messages/", HandleMessages(registry, d, streamMgr, log))
	return registry
}
