// deps.go — the handles every tool handler needs, constructed once at
// startup and passed by value into the dispatcher (spec §9 "Singletons...
// become explicit values constructed by a small startup routine").
package mcp

import (
	"time"

	"go.uber.org/zap"

	"github.com/brennhill/screencap-mcp/internal/capture"
	"github.com/brennhill/screencap-mcp/internal/rcache"
	"github.com/brennhill/screencap-mcp/internal/stream"
)

// Deps bundles the server-wide handles tool handlers close over. No field
// is itself mutable global state: each is an explicit value threaded in by
// the caller (cmd/screencap-mcp's startup routine).
type Deps struct {
	CapMgr    *capture.Manager
	Encoder   capture.Encoder
	SyncCache *capture.SyncCache
	StreamMgr *stream.Manager
	Cache     *rcache.ResourceCache
	Log       *zap.SugaredLogger
	StartedAt time.Time
}
