// server.go — HTTP server wiring: route registration, health reporting,
// and the rate-limiter middleware every route (except /healthz itself)
// passes through. Transport mounting (SSE, WS) stays in their own
// packages; this package composes them onto one mux.
package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// StatusProvider reports the fields get_system_status also exposes, kept
// separate from the mcp package so this package has no dependency on it.
type StatusProvider interface {
	Name() string
	ActiveCount() int
}

// Server composes a mux, a rate limiter, and the handles /healthz reports.
type Server struct {
	Mux         *http.ServeMux
	RateLimiter *RateLimiter

	status StatusProvider
	log    *zap.SugaredLogger
}

// New constructs a Server with /healthz already registered. cacheEntries
// feeds the rate limiter's memory signal (entry count, a proxy for bytes
// since individual frame sizes vary by format/quality/resolution).
func New(status StatusProvider, cacheEntries func() int64, log *zap.SugaredLogger) *Server {
	s := &Server{
		Mux:         http.NewServeMux(),
		RateLimiter: NewRateLimiter(cacheEntries),
		status:      status,
		log:         log,
	}
	s.Mux.HandleFunc("/healthz", s.handleHealthz)
	return s
}

// Handler returns the fully wrapped handler (rate limiter middleware
// around the mux), the value callers should hand to http.Server.
func (s *Server) Handler() http.Handler {
	return s.RateLimiter.Middleware(s.Mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	health := s.RateLimiter.Health()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"backend":        s.status.Name(),
		"active_streams": s.status.ActiveCount(),
		"circuit_open":   health.CircuitOpen,
		"opened_at":      health.OpenedAt,
		"current_rate":   health.CurrentRate,
		"cache_entries":  health.MemoryBytes,
		"circuit_reason": health.Reason,
	})
}
