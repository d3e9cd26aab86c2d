// serve_run.go — the HTTP run mode: mounts the SSE and/or WebSocket
// transports on one mux behind the rate-limiter middleware, and serves it
// with a graceful-shutdown loop grounded on the dev-console HTTP server's
// signal-driven shutdown pattern.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brennhill/screencap-mcp/internal/config"
	"github.com/brennhill/screencap-mcp/internal/server"
	"github.com/brennhill/screencap-mcp/internal/transport/sse"
	"github.com/brennhill/screencap-mcp/internal/transport/ws"
)

// appStatus adapts app's two singletons (capture manager, stream manager)
// into the single server.StatusProvider the health endpoint reports.
type appStatus struct{ a *app }

func (s appStatus) Name() string     { return s.a.capMgr.Name() }
func (s appStatus) ActiveCount() int { return s.a.streamMgr.ActiveCount() }

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srvWrap := server.New(appStatus{a}, func() int64 { return int64(a.cache.Len()) }, a.log)

	if cfg.EnableSSE {
		sse.Mount(srvWrap.Mux, a.dispatch, a.streamMgr, a.log)
		a.log.Infow("sse transport mounted", "path", "/sse")
	}
	if cfg.EnableWS {
		ws.Mount(srvWrap.Mux, a.dispatch, a.streamMgr, a.log)
		a.log.Infow("ws transport mounted", "path", "/ws")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srvWrap.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Duration(cfg.KeepAliveTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("screencap-mcp http server listening", "addr", addr, "version", version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		a.log.Infow("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
