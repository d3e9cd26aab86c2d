// startup.go — the small startup routine spec §9 calls for: every
// "singleton" (capture manager, encoder, cache, stream manager) is built
// once here as an explicit value and threaded into mcp.Deps, rather than
// living behind package-level globals.
package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brennhill/screencap-mcp/internal/capture"
	"github.com/brennhill/screencap-mcp/internal/config"
	"github.com/brennhill/screencap-mcp/internal/cpu"
	"github.com/brennhill/screencap-mcp/internal/logging"
	"github.com/brennhill/screencap-mcp/internal/mcp"
	"github.com/brennhill/screencap-mcp/internal/rcache"
	"github.com/brennhill/screencap-mcp/internal/stream"
)

// app bundles every long-lived handle the process owns, so shutdown can
// release them in the right order.
type app struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	capMgr    *capture.Manager
	cpuSamp   *cpu.Sampler
	cache     *rcache.ResourceCache
	streamMgr *stream.Manager
	dispatch  *mcp.Dispatcher
}

// newApp constructs every singleton in dependency order and wires them
// into one mcp.Dispatcher, shared by whichever transports the caller mounts.
func newApp(cfg *config.Config) (*app, error) {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	capMgr, err := capture.NewManager()
	if err != nil {
		return nil, fmt.Errorf("capture backend: %w", err)
	}
	log.Infow("capture backend selected", "backend", capMgr.Name())

	encoder := capture.NewEncoder()
	syncCache := capture.NewSyncCache(capture.DefaultTTL)
	sampler := cpu.NewSampler(time.Second)

	cache, err := rcache.New(cfg.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("resource cache: %w", err)
	}

	streamMgr := stream.NewManager(capMgr, encoder, cache, sampler, log)
	streamMgr.SetMaxConcurrentStreams(cfg.MaxConcurrentStreams)

	deps := &mcp.Deps{
		CapMgr:    capMgr,
		Encoder:   encoder,
		SyncCache: syncCache,
		StreamMgr: streamMgr,
		Cache:     cache,
		Log:       log,
		StartedAt: time.Now(),
	}
	dispatch := mcp.NewDispatcher(deps)

	return &app{
		cfg:       cfg,
		log:       log,
		capMgr:    capMgr,
		cpuSamp:   sampler,
		cache:     cache,
		streamMgr: streamMgr,
		dispatch:  dispatch,
	}, nil
}

// Close releases every singleton, in reverse construction order. Stopping
// the stream manager first means every producer goroutine has dropped its
// backend reference before the backend itself is closed.
func (a *app) Close() {
	a.streamMgr.Close()
	a.cpuSamp.Stop()
	if active := a.capMgr.Active(); active != nil {
		_ = active.Close()
	}
	_ = a.log.Sync()
}
