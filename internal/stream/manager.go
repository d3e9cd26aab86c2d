// manager.go — StreamManager: creates/lists/stops sessions and enforces
// global resource caps (spec §4.6).
package stream

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brennhill/screencap-mcp/internal/capture"
	"github.com/brennhill/screencap-mcp/internal/cpu"
	"github.com/brennhill/screencap-mcp/internal/rcache"
	"go.uber.org/zap"
)

// Defaults per spec §4.6 / §6.
const (
	DefaultMaxConcurrentStreams = 25
	DefaultCleanupInterval      = 60 * time.Second
)

// ErrResourceExhausted is returned by Create when adding the session would
// breach max_concurrent_streams, the only cap Create checks.
var ErrResourceExhausted = errors.New("stream: resource exhausted")

// ErrInvalidArgument is returned by Create for out-of-range parameters
// (spec §8 boundary behaviors).
var ErrInvalidArgument = errors.New("stream: invalid argument")

// CreateOptions mirrors the create_stream tool's arguments (spec §6).
type CreateOptions struct {
	Source                 Source
	TargetFPS              int
	Quality                int
	MinQuality             int
	MaxQuality             int
	Format                 capture.Format
	FrameSkipEnabled       bool
	AdaptiveQualityEnabled bool
	Region                 *capture.Region
}

// Manager owns the set of live Sessions and the shared handles every
// session's producer loop needs.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	maxConcurrentStreams int

	capMgr  Capturer
	encoder capture.Encoder
	cache   *rcache.ResourceCache
	cpu     *cpu.Sampler
	log     *zap.SugaredLogger

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewManager constructs a Manager and starts its periodic cleanup task.
func NewManager(capMgr Capturer, encoder capture.Encoder, cache *rcache.ResourceCache, sampler *cpu.Sampler, log *zap.SugaredLogger) *Manager {
	m := &Manager{
		sessions:             make(map[string]*Session),
		maxConcurrentStreams: DefaultMaxConcurrentStreams,
		capMgr:               capMgr,
		encoder:              encoder,
		cache:                cache,
		cpu:                  sampler,
		log:                  log,
		stopCleanup:          make(chan struct{}),
	}
	go m.cleanupLoop(DefaultCleanupInterval)
	return m
}

// SetMaxConcurrentStreams updates the global cap under the manager's lock.
func (m *Manager) SetMaxConcurrentStreams(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxConcurrentStreams = n
}

// Create validates opts, enforces caps, and starts a new running session.
func (m *Manager) Create(opts CreateOptions) (*Session, error) {
	if opts.TargetFPS < 1 || opts.TargetFPS > 120 {
		return nil, ErrInvalidArgument
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		return nil, ErrInvalidArgument
	}
	if opts.MinQuality == 0 {
		opts.MinQuality = 1
	}
	if opts.MaxQuality == 0 {
		opts.MaxQuality = 100
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for _, s := range m.sessions {
		if s.State() != Stopped {
			active++
		}
	}
	if active >= m.maxConcurrentStreams {
		return nil, ErrResourceExhausted
	}

	id := uuid.NewString()
	params := Params{
		TargetFPS:              opts.TargetFPS,
		Quality:                opts.Quality,
		MinQuality:             opts.MinQuality,
		MaxQuality:             opts.MaxQuality,
		Format:                 opts.Format,
		FrameSkipEnabled:       opts.FrameSkipEnabled,
		AdaptiveQualityEnabled: opts.AdaptiveQualityEnabled,
		Region:                 opts.Region,
	}
	session := NewSession(id, opts.Source, params, m.capMgr, m.encoder, m.cache, m.cpu, m.log)
	m.sessions[id] = session
	session.Start()
	return session, nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns Info for every non-Stopped session. A stopped session drops
// out of List immediately (spec §8: "list_streams() no longer returns S
// within the shutdown window"); get_stream_info remains available for a
// stopped id until the periodic cleanup task reaps it.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		if s.State() == Stopped {
			continue
		}
		infos = append(infos, s.GetInfo())
	}
	return infos
}

// Stop stops a session by id. Idempotent; returns false if the id is
// unknown.
func (m *Manager) Stop(id string) bool {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	s.Stop()
	return true
}

// StopAll stops every live session, used at shutdown.
func (m *Manager) StopAll() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()
	for _, s := range sessions {
		s.Stop()
	}
}

// ActiveCount reports the number of non-Stopped sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if s.State() != Stopped {
			n++
		}
	}
	return n
}

// cleanupLoop periodically reaps Stopped sessions whose producer has long
// since exited, per spec §4.6 "default 60s".
func (m *Manager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCleanup:
			return
		case <-ticker.C:
			m.reapStopped()
		}
	}
}

func (m *Manager) reapStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.State() == Stopped {
			delete(m.sessions, id)
		}
	}
}

// Close stops the cleanup task and every live session.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
	m.StopAll()
}
