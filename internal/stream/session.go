// session.go — StreamSession: owns FrameTimer, QualityController, producer
// task, and subscriber set for one live stream (spec §3, §4.5).
package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brennhill/screencap-mcp/internal/capture"
	"github.com/brennhill/screencap-mcp/internal/cpu"
	"github.com/brennhill/screencap-mcp/internal/quality"
	"github.com/brennhill/screencap-mcp/internal/rcache"
	"github.com/brennhill/screencap-mcp/internal/timer"
	"go.uber.org/zap"
)

// DefaultMaxConsecutiveCaptureFailures stops a session after this many
// back-to-back capture failures (transient retries included), per spec
// §4.5 "after a configurable consecutive-failure threshold, stop the
// session".
const DefaultMaxConsecutiveCaptureFailures = 10

// ShutdownWindow bounds how long Stop waits for the producer goroutine to
// exit before giving up (spec §5 cancellation, default 2s).
const ShutdownWindow = 2 * time.Second

// Capturer is the subset of *capture.Manager a Session depends on. Accepting
// the interface (rather than the concrete Manager) keeps the producer loop
// testable with a fake backend and follows the "accept interfaces" idiom.
type Capturer interface {
	Capture(displayID int, region *capture.Region) (capture.RawFrame, error)
	CaptureWindow(w capture.Window, region *capture.Region) (capture.RawFrame, error)
	Name() string
}

// Session is one live stream. All public methods are safe for concurrent
// use; the producer loop runs in its own goroutine started by Start.
type Session struct {
	id        string
	source    Source
	params    Params
	createdAt time.Time

	capMgr   Capturer
	encoder  capture.Encoder
	cache    *rcache.ResourceCache
	cpu      *cpu.Sampler
	log      *zap.SugaredLogger

	ft *timer.FrameTimer
	qc *quality.Controller

	metrics *FrameMetrics

	state   atomic.Int32
	resume  chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}

	subMu sync.RWMutex
	subs  map[uint64]Subscriber
	nextSubID uint64

	qMu            sync.Mutex
	currentQuality int

	consecutiveFailures int
}

// NewSession constructs a Session in the Created state. Start must be
// called to begin producing frames.
func NewSession(id string, source Source, params Params, capMgr Capturer, encoder capture.Encoder, cache *rcache.ResourceCache, sampler *cpu.Sampler, log *zap.SugaredLogger) *Session {
	s := &Session{
		id:        id,
		source:    source,
		params:    params,
		createdAt: time.Now(),
		capMgr:    capMgr,
		encoder:   encoder,
		cache:     cache,
		cpu:       sampler,
		log:       log,
		ft:        timer.New(params.TargetFPS),
		metrics:   NewFrameMetrics(),
		resume:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		subs:      make(map[uint64]Subscriber),
		currentQuality: params.Quality,
	}
	if params.AdaptiveQualityEnabled {
		s.qc = quality.New(params.Quality, params.MinQuality, params.MaxQuality)
	}
	s.state.Store(int32(Created))
	return s
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Start schedules the producer task and transitions Created -> Running.
// Calling Start more than once is a no-op.
func (s *Session) Start() {
	if !s.state.CompareAndSwap(int32(Created), int32(Running)) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// Pause transitions Running -> Paused. A no-op outside Running.
func (s *Session) Pause() {
	s.state.CompareAndSwap(int32(Running), int32(Paused))
}

// Resume transitions Paused -> Running and wakes the producer loop.
func (s *Session) Resume() {
	if s.state.CompareAndSwap(int32(Paused), int32(Running)) {
		select {
		case s.resume <- struct{}{}:
		default:
		}
	}
}

// Stop transitions to Stopped (idempotent) and waits up to ShutdownWindow
// for the producer to release its backend reference and deregister
// subscribers.
func (s *Session) Stop() {
	prev := State(s.state.Swap(int32(Stopped)))
	if prev == Stopped {
		return
	}
	select {
	case s.resume <- struct{}{}:
	default:
	}
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.done:
	case <-time.After(ShutdownWindow):
		if s.log != nil {
			s.log.Warnw("stream producer did not exit within shutdown window", "stream_id", s.id)
		}
	}
}

// AdjustQuality sets the quality used by subsequent encodes, clamped to
// [MinQuality, MaxQuality].
func (s *Session) AdjustQuality(q int) {
	s.qMu.Lock()
	defer s.qMu.Unlock()
	if q < s.params.MinQuality {
		q = s.params.MinQuality
	}
	if q > s.params.MaxQuality {
		q = s.params.MaxQuality
	}
	s.currentQuality = q
}

func (s *Session) quality() int {
	s.qMu.Lock()
	defer s.qMu.Unlock()
	return s.currentQuality
}

// sourceLabel renders the session's source for Info/logging.
func (s *Session) sourceLabel() string {
	if s.source.IsWindow {
		return fmt.Sprintf("window:%d", s.source.Window.Handle)
	}
	return fmt.Sprintf("display:%d", s.source.DisplayID)
}

// GetInfo returns a point-in-time snapshot of the session.
func (s *Session) GetInfo() Info {
	s.subMu.RLock()
	nsubs := len(s.subs)
	s.subMu.RUnlock()

	return Info{
		ID:          s.id,
		Source:      s.sourceLabel(),
		TargetFPS:   s.params.TargetFPS,
		Quality:     s.quality(),
		Format:      s.params.Format,
		State:       s.State().String(),
		CreatedAt:   s.createdAt,
		Subscribers: nsubs,
		Metrics:     s.metrics.Snapshot(),
	}
}

// Subscribe registers a weak-handle Subscriber under its own ID().
func (s *Session) Subscribe(sub Subscriber) {
	s.subMu.Lock()
	s.subs[sub.ID()] = sub
	s.subMu.Unlock()
}

// Unsubscribe removes and closes a previously registered subscriber.
func (s *Session) Unsubscribe(id uint64) {
	s.subMu.Lock()
	sub, ok := s.subs[id]
	delete(s.subs, id)
	s.subMu.Unlock()
	if ok {
		sub.Close()
	}
}

// publish pushes n to every current subscriber, dropping any whose queue is
// full (spec §5 backpressure: overflow drops the slowest subscriber, never
// the producer).
func (s *Session) publish(n Notification) {
	s.subMu.RLock()
	targets := make([]Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		targets = append(targets, sub)
	}
	s.subMu.RUnlock()

	var unhealthy []uint64
	for _, sub := range targets {
		if !sub.Enqueue(n) {
			unhealthy = append(unhealthy, sub.ID())
		}
	}
	for _, id := range unhealthy {
		s.Unsubscribe(id)
	}
}

// captureFrame acquires one RawFrame for the session's source, cropping in
// software if a region is set and the backend didn't already.
func (s *Session) captureFrame() (capture.RawFrame, error) {
	var (
		frame capture.RawFrame
		err   error
	)
	if s.source.IsWindow {
		frame, err = s.capMgr.CaptureWindow(s.source.Window, s.params.Region)
	} else {
		frame, err = s.capMgr.Capture(s.source.DisplayID, s.params.Region)
	}
	if err != nil {
		return capture.RawFrame{}, err
	}
	if s.params.Region != nil && (frame.Width != s.params.Region.Width || frame.Height != s.params.Region.Height) {
		frame = capture.Crop(frame, s.params.Region)
	}
	return frame, nil
}

// run is the producer task loop (spec §4.5). It exits only when the
// session is Stopped, releasing all held backend resources beforehand.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		// Deregister and close every subscriber once the producer exits, so
		// Stop's wait covers it and transports see their queues close.
		s.subMu.Lock()
		subs := s.subs
		s.subs = make(map[uint64]Subscriber)
		s.subMu.Unlock()
		for _, sub := range subs {
			sub.Close()
		}
	}()
	frameN := 0

	for {
		if s.State() == Stopped {
			return
		}
		if s.State() == Paused {
			select {
			case <-ctx.Done():
				return
			case <-s.resume:
			}
			continue
		}

		// ShouldSkip anchors the cadence for this cycle regardless of
		// FrameSkipEnabled; when skipping is disabled we ignore its
		// verdict and always attempt a capture.
		skip := s.ft.ShouldSkip()
		if skip && s.params.FrameSkipEnabled {
			s.metrics.RecordSkipped()
			s.ft.SleepUntilNext(ctx)
			continue
		}

		captureStart := time.Now()
		raw, err := s.captureFrame()
		captureMs := float64(time.Since(captureStart)) / float64(time.Millisecond)
		if err != nil {
			if s.handleCaptureError(err) {
				return
			}
			s.ft.SleepUntilNext(ctx)
			continue
		}
		s.consecutiveFailures = 0

		frameN++
		if s.qc != nil && s.cpu != nil {
			if s.qc.Observe(s.metrics.RecentFPS(), float64(s.params.TargetFPS), s.cpu.Percent()) {
				s.AdjustQuality(s.qc.Current())
			}
		}

		encodeStart := time.Now()
		encoded, _, err := s.encoder.Encode(raw, s.params.Format, s.quality())
		encodeMs := float64(time.Since(encodeStart)) / float64(time.Millisecond)
		if err != nil {
			s.metrics.RecordDropped()
			s.ft.SleepUntilNext(ctx)
			continue
		}

		encoded.Metadata["stream_id"] = s.id
		encoded.Metadata["source"] = s.sourceLabel()

		publishStart := time.Now()
		uri := s.cache.Insert(s.sourceLabel(), raw.MonotonicCaptureNS, raw.Width, raw.Height, encoded)
		s.publish(Notification{
			Type:     "resource_updated",
			URI:      uri,
			Mime:     encoded.Mime,
			Size:     len(encoded.Bytes),
			Bytes:    encoded.Bytes,
			Metadata: encoded.Metadata,
		})
		publishMs := float64(time.Since(publishStart)) / float64(time.Millisecond)

		s.metrics.RecordProcessed(captureMs, encodeMs, publishMs)
		s.ft.MarkProcessed()
		s.ft.SleepUntilNext(ctx)
	}
}

// handleCaptureError applies spec §4.5/§7 failure semantics. It returns
// true if the session was stopped as a result.
func (s *Session) handleCaptureError(err error) bool {
	ce := capture.AsCaptureError(s.capMgr.Name(), err)
	if ce.Kind == capture.Transient {
		time.Sleep(10 * time.Millisecond)
		if s.source.IsWindow {
			_, err = s.capMgr.CaptureWindow(s.source.Window, s.params.Region)
		} else {
			_, err = s.capMgr.Capture(s.source.DisplayID, s.params.Region)
		}
		if err == nil {
			s.consecutiveFailures = 0
			return false
		}
	}

	s.metrics.RecordDropped()
	s.consecutiveFailures++

	fatal := ce.Kind == capture.Fatal
	exhausted := s.consecutiveFailures >= DefaultMaxConsecutiveCaptureFailures
	if fatal || exhausted {
		reason := "capture_fatal"
		if !fatal {
			reason = "consecutive_capture_failures"
		}
		s.publish(Notification{Type: "stream_stopped", Reason: reason})
		s.state.Store(int32(Stopped))
		if s.cancel != nil {
			s.cancel()
		}
		return true
	}
	return false
}
