package stream

import (
	"testing"
	"time"

	"github.com/brennhill/screencap-mcp/internal/capture"
	"github.com/brennhill/screencap-mcp/internal/logging"
	"github.com/brennhill/screencap-mcp/internal/rcache"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cache, err := rcache.New(120)
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager(&fakeCapturer{}, capture.NewEncoder(), cache, nil, logging.Noop())
	t.Cleanup(m.Close)
	return m
}

func validOpts() CreateOptions {
	return CreateOptions{Source: Source{DisplayID: 0}, TargetFPS: 10, Quality: 80, Format: capture.FormatJPEG}
}

func TestCreate_RejectsOutOfRangeFPS(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create(CreateOptions{Source: Source{DisplayID: 0}, TargetFPS: 0, Quality: 80}); err != ErrInvalidArgument {
		t.Fatalf("fps=0: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := m.Create(CreateOptions{Source: Source{DisplayID: 0}, TargetFPS: 121, Quality: 80}); err != ErrInvalidArgument {
		t.Fatalf("fps=121: err = %v, want ErrInvalidArgument", err)
	}
}

func TestCreate_RejectsOutOfRangeQuality(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create(CreateOptions{Source: Source{DisplayID: 0}, TargetFPS: 10, Quality: 0}); err != ErrInvalidArgument {
		t.Fatalf("quality=0: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := m.Create(CreateOptions{Source: Source{DisplayID: 0}, TargetFPS: 10, Quality: 101}); err != ErrInvalidArgument {
		t.Fatalf("quality=101: err = %v, want ErrInvalidArgument", err)
	}
}

func TestCreate_EnforcesMaxConcurrentStreams(t *testing.T) {
	m := newTestManager(t)
	m.SetMaxConcurrentStreams(25)

	for i := 0; i < 25; i++ {
		if _, err := m.Create(validOpts()); err != nil {
			t.Fatalf("stream %d: unexpected error %v", i, err)
		}
	}
	if _, err := m.Create(validOpts()); err != ErrResourceExhausted {
		t.Fatalf("26th stream: err = %v, want ErrResourceExhausted", err)
	}
}

func TestCreate_ImmediateGetStreamInfoShowsRunning(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create(validOpts())
	if err != nil {
		t.Fatal(err)
	}
	info := s.GetInfo()
	if info.State != "running" {
		t.Fatalf("state = %q, want running", info.State)
	}
	if info.TargetFPS != 10 || info.Format != capture.FormatJPEG {
		t.Fatalf("unexpected params echoed back: %+v", info)
	}
}

func TestStop_RemovesSessionFromList(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create(validOpts())
	if err != nil {
		t.Fatal(err)
	}
	m.Stop(s.ID())

	for _, info := range m.List() {
		if info.ID == s.ID() {
			t.Fatal("expected stopped session to be absent from List")
		}
	}
}

func TestStop_IsIdempotentForUnknownID(t *testing.T) {
	m := newTestManager(t)
	if m.Stop("does-not-exist") {
		t.Fatal("expected Stop on unknown id to report false")
	}
}

func TestReapStopped_RemovesFromInternalMap(t *testing.T) {
	m := newTestManager(t)
	s, _ := m.Create(validOpts())
	m.Stop(s.ID())
	m.reapStopped()

	if _, ok := m.Get(s.ID()); ok {
		t.Fatal("expected reaped session to be gone")
	}
	_ = time.Millisecond
}
