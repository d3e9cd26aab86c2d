package timer

import (
	"context"
	"testing"
	"time"
)

// fakeClock lets tests advance time deterministically instead of sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestShouldSkip_FirstCycleNeverSkips(t *testing.T) {
	ft := New(10)
	if ft.ShouldSkip() {
		t.Fatal("first cycle must never skip")
	}
}

func TestShouldSkip_BehindScheduleSkips(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	ft := New(10) // 100ms interval
	ft.now = clock.now

	ft.ShouldSkip()
	ft.MarkProcessed()

	// Fall well behind: 500ms elapsed against a 100ms target.
	clock.advance(500 * time.Millisecond)
	if !ft.ShouldSkip() {
		t.Fatal("expected skip when far behind schedule")
	}
	if ft.ConsecutiveSkips() != 1 {
		t.Fatalf("consecutive skips = %d, want 1", ft.ConsecutiveSkips())
	}
}

func TestShouldSkip_RespectsMaxConsecutiveSkips(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	ft := New(10).WithMaxConsecutiveSkips(2)
	ft.now = clock.now

	ft.ShouldSkip()
	ft.MarkProcessed()

	clock.advance(time.Second)
	if !ft.ShouldSkip() {
		t.Fatal("expected skip 1")
	}
	clock.advance(time.Second)
	if !ft.ShouldSkip() {
		t.Fatal("expected skip 2")
	}
	// Budget exhausted: must process even though still behind, to avoid starvation.
	clock.advance(time.Second)
	if ft.ShouldSkip() {
		t.Fatal("expected no skip once max_consecutive_skips is reached")
	}
}

func TestMarkProcessed_ResetsConsecutiveSkips(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	ft := New(10)
	ft.now = clock.now

	ft.ShouldSkip()
	ft.MarkProcessed()
	clock.advance(time.Second)
	ft.ShouldSkip()
	if ft.ConsecutiveSkips() == 0 {
		t.Fatal("expected nonzero consecutive skips before reset")
	}
	ft.MarkProcessed()
	if ft.ConsecutiveSkips() != 0 {
		t.Fatalf("consecutive skips after MarkProcessed = %d, want 0", ft.ConsecutiveSkips())
	}
}

func TestSleepUntilNext_NeverAnticipates(t *testing.T) {
	ft := New(100) // 10ms interval
	ft.ShouldSkip()
	start := time.Now()
	ft.SleepUntilNext(context.Background())
	if time.Since(start) < 5*time.Millisecond {
		t.Fatal("SleepUntilNext returned too early for a fresh cycle")
	}
}

func TestSleepUntilNext_CancelledContextReturnsEarly(t *testing.T) {
	ft := New(1) // 1s interval
	ft.ShouldSkip()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	ft.SleepUntilNext(ctx)
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("SleepUntilNext should return immediately on cancelled context")
	}
}
