// timer.go — per-stream cadence pacing: decide when to skip a cycle versus
// capture, and sleep the producer loop back onto the target interval.
package timer

import (
	"context"
	"time"
)

// Defaults per the pacing contract.
const (
	DefaultSkipThreshold    = 50 * time.Millisecond
	DefaultMaxConsecutiveSkips = 5
)

// FrameTimer paces a single stream's producer loop to a target FPS. It is
// not safe for concurrent use from more than one goroutine — exactly one
// producer loop owns it.
type FrameTimer struct {
	targetInterval     time.Duration
	skipThreshold      time.Duration
	maxConsecutiveSkips int

	lastProcessed   time.Time
	consecutiveSkips int
	cycleStart      time.Time

	now func() time.Time
}

// New constructs a FrameTimer for the given target FPS (1-120, validated by
// the caller — spec invariant on StreamSession parameters).
func New(targetFPS int) *FrameTimer {
	return &FrameTimer{
		targetInterval:      time.Second / time.Duration(targetFPS),
		skipThreshold:       DefaultSkipThreshold,
		maxConsecutiveSkips: DefaultMaxConsecutiveSkips,
		now:                 time.Now,
	}
}

// WithSkipThreshold overrides the default skip threshold. Returns ft for chaining.
func (ft *FrameTimer) WithSkipThreshold(d time.Duration) *FrameTimer {
	ft.skipThreshold = d
	return ft
}

// WithMaxConsecutiveSkips overrides the default skip cap. Returns ft for chaining.
func (ft *FrameTimer) WithMaxConsecutiveSkips(n int) *FrameTimer {
	ft.maxConsecutiveSkips = n
	return ft
}

// ShouldSkip reports whether the current cycle should be skipped to catch up.
// True iff the timer is running behind the target cadence by more than
// skipThreshold AND the consecutive-skip budget is not exhausted. When it
// returns true, the consecutive-skip counter is incremented; the caller is
// expected not to capture a frame this cycle.
func (ft *FrameTimer) ShouldSkip() bool {
	ft.cycleStart = ft.now()
	if ft.lastProcessed.IsZero() {
		return false
	}
	behindBy := ft.cycleStart.Sub(ft.lastProcessed) - ft.targetInterval
	if behindBy > ft.skipThreshold && ft.consecutiveSkips < ft.maxConsecutiveSkips {
		ft.consecutiveSkips++
		return true
	}
	return false
}

// MarkProcessed records that a frame was produced this cycle, resetting the
// consecutive-skip counter and the cadence anchor.
func (ft *FrameTimer) MarkProcessed() {
	ft.lastProcessed = ft.now()
	ft.consecutiveSkips = 0
}

// SleepUntilNext blocks (or returns early on ctx cancellation) until the next
// cycle should begin, compensating for time already spent in this cycle. It
// never returns early for an elapsed cycle — the timer never anticipates.
func (ft *FrameTimer) SleepUntilNext(ctx context.Context) {
	elapsed := ft.now().Sub(ft.cycleStart)
	remaining := ft.targetInterval - elapsed
	if remaining <= 0 {
		return
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ConsecutiveSkips reports the current run length of skipped cycles.
func (ft *FrameTimer) ConsecutiveSkips() int {
	return ft.consecutiveSkips
}
