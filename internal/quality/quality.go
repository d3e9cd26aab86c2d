// quality.go — adaptive JPEG/PNG quality control, adjusted at fixed frame
// boundaries based on observed FPS and CPU headroom (spec §4.4).
package quality

import "sync"

const (
	DefaultAdjustEveryNFrames = 10
	DefaultMinQuality         = 1
	DefaultMaxQuality         = 100
)

// Controller holds the per-session adaptive quality state. Hysteresis is
// enforced inside Observe: the caller feeds it every frame, and it only
// adjusts on every adjustEveryNFrames-th call — never per-frame.
type Controller struct {
	mu sync.Mutex

	current    int
	minQuality int
	maxQuality int

	adjustEveryNFrames int
	frameCount         int
}

// New constructs a Controller starting at startQuality, clamped to [min,max].
func New(startQuality, minQuality, maxQuality int) *Controller {
	if minQuality < DefaultMinQuality {
		minQuality = DefaultMinQuality
	}
	if maxQuality > DefaultMaxQuality {
		maxQuality = DefaultMaxQuality
	}
	if minQuality > maxQuality {
		minQuality, maxQuality = maxQuality, minQuality
	}
	start := clamp(startQuality, minQuality, maxQuality)
	return &Controller{
		current:            start,
		minQuality:         minQuality,
		maxQuality:         maxQuality,
		adjustEveryNFrames: DefaultAdjustEveryNFrames,
	}
}

// Current returns the quality value the next encode should use.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Observe feeds one frame's worth of state. Every adjustEveryNFrames calls it
// evaluates the table from spec §4.4 and adjusts current, clamped to bounds.
// Returns true if this call performed an adjustment (for test/log purposes).
func (c *Controller) Observe(currentFPS, targetFPS float64, cpuPercent float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frameCount++
	if c.frameCount < c.adjustEveryNFrames {
		return false
	}
	c.frameCount = 0

	switch {
	case currentFPS < 0.85*targetFPS:
		c.current = clamp(c.current-5, c.minQuality, c.maxQuality)
	case currentFPS >= 0.95*targetFPS && cpuPercent < 60:
		c.current = clamp(c.current+2, c.minQuality, c.maxQuality)
	case cpuPercent > 80:
		// hold
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
