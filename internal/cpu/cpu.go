// cpu.go — process-wide CPU utilization sampler used by the adaptive
// quality controller. The sampled value is not reported by any tool result.
package cpu

import (
	"sync"
	"time"

	gopsutilcpu "github.com/shirou/gopsutil/v3/cpu"
)

// Sampler caches the last CPU percent reading so callers on the hot path
// (the producer loop, once per N frames) never block on a gopsutil syscall.
type Sampler struct {
	mu       sync.RWMutex
	lastPct  float64
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSampler starts a background goroutine that refreshes the CPU percent
// every interval. Call Stop to release it.
func NewSampler(interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = time.Second
	}
	s := &Sampler{interval: interval, stopCh: make(chan struct{})}
	go s.run()
	return s
}

func (s *Sampler) run() {
	// Seed one blocking sample immediately so early callers get a real value.
	s.sample(200 * time.Millisecond)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sample(200 * time.Millisecond)
		}
	}
}

func (s *Sampler) sample(over time.Duration) {
	pcts, err := gopsutilcpu.Percent(over, false)
	if err != nil || len(pcts) == 0 {
		return
	}
	s.mu.Lock()
	s.lastPct = pcts[0]
	s.mu.Unlock()
}

// Percent returns the most recently sampled system-wide CPU utilization, 0-100.
func (s *Sampler) Percent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPct
}

// Stop releases the background sampling goroutine.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
