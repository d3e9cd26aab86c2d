// backend_fallback.go — tier 3, the cross-platform screen-grab fallback
// that is always available (spec §4.1.3).
package capture

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vova616/screenshot"
)

// FallbackBackend wraps github.com/vova616/screenshot. It never fails to
// initialize, making it the last resort in the backend chain.
type FallbackBackend struct {
	mu sync.Mutex

	framesCaptured      atomic.Uint64
	consecutiveFailures atomic.Int32
	totalCaptureTime    atomic.Int64 // nanoseconds
}

// NewFallbackBackend constructs the tier-3 backend. It always succeeds.
func NewFallbackBackend() (*FallbackBackend, error) {
	return &FallbackBackend{}, nil
}

func (b *FallbackBackend) Name() string { return "fallback-screengrab" }
func (b *FallbackBackend) Tier() int    { return 3 }

func (b *FallbackBackend) EnumerateDisplays() ([]Display, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		n = 1
	}
	displays := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		displays = append(displays, Display{
			ID:      i,
			X:       bounds.Min.X,
			Y:       bounds.Min.Y,
			Width:   bounds.Dx(),
			Height:  bounds.Dy(),
			Primary: i == 0,
		})
	}
	return displays, nil
}

func (b *FallbackBackend) EnumerateWindows() ([]Window, error) {
	return nil, ErrNotSupported
}

func (b *FallbackBackend) Capture(displayID int, region *Region) (RawFrame, error) {
	start := time.Now()

	var img *image.RGBA
	var err error
	if region != nil {
		rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
		img, err = screenshot.CaptureRect(rect)
	} else {
		bounds := screenshot.GetDisplayBounds(displayID)
		img, err = screenshot.CaptureRect(bounds)
	}

	return b.finishCapture(img, err, start)
}

func (b *FallbackBackend) CaptureWindow(w Window, region *Region) (RawFrame, error) {
	start := time.Now()
	rect := image.Rect(w.X, w.Y, w.X+w.Width, w.Y+w.Height)
	if region != nil {
		rect = image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	}
	img, err := screenshot.CaptureRect(rect)
	return b.finishCapture(img, err, start)
}

func (b *FallbackBackend) finishCapture(img *image.RGBA, err error, start time.Time) (RawFrame, error) {
	if err != nil {
		b.consecutiveFailures.Add(1)
		return RawFrame{}, &CaptureError{Kind: Transient, Source: b.Name(), Err: err}
	}
	if img == nil {
		b.consecutiveFailures.Add(1)
		return RawFrame{}, &CaptureError{Kind: Transient, Source: b.Name(), Err: fmt.Errorf("nil image")}
	}

	b.consecutiveFailures.Store(0)
	b.framesCaptured.Add(1)
	b.totalCaptureTime.Add(int64(time.Since(start)))

	return RawFrame{
		Pix:                img.Pix,
		Width:              img.Bounds().Dx(),
		Height:              img.Bounds().Dy(),
		BGRA:               false,
		MonotonicCaptureNS: time.Now().UnixNano(),
	}, nil
}

func (b *FallbackBackend) PerformanceInfo() BackendInfo {
	frames := b.framesCaptured.Load()
	var avg float64
	if frames > 0 {
		avg = float64(b.totalCaptureTime.Load()) / float64(frames) / float64(time.Millisecond)
	}
	return BackendInfo{
		Name:                b.Name(),
		Tier:                b.Tier(),
		AvgCaptureMs:        avg,
		FramesCaptured:      frames,
		ConsecutiveFailures: int(b.consecutiveFailures.Load()),
	}
}

func (b *FallbackBackend) Close() error { return nil }
