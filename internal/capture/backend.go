// backend.go — the CaptureBackend capability set and the types it produces
// (spec §3 DATA MODEL, §4.1 CaptureBackend).
package capture

import "time"

// Display describes a connected output, enumerated at process start.
type Display struct {
	ID      int  `json:"id"`
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Width   int  `json:"width"`
	Height  int  `json:"height"`
	Primary bool `json:"primary"`
}

// Window describes a platform window handle. Handles may go stale between
// calls; callers must treat them as potentially invalid.
type Window struct {
	Handle    uintptr `json:"-"`
	Title     string  `json:"title"`
	PID       int     `json:"pid"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Visible   bool    `json:"visible"`
	Minimized bool    `json:"minimized"`
}

// Region crops a capture to a sub-rectangle of the source.
type Region struct {
	X, Y, Width, Height int
}

// RawFrame is the transient, backend-owned pixel buffer a capture call
// produces. Never stored — it is either cropped/encoded immediately or
// discarded.
type RawFrame struct {
	Pix                []byte // RGBA or BGRA, per BGRA field below
	Width              int
	Height             int
	BGRA               bool
	MonotonicCaptureNS int64
}

// BackendInfo reports a backend's identity and rolling performance stats,
// surfaced via get_performance_metrics / get_system_status.
type BackendInfo struct {
	Name                string        `json:"name"`
	Tier                int           `json:"tier"`
	AvgCaptureTime      time.Duration `json:"-"`
	AvgCaptureMs        float64       `json:"avg_capture_ms"`
	FramesCaptured      uint64        `json:"frames_captured"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// Backend is the capability set a concrete platform implementation exposes.
// Implementations are stateful (GPU device handles, duplication sessions)
// and must be disposable via Close.
type Backend interface {
	Name() string
	Tier() int

	EnumerateDisplays() ([]Display, error)
	// EnumerateWindows is optional; implementations that cannot enumerate
	// windows return ErrNotSupported.
	EnumerateWindows() ([]Window, error)

	// Capture acquires a frame from a display. region is optional; a
	// backend that cannot crop in hardware should ignore it and let the
	// caller crop the RawFrame afterward.
	Capture(displayID int, region *Region) (RawFrame, error)
	// CaptureWindow acquires a frame from a specific window handle.
	CaptureWindow(w Window, region *Region) (RawFrame, error)

	PerformanceInfo() BackendInfo

	Close() error
}
