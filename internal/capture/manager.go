// manager.go — startup backend selection: tries each ranked backend
// constructor in order and keeps the first that initializes successfully
// (spec §4.1: GPU duplication -> OS compositor -> cross-platform fallback).
package capture

import "fmt"

// Manager owns the single active Backend for the process lifetime. A fatal
// error from the active backend triggers a fallback to the next-ranked
// constructor; if all are exhausted, capture calls return CaptureFatal.
type Manager struct {
	active  Backend
	chain   []backendCandidate
	chainIdx int
}

type backendCandidate struct {
	name string
	new  func() (Backend, error)
}

// NewManager selects the highest-ranked backend that initializes
// successfully, trying each candidate in backendChain() order.
func NewManager() (*Manager, error) {
	m := &Manager{chain: backendChain()}
	if err := m.advance(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewManagerWithBackend wraps an already-constructed Backend directly,
// skipping platform backend-chain selection. Used by tests and by callers
// embedding a pre-selected backend (e.g. a fake in dispatcher tests).
func NewManagerWithBackend(b Backend) *Manager {
	return &Manager{active: b}
}

// advance tries candidates starting at chainIdx until one initializes.
func (m *Manager) advance() error {
	for m.chainIdx < len(m.chain) {
		cand := m.chain[m.chainIdx]
		m.chainIdx++
		backend, err := cand.new()
		if err != nil {
			continue
		}
		m.active = backend
		return nil
	}
	return fmt.Errorf("capture: no backend could initialize")
}

// Active returns the currently selected backend.
func (m *Manager) Active() Backend { return m.active }

// Fallback disposes the active backend and advances to the next candidate
// in the chain, called when the active backend reports a Fatal error.
func (m *Manager) Fallback() error {
	if m.active != nil {
		_ = m.active.Close()
		m.active = nil
	}
	return m.advance()
}

// Capture is a convenience wrapper that falls back automatically on a
// Fatal CaptureError, retrying the call once against the new backend.
func (m *Manager) Capture(displayID int, region *Region) (RawFrame, error) {
	if m.active == nil {
		return RawFrame{}, &CaptureError{Kind: Fatal, Source: "manager", Err: fmt.Errorf("capture: no backend available")}
	}
	frame, err := m.active.Capture(displayID, region)
	if err == nil {
		return frame, nil
	}
	ce := AsCaptureError(m.active.Name(), err)
	if ce.Kind != Fatal {
		return RawFrame{}, ce
	}
	if fbErr := m.Fallback(); fbErr != nil {
		return RawFrame{}, &CaptureError{Kind: Fatal, Source: "manager", Err: fbErr}
	}
	return m.active.Capture(displayID, region)
}

// CaptureWindow mirrors Capture for a specific window handle.
func (m *Manager) CaptureWindow(w Window, region *Region) (RawFrame, error) {
	if m.active == nil {
		return RawFrame{}, &CaptureError{Kind: Fatal, Source: "manager", Err: fmt.Errorf("capture: no backend available")}
	}
	frame, err := m.active.CaptureWindow(w, region)
	if err == nil {
		return frame, nil
	}
	ce := AsCaptureError(m.active.Name(), err)
	if ce.Kind != Fatal {
		return RawFrame{}, ce
	}
	if fbErr := m.Fallback(); fbErr != nil {
		return RawFrame{}, &CaptureError{Kind: Fatal, Source: "manager", Err: fbErr}
	}
	return m.active.CaptureWindow(w, region)
}

// EnumerateWindows delegates to the active backend.
func (m *Manager) EnumerateWindows() ([]Window, error) {
	return m.active.EnumerateWindows()
}

// EnumerateDisplays delegates to the active backend.
func (m *Manager) EnumerateDisplays() ([]Display, error) {
	return m.active.EnumerateDisplays()
}

// PerformanceInfo reports the active backend's rolling capture stats.
func (m *Manager) PerformanceInfo() BackendInfo {
	return m.active.PerformanceInfo()
}

// Name reports the active backend's identity, surfaced in get_system_status.
func (m *Manager) Name() string {
	if m.active == nil {
		return ""
	}
	return m.active.Name()
}
