package capture

import (
	"errors"
	"testing"
	"time"
)

func TestSyncCache_HitWithinTTL(t *testing.T) {
	c := NewSyncCache(50 * time.Millisecond)
	key := Key("display:0", nil, FormatPNG)
	c.Put(key, RawFrame{Width: 10, Height: 10})

	if _, ok := c.Get(key); !ok {
		t.Fatal("expected hit immediately after put")
	}
}

func TestSyncCache_MissAfterTTL(t *testing.T) {
	c := NewSyncCache(10 * time.Millisecond)
	key := Key("display:0", nil, FormatPNG)
	c.Put(key, RawFrame{Width: 10, Height: 10})

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss after TTL elapsed")
	}
}

func TestKey_DistinguishesRegionAndFormat(t *testing.T) {
	k1 := Key("display:0", nil, FormatPNG)
	k2 := Key("display:0", nil, FormatJPEG)
	k3 := Key("display:0", &Region{X: 0, Y: 0, Width: 10, Height: 10}, FormatPNG)
	if k1 == k2 || k1 == k3 || k2 == k3 {
		t.Fatalf("expected distinct keys, got %q %q %q", k1, k2, k3)
	}
}

func TestCrop_NilRegionReturnsUnchanged(t *testing.T) {
	f := RawFrame{Width: 10, Height: 10, Pix: make([]byte, 10*10*4)}
	got := Crop(f, nil)
	if got.Width != 10 || got.Height != 10 {
		t.Fatalf("expected unchanged frame, got %dx%d", got.Width, got.Height)
	}
}

func TestCrop_ProducesRequestedDimensions(t *testing.T) {
	f := RawFrame{Width: 100, Height: 100, Pix: make([]byte, 100*100*4)}
	got := Crop(f, &Region{X: 10, Y: 10, Width: 20, Height: 30})
	if got.Width != 20 || got.Height != 30 {
		t.Fatalf("cropped dims = %dx%d, want 20x30", got.Width, got.Height)
	}
}

func TestEncoder_PNGRoundTrip(t *testing.T) {
	enc := NewEncoder()
	f := RawFrame{Width: 4, Height: 4, Pix: make([]byte, 4*4*4)}
	encoded, _, err := enc.Encode(f, FormatPNG, 80)
	if err != nil {
		t.Fatal(err)
	}
	if encoded.Mime != "image/png" {
		t.Fatalf("mime = %q, want image/png", encoded.Mime)
	}
	if len(encoded.Bytes) == 0 {
		t.Fatal("expected non-empty encoded bytes")
	}
}

func TestEncoder_JPEGRoundTrip(t *testing.T) {
	enc := NewEncoder()
	f := RawFrame{Width: 4, Height: 4, Pix: make([]byte, 4*4*4)}
	encoded, _, err := enc.Encode(f, FormatJPEG, 85)
	if err != nil {
		t.Fatal(err)
	}
	if encoded.Mime != "image/jpeg" {
		t.Fatalf("mime = %q, want image/jpeg", encoded.Mime)
	}
}

func TestEncoder_BGRAInput(t *testing.T) {
	enc := NewEncoder()
	f := RawFrame{Width: 2, Height: 2, Pix: make([]byte, 2*2*4), BGRA: true}
	_, _, err := enc.Encode(f, FormatPNG, 80)
	if err != nil {
		t.Fatal(err)
	}
}

type fakeBackend struct {
	name     string
	tier     int
	failWith error
}

func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) Tier() int    { return f.tier }
func (f *fakeBackend) EnumerateDisplays() ([]Display, error) {
	return []Display{{ID: 0, Width: 100, Height: 100, Primary: true}}, nil
}
func (f *fakeBackend) EnumerateWindows() ([]Window, error) { return nil, ErrNotSupported }
func (f *fakeBackend) Capture(displayID int, region *Region) (RawFrame, error) {
	if f.failWith != nil {
		return RawFrame{}, f.failWith
	}
	return RawFrame{Width: 10, Height: 10, Pix: make([]byte, 10*10*4)}, nil
}
func (f *fakeBackend) CaptureWindow(w Window, region *Region) (RawFrame, error) {
	return f.Capture(0, region)
}
func (f *fakeBackend) PerformanceInfo() BackendInfo { return BackendInfo{Name: f.name, Tier: f.tier} }
func (f *fakeBackend) Close() error                 { return nil }

func TestManager_FallsBackOnFatalError(t *testing.T) {
	primary := &fakeBackend{name: "primary", tier: 1, failWith: &CaptureError{Kind: Fatal, Source: "primary", Err: errors.New("device lost")}}
	secondary := &fakeBackend{name: "secondary", tier: 3}

	m := &Manager{
		active: primary,
		chain: []backendCandidate{
			{name: "secondary", new: func() (Backend, error) { return secondary, nil }},
		},
	}

	frame, err := m.Capture(0, nil)
	if err != nil {
		t.Fatalf("expected fallback capture to succeed, got %v", err)
	}
	if frame.Width != 10 {
		t.Fatalf("unexpected frame from fallback: %+v", frame)
	}
	if m.Active().Name() != "secondary" {
		t.Fatalf("expected active backend to be secondary, got %s", m.Active().Name())
	}
}

func TestManager_TransientErrorDoesNotFallBack(t *testing.T) {
	primary := &fakeBackend{name: "primary", tier: 1, failWith: &CaptureError{Kind: Transient, Source: "primary", Err: errors.New("flake")}}
	m := &Manager{active: primary}

	_, err := m.Capture(0, nil)
	if err == nil {
		t.Fatal("expected error to propagate for transient failure")
	}
	if m.Active().Name() != "primary" {
		t.Fatal("transient error should not trigger fallback")
	}
}

func TestAsCaptureError_WrapsPlainError(t *testing.T) {
	ce := AsCaptureError("src", errors.New("boom"))
	if ce.Kind != Fatal {
		t.Fatalf("expected plain errors to wrap as Fatal, got %v", ce.Kind)
	}
}
