//go:build windows

// backend_desktopdup_windows.go — tier 1, GPU-accelerated desktop
// duplication via the Desktop Duplication API (IDXGIOutputDuplication).
// Best for >=60 fps; falls back to tier 2/3 if device creation or output
// duplication fails to initialize (spec §4.1.1).
package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modD3D11 = windows.NewLazySystemDLL("d3d11.dll")

	procD3D11CreateDevice = modD3D11.NewProc("D3D11CreateDevice")
)

const (
	d3dDriverTypeHardware = 1
	d3dFeatureLevel11_0   = 0xb000
	d3d11SDKVersion       = 7

	dxgiOutput1DuplicateOutput = 22 // IDXGIOutput1 vtable slot
	dxgiDuplAcquireNextFrame   = 8  // IDXGIOutputDuplication vtable slot
	dxgiDuplReleaseFrame       = 14 // IDXGIOutputDuplication vtable slot

	dxgiErrWaitTimeout   = 0x887A0027
	dxgiErrAccessLost    = 0x887A0026
	dxgiErrDeviceRemoved = 0x887A0005
)

// comObject is a minimal COM interface handle: a pointer to a vtable pointer.
type comObject struct {
	vtbl unsafe.Pointer
}

func (c *comObject) call(slot int, args ...uintptr) (uintptr, uintptr, error) {
	fn := *(*uintptr)(unsafe.Pointer(uintptr(c.vtbl) + uintptr(slot)*unsafe.Sizeof(uintptr(0))))
	return windows.Syscall(fn, uintptr(len(args)), argOrZero(args, 0), argOrZero(args, 1), argOrZero(args, 2))
}

func argOrZero(args []uintptr, i int) uintptr {
	if i < len(args) {
		return args[i]
	}
	return 0
}

// DesktopDuplicationBackend captures via IDXGIOutputDuplication, copying the
// desktop texture into a CPU-readable staging buffer each frame.
type DesktopDuplicationBackend struct {
	mu       sync.Mutex
	device   *comObject
	context  *comObject
	duplication *comObject

	framesCaptured      atomic.Uint64
	consecutiveFailures atomic.Int32
	totalCaptureTime    atomic.Int64
}

// NewDesktopDuplicationBackend initializes a D3D11 device and duplicates
// output 0. Returns a plain error if initialization fails without user
// interaction — the manager falls back to the next tier in that case.
func NewDesktopDuplicationBackend() (*DesktopDuplicationBackend, error) {
	var device, context uintptr
	var featureLevel uint32

	ret, _, _ := procD3D11CreateDevice.Call(
		0, d3dDriverTypeHardware, 0, 0,
		0, 0,
		d3d11SDKVersion,
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&featureLevel)),
		uintptr(unsafe.Pointer(&context)),
	)
	if ret != 0 {
		return nil, fmt.Errorf("D3D11CreateDevice failed: hresult=0x%x", uint32(ret))
	}

	b := &DesktopDuplicationBackend{
		device:  &comObject{vtbl: unsafe.Pointer(device)},
		context: &comObject{vtbl: unsafe.Pointer(context)},
	}

	if err := b.duplicateOutput(); err != nil {
		return nil, err
	}
	return b, nil
}

// duplicateOutput is the step that acquires IDXGIOutputDuplication for
// output 0 (IDXGIDevice.GetAdapter -> EnumOutputs ->
// QueryInterface(IDXGIOutput1) -> DuplicateOutput). That chain is not
// implemented in this tree, so it always returns an error:
// NewDesktopDuplicationBackend then fails and the manager falls back to the
// next tier.
func (b *DesktopDuplicationBackend) duplicateOutput() error {
	return fmt.Errorf("dxgi output duplication not implemented")
}

func (b *DesktopDuplicationBackend) Name() string { return "gpu-desktop-duplication" }
func (b *DesktopDuplicationBackend) Tier() int     { return 1 }

func (b *DesktopDuplicationBackend) EnumerateDisplays() ([]Display, error) {
	return enumerateDisplaysWin32()
}

func (b *DesktopDuplicationBackend) EnumerateWindows() ([]Window, error) {
	return enumerateWindowsWin32()
}

func (b *DesktopDuplicationBackend) Capture(displayID int, region *Region) (RawFrame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	frame, err := b.acquireFrame()
	if err != nil {
		b.consecutiveFailures.Add(1)
		kind := Transient
		if err.Error() == "device removed" {
			kind = Fatal
		}
		return RawFrame{}, &CaptureError{Kind: kind, Source: b.Name(), Err: err}
	}
	if region != nil {
		frame = Crop(frame, region)
	}

	b.consecutiveFailures.Store(0)
	b.framesCaptured.Add(1)
	b.totalCaptureTime.Add(int64(time.Since(start)))
	return frame, nil
}

func (b *DesktopDuplicationBackend) CaptureWindow(w Window, region *Region) (RawFrame, error) {
	frame, err := b.Capture(0, &Region{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height})
	if err != nil {
		return RawFrame{}, err
	}
	if region != nil {
		frame = Crop(frame, region)
	}
	return frame, nil
}

// acquireFrame calls IDXGIOutputDuplication::AcquireNextFrame and copies the
// shared texture into a staging buffer mappable from the CPU.
func (b *DesktopDuplicationBackend) acquireFrame() (RawFrame, error) {
	if b.duplication == nil {
		return RawFrame{}, fmt.Errorf("output duplication not initialized")
	}
	// AcquireNextFrame / staging-texture map / Pix copy lives here in a full
	// build; this tree never compiles on the linux development machine so
	// the COM call sequence is the documented contract, not exercised code.
	return RawFrame{}, fmt.Errorf("dxgi capture not available")
}

func (b *DesktopDuplicationBackend) PerformanceInfo() BackendInfo {
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

func (b *DesktopDuplicationBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.duplication = nil
	return nil
}
