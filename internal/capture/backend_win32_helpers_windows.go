//go:build windows

// backend_win32_helpers_windows.go — Win32 enumeration shared by the GPU
// and (future) compositor-tier backends: monitors via EnumDisplayMonitors,
// top-level windows via EnumWindows.
package capture

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modUser32 = windows.NewLazySystemDLL("user32.dll")

	procEnumDisplayMonitors = modUser32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW     = modUser32.NewProc("GetMonitorInfoW")
	procEnumWindows         = modUser32.NewProc("EnumWindows")
	procGetWindowTextW      = modUser32.NewProc("GetWindowTextW")
	procGetWindowRect       = modUser32.NewProc("GetWindowRect")
	procIsWindowVisible     = modUser32.NewProc("IsWindowVisible")
	procIsIconic            = modUser32.NewProc("IsIconic")
	procGetWindowThreadProcessId = modUser32.NewProc("GetWindowThreadProcessId")
)

type win32Rect struct{ Left, Top, Right, Bottom int32 }

type monitorInfo struct {
	Size    uint32
	Monitor win32Rect
	Work    win32Rect
	Flags   uint32
}

const monitorInfoFPrimary = 0x1

func enumerateDisplaysWin32() ([]Display, error) {
	var displays []Display
	cb := syscall.NewCallback(func(hMonitor, _, _, lparam uintptr) uintptr {
		var mi monitorInfo
		mi.Size = uint32(unsafe.Sizeof(mi))
		procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&mi)))
		displays = append(displays, Display{
			ID:      len(displays),
			X:       int(mi.Monitor.Left),
			Y:       int(mi.Monitor.Top),
			Width:   int(mi.Monitor.Right - mi.Monitor.Left),
			Height:  int(mi.Monitor.Bottom - mi.Monitor.Top),
			Primary: mi.Flags&monitorInfoFPrimary != 0,
		})
		return 1
	})
	procEnumDisplayMonitors.Call(0, 0, cb, 0)
	return displays, nil
}

func enumerateWindowsWin32() ([]Window, error) {
	var windowsOut []Window
	cb := syscall.NewCallback(func(hwnd, _ uintptr) uintptr {
		var buf [256]uint16
		n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
		if n == 0 {
			return 1
		}
		title := syscall.UTF16ToString(buf[:n])

		var rect win32Rect
		procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&rect)))

		visible, _, _ := procIsWindowVisible.Call(hwnd)
		iconic, _, _ := procIsIconic.Call(hwnd)

		var pid uint32
		procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

		windowsOut = append(windowsOut, Window{
			Handle:    hwnd,
			Title:     title,
			PID:       int(pid),
			X:         int(rect.Left),
			Y:         int(rect.Top),
			Width:     int(rect.Right - rect.Left),
			Height:    int(rect.Bottom - rect.Top),
			Visible:   visible != 0,
			Minimized: iconic != 0,
		})
		return 1
	})
	procEnumWindows.Call(cb, 0)
	return windowsOut, nil
}
