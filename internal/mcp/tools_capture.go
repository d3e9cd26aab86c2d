// tools_capture.go — handlers for capture_screen, capture_window,
// list_windows, get_system_status, get_performance_metrics (spec §6).
package mcp

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/brennhill/screencap-mcp/internal/capture"
)

type captureScreenArgs struct {
	DisplayID int    `json:"display_id"`
	Format    string `json:"format"`
	Quality   int    `json:"quality"`
}

// handleCaptureScreen implements the capture_screen tool (spec §6, §8
// scenario 1: resource_uri matching ^screen://capture/[a-f0-9]{12}$).
func handleCaptureScreen(args json.RawMessage, deps *Deps) json.RawMessage {
	a := captureScreenArgs{Format: "png", Quality: 85}
	LenientUnmarshal(args, &a)

	format, errResp := validateFormatQuality(a.Format, a.Quality)
	if errResp != nil {
		return errResp
	}

	key := capture.Key(displayKey(a.DisplayID), nil, format)
	raw, ok := deps.SyncCache.Get(key)
	if !ok {
		frame, err := deps.CapMgr.Capture(a.DisplayID, nil)
		if err != nil {
			return captureErrorResponse(err)
		}
		deps.SyncCache.Put(key, frame)
		raw = frame
	}

	return encodeAndCache(deps, raw, format, a.Quality, displayKey(a.DisplayID))
}

type captureWindowArgs struct {
	TitlePattern  string `json:"title_pattern"`
	Format        string `json:"format"`
	Quality       int    `json:"quality"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// handleCaptureWindow implements the capture_window tool.
func handleCaptureWindow(args json.RawMessage, deps *Deps) json.RawMessage {
	a := captureWindowArgs{Format: "png", Quality: 85}
	LenientUnmarshal(args, &a)

	if strings.TrimSpace(a.TitlePattern) == "" {
		return StructuredErrorResponse(ErrMissingParam, "title_pattern is required", "Add a 'title_pattern' argument and call again", WithParam("title_pattern"))
	}
	format, errResp := validateFormatQuality(a.Format, a.Quality)
	if errResp != nil {
		return errResp
	}

	win, err := findWindow(deps, a.TitlePattern, a.CaseSensitive)
	if err != nil {
		return StructuredErrorResponse(ErrInvalidParam, err.Error(), "Call list_windows to see available titles and retry with an exact or partial match", WithParam("title_pattern"))
	}

	frame, err := deps.CapMgr.CaptureWindow(win, nil)
	if err != nil {
		return captureErrorResponse(err)
	}
	return encodeAndCache(deps, frame, format, a.Quality, "window:"+win.Title)
}

func findWindow(deps *Deps, pattern string, caseSensitive bool) (capture.Window, error) {
	windows, err := deps.CapMgr.EnumerateWindows()
	if err != nil {
		return capture.Window{}, err
	}
	needle := pattern
	if !caseSensitive {
		needle = strings.ToLower(needle)
	}
	re, reErr := regexp.Compile(pattern)
	for _, w := range windows {
		title := w.Title
		if !caseSensitive {
			title = strings.ToLower(title)
		}
		if strings.Contains(title, needle) {
			return w, nil
		}
		if reErr == nil && re.MatchString(w.Title) {
			return w, nil
		}
	}
	return capture.Window{}, errNoMatchingWindow(pattern)
}

type listWindowsArgs struct {
	VisibleOnly bool `json:"visible_only"`
}

// handleListWindows implements the list_windows tool.
func handleListWindows(args json.RawMessage, deps *Deps) json.RawMessage {
	a := listWindowsArgs{VisibleOnly: true}
	LenientUnmarshal(args, &a)

	windows, err := deps.CapMgr.EnumerateWindows()
	if err != nil {
		if err == capture.ErrNotSupported {
			return JSONResponse("Window enumeration not supported by the active backend", map[string]any{"windows": []any{}})
		}
		return StructuredErrorResponse(ErrInternal, err.Error(), "Retry; if the error persists this backend does not support window enumeration")
	}

	filtered := make([]capture.Window, 0, len(windows))
	for _, w := range windows {
		if a.VisibleOnly && !w.Visible {
			continue
		}
		filtered = append(filtered, w)
	}
	return JSONResponse("Windows enumerated", map[string]any{"windows": filtered})
}

// handleGetSystemStatus implements get_system_status.
func handleGetSystemStatus(args json.RawMessage, deps *Deps) json.RawMessage {
	status := map[string]any{
		"capture_available": deps.CapMgr.Active() != nil,
		"backend":           deps.CapMgr.Name(),
		"active_streams":    deps.StreamMgr.ActiveCount(),
	}
	return JSONResponse("System status", status)
}

// handleGetPerformanceMetrics implements get_performance_metrics.
func handleGetPerformanceMetrics(args json.RawMessage, deps *Deps) json.RawMessage {
	streams := deps.StreamMgr.List()
	agg := map[string]any{
		"backend":        deps.CapMgr.PerformanceInfo(),
		"cache_entries":  deps.Cache.Len(),
		"active_streams": len(streams),
		"streams":        streams,
	}
	return JSONResponse("Performance metrics", agg)
}

func displayKey(id int) string {
	return "display:" + strconv.Itoa(id)
}
