// tools.go — the static tool table (spec §9 "Dynamic tool registry... is
// re-expressed as a static tool table built at startup"). Each entry pairs
// a JSON-schema argument description with a handler closing over Deps; the
// dispatcher looks entries up by name and never reflects over handlers.
package mcp

import "encoding/json"

// ToolHandler executes one tool call. args is the raw "arguments" object
// from the tools/call request (possibly empty); the handler is responsible
// for defaulting and validating its own fields and for building its own
// MCPToolResult via the TextResponse/JSONResponse/StructuredErrorResponse
// helpers in response.go/errors.go.
type ToolHandler func(args json.RawMessage, deps *Deps) json.RawMessage

// ToolDef pairs a tool's MCP descriptor with its handler.
type ToolDef struct {
	Tool    MCPTool
	Handler ToolHandler
}

// Registry is the immutable, startup-built tool table.
type Registry struct {
	tools map[string]ToolDef
	order []string
}

// NewRegistry builds the full tool table described in spec §6.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]ToolDef)}
	r.register("capture_screen", "Capture the current contents of a display as a PNG or JPEG image, returning a resource URI.", captureScreenSchema(), handleCaptureScreen)
	r.register("create_stream", "Start a live stream of a display at a target frame rate, returning a stream id.", createStreamSchema(), handleCreateStream)
	r.register("stop_stream", "Stop a live stream by id.", streamIDSchema(), handleStopStream)
	r.register("list_streams", "List all active streams.", emptySchema(), handleListStreams)
	r.register("get_stream_info", "Get detailed status and metrics for one stream.", streamIDSchema(), handleGetStreamInfo)
	r.register("list_windows", "Enumerate visible (or all) windows on the desktop.", listWindowsSchema(), handleListWindows)
	r.register("capture_window", "Capture a specific window matched by title, returning a resource URI.", captureWindowSchema(), handleCaptureWindow)
	r.register("get_system_status", "Report capture backend availability and active stream count.", emptySchema(), handleGetSystemStatus)
	r.register("get_performance_metrics", "Report aggregate capture and streaming performance metrics.", emptySchema(), handleGetPerformanceMetrics)
	return r
}

func (r *Registry) register(name, description string, schema map[string]any, handler ToolHandler) {
	r.tools[name] = ToolDef{
		Tool: MCPTool{
			Name:        name,
			Description: description,
			InputSchema: schema,
		},
		Handler: handler,
	}
	r.order = append(r.order, name)
}

// Lookup returns the ToolDef for name, or false if unknown.
func (r *Registry) Lookup(name string) (ToolDef, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns every tool descriptor in registration order, for tools/list.
func (r *Registry) List() []MCPTool {
	out := make([]MCPTool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Tool)
	}
	return out
}

func emptySchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func streamIDSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stream_id": map[string]any{"type": "string", "description": "Stream id returned by create_stream"},
		},
		"required": []string{"stream_id"},
	}
}

func captureScreenSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"display_id": map[string]any{"type": "integer", "default": 0},
			"format":     map[string]any{"type": "string", "enum": []string{"png", "jpeg"}, "default": "png"},
			"quality":    map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "default": 85},
		},
	}
}

func captureWindowSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title_pattern":  map[string]any{"type": "string", "description": "Substring or regex to match against window titles"},
			"format":         map[string]any{"type": "string", "enum": []string{"png", "jpeg"}, "default": "png"},
			"quality":        map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "default": 85},
			"case_sensitive": map[string]any{"type": "boolean", "default": false},
		},
		"required": []string{"title_pattern"},
	}
}

func createStreamSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"display_id":               map[string]any{"type": "integer", "default": 0},
			"fps":                      map[string]any{"type": "integer", "minimum": 1, "maximum": 120, "default": 10},
			"quality":                  map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "default": 80},
			"format":                   map[string]any{"type": "string", "enum": []string{"png", "jpeg"}, "default": "jpeg"},
			"frame_skip_enabled":       map[string]any{"type": "boolean", "default": true},
			"adaptive_quality_enabled": map[string]any{"type": "boolean", "default": false},
			"min_quality":              map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
			"max_quality":              map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
			"region": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"x": map[string]any{"type": "integer"}, "y": map[string]any{"type": "integer"},
					"width": map[string]any{"type": "integer"}, "height": map[string]any{"type": "integer"},
				},
			},
		},
	}
}

func listWindowsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"visible_only": map[string]any{"type": "boolean", "default": true},
		},
	}
}
