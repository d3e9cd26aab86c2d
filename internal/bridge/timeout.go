// timeout.go — Per-request timeout logic for MCP tool calls.
package bridge

import (
	"encoding/json"
	"time"
)

// Timeout constants for different tool categories. capture_screen and
// capture_window round-trip through a capture backend and an encoder;
// stream control calls only touch in-memory state.
const (
	FastTimeout = 5 * time.Second
	SlowTimeout = 30 * time.Second
)

// ToolCallTimeout returns the per-request timeout based on the MCP method and
// tool name (spec §5, "A per-request timeout (default 30s for blocking tool
// calls)"). Resource reads and stream-management calls never block on a
// capture backend, so they get the fast timeout; anything that acquires a
// frame gets the full 30s.
//
// method is the JSON-RPC method (e.g. "tools/call", "resources/read").
// params is the raw JSON of the request params.
func ToolCallTimeout(method string, params json.RawMessage) time.Duration {
	if method != "tools/call" {
		return FastTimeout
	}

	var p struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(params, &p) != nil {
		return FastTimeout
	}

	switch p.Name {
	case "capture_screen", "capture_window":
		return SlowTimeout
	default:
		return FastTimeout
	}
}

// ExtractToolAction extracts the tool name and the stream_id argument (when
// present) from a tools/call request, for logging/correlation purposes.
// Returns empty strings for non-tools/call methods or if parsing fails.
func ExtractToolAction(method string, params json.RawMessage) (toolName, streamID string) {
	if method != "tools/call" {
		return "", ""
	}
	var p struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if json.Unmarshal(params, &p) != nil {
		return "", ""
	}
	var a struct {
		StreamID string `json:"stream_id"`
	}
	_ = json.Unmarshal(p.Arguments, &a)
	return p.Name, a.StreamID
}
