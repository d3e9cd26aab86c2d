// dispatcher.go — the transport-agnostic ProtocolDispatcher (spec §4.7). A
// single Dispatch call handles one JSON-RPC request from any transport;
// binary framing for WS is expressed as a side return value the dispatcher
// never writes to the wire itself.
package mcp

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// ProtocolVersion is the MCP wire version this dispatcher implements.
const ProtocolVersion = "2024-11-05"

// ServerName/ServerVersion populate the initialize response.
const (
	ServerName    = "screencap-mcp"
	ServerVersion = "1.0.0"
)

// Dispatcher routes JSON-RPC requests to the tool registry and resource
// cache. It holds no per-connection state — every transport shares one
// instance (spec §4.7 "The dispatcher is transport-agnostic").
type Dispatcher struct {
	registry *Registry
	deps     *Deps
}

// NewDispatcher constructs a Dispatcher over a freshly built tool registry.
func NewDispatcher(deps *Deps) *Dispatcher {
	return &Dispatcher{registry: NewRegistry(), deps: deps}
}

// BinaryResourceResponse is yielded alongside a JSONRPCResponse when a
// resources/read is served to a binary-capable transport (spec §4.7, §4.8).
// Only WS transports should ever receive a non-nil value; SSE/stdio ignore
// it and rely on the base64 `blob` field inside the JSON response instead.
type BinaryResourceResponse struct {
	URI      string
	Mime     string
	Bytes    []byte
	Metadata map[string]any
}

// Dispatch handles one JSON-RPC request. binaryCapable should be true only
// for WS connections; it controls whether resources/read returns inline
// base64 or a BinaryResourceResponse for the transport to frame separately.
// A nil JSONRPCResponse return means the request was a notification and no
// response should be emitted (spec §4.7 "Requests without an id... receive
// no response").
func (d *Dispatcher) Dispatch(req JSONRPCRequest, binaryCapable bool) (*JSONRPCResponse, *BinaryResourceResponse) {
	isNotification := !req.HasID() && !req.HasInvalidID()

	if req.HasInvalidID() {
		resp := NewError(nil, CodeInvalidParams, "invalid request id")
		return &resp, nil
	}

	switch {
	case req.Method == "initialize":
		return d.respond(req, d.handleInitialize(binaryCapable)), nil
	case req.Method == "initialized" || req.Method == "notifications/initialized":
		return nil, nil
	case req.Method == "tools/list":
		return d.respond(req, SafeMarshal(MCPToolsListResult{Tools: d.registry.List()}, `{"tools":[]}`)), nil
	case req.Method == "tools/call":
		return d.handleToolsCall(req), nil
	case req.Method == "resources/list":
		return d.respond(req, d.handleResourcesList()), nil
	case req.Method == "resources/templates/list":
		return d.respond(req, SafeMarshal(MCPResourceTemplatesListResult{ResourceTemplates: []any{}}, `{"resourceTemplates":[]}`)), nil
	case req.Method == "resources/read":
		return d.handleResourcesRead(req, binaryCapable)
	case req.Method == "prompts/list":
		return d.respond(req, handlePromptsList()), nil
	case req.Method == "prompts/get":
		return d.respond(req, handlePromptsGet(req.Params)), nil
	case len(req.Method) >= len("notifications/") && req.Method[:len("notifications/")] == "notifications/":
		// Fire-and-forget; unrecognized notifications are logged and ignored.
		if d.deps.Log != nil {
			d.deps.Log.Debugw("ignored notification", "method", req.Method)
		}
		return nil, nil
	default:
		if isNotification {
			if d.deps.Log != nil {
				d.deps.Log.Debugw("ignored unknown notification", "method", req.Method)
			}
			return nil, nil
		}
		resp := NewError(req.ID, CodeMethodNotFound, "method not found: "+req.Method)
		return &resp, nil
	}
}

// respond wraps a successful result in a JSONRPCResponse, or returns nil
// when the request carried no id (a notification never gets a reply, even
// for methods that would otherwise produce a result).
func (d *Dispatcher) respond(req JSONRPCRequest, result json.RawMessage) *JSONRPCResponse {
	if !req.HasID() {
		return nil
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (d *Dispatcher) handleInitialize(binaryCapable bool) json.RawMessage {
	result := MCPInitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      MCPServerInfo{Name: ServerName, Version: ServerVersion},
		Capabilities: MCPCapabilities{
			Tools:     MCPToolsCapability{},
			Resources: MCPResourcesCapability{},
		},
		Instructions: "Capture the screen or open a live stream, then read resources by the URI returned.",
	}
	// The experimental binaryResources flag (spec §4.7) rides alongside the
	// typed capabilities as raw JSON since it's WS-only and not part of the
	// stable MCPCapabilities shape.
	type initResultWithBinary struct {
		MCPInitializeResult
		Capabilities struct {
			MCPCapabilities
			Experimental map[string]bool `json:"experimental,omitempty"`
		} `json:"capabilities"`
	}
	out := initResultWithBinary{MCPInitializeResult: result}
	out.Capabilities.MCPCapabilities = result.Capabilities
	if binaryCapable {
		out.Capabilities.Experimental = map[string]bool{"binaryResources": true}
	}
	return SafeMarshal(out, `{}`)
}

func (d *Dispatcher) handleToolsCall(req JSONRPCRequest) *JSONRPCResponse {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &call); err != nil {
		if !req.HasID() {
			return nil
		}
		resp := NewError(req.ID, CodeParseError, "malformed tools/call params")
		return &resp
	}

	tool, ok := d.registry.Lookup(call.Name)
	if !ok {
		if !req.HasID() {
			return nil
		}
		resp := NewError(req.ID, CodeMethodNotFound, "unknown tool: "+call.Name)
		return &resp
	}

	warnings := ValidateParamsAgainstSchema(call.Arguments, tool.Tool.InputSchema)
	result := tool.Handler(call.Arguments, d.deps)

	if !req.HasID() {
		return nil
	}
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
	if len(warnings) > 0 {
		resp = AppendWarningsToResponse(resp, warnings)
	}
	return &resp
}

func (d *Dispatcher) handleResourcesList() json.RawMessage {
	entries := d.deps.Cache.List()
	resources := make([]MCPResource, 0, len(entries))
	for _, e := range entries {
		resources = append(resources, MCPResource{
			URI:      e.URI,
			Name:     e.URI,
			MimeType: e.Frame.Mime,
		})
	}
	return SafeMarshal(MCPResourcesListResult{Resources: resources}, `{"resources":[]}`)
}

// handleResourcesRead looks up the requested URI in the cache. A miss is a
// dispatcher-level rejection (spec §6: ResourceNotFound -> -32001), not a
// tool result, since resources/read never reaches a tool handler at all.
func (d *Dispatcher) handleResourcesRead(req JSONRPCRequest, binaryCapable bool) (*JSONRPCResponse, *BinaryResourceResponse) {
	var p struct {
		URI string `json:"uri"`
	}
	_ = json.Unmarshal(req.Params, &p)

	entry, ok := d.deps.Cache.Get(p.URI)
	if !ok {
		if !req.HasID() {
			return nil, nil
		}
		resp := NewError(req.ID, JSONRPCCodeForToolError(ErrResourceNotFound), "no resource at that uri: "+p.URI)
		return &resp, nil
	}

	if binaryCapable {
		ack := SafeMarshal(map[string]any{"binary": true, "size": len(entry.Frame.Bytes), "mimeType": entry.Frame.Mime}, `{}`)
		return d.respond(req, ack), &BinaryResourceResponse{URI: entry.URI, Mime: entry.Frame.Mime, Bytes: entry.Frame.Bytes, Metadata: entry.Frame.Metadata}
	}

	content := MCPResourceContent{
		URI:      entry.URI,
		MimeType: entry.Frame.Mime,
		Blob:     base64.StdEncoding.EncodeToString(entry.Frame.Bytes),
	}
	result := SafeMarshal(MCPResourcesReadResult{Contents: []MCPResourceContent{content}}, `{"contents":[]}`)
	return d.respond(req, result), nil
}

// StartedAt reports server boot time, used by prompts and status tools.
func (d *Dispatcher) StartedAt() time.Time { return d.deps.StartedAt }
