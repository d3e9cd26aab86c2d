// dispatcher_integration_test.go — exercises the full wiring from
// cmd/screencap-mcp's startup routine through internal/mcp.Dispatcher
// against a fake capture backend, mirroring the teacher's
// cmd/dev-console/integration_test.go style of driving the dispatcher
// directly rather than through a live transport.
package main

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/brennhill/screencap-mcp/internal/capture"
	"github.com/brennhill/screencap-mcp/internal/cpu"
	"github.com/brennhill/screencap-mcp/internal/mcp"
	"github.com/brennhill/screencap-mcp/internal/rcache"
	"github.com/brennhill/screencap-mcp/internal/stream"
)

// fakeBackend is a minimal capture.Backend that always succeeds, used so
// these tests don't depend on a real display being present.
type fakeBackend struct{}

func (fakeBackend) Name() string { return "fake" }
func (fakeBackend) Tier() int    { return 1 }
func (fakeBackend) EnumerateDisplays() ([]capture.Display, error) {
	return []capture.Display{{ID: 0, Width: 100, Height: 100, Primary: true}}, nil
}
func (fakeBackend) EnumerateWindows() ([]capture.Window, error) {
	return []capture.Window{{Title: "Terminal", PID: 1, Visible: true, Width: 80, Height: 24}}, nil
}
func (fakeBackend) Capture(displayID int, region *capture.Region) (capture.RawFrame, error) {
	return capture.RawFrame{Width: 8, Height: 8, Pix: make([]byte, 8*8*4), MonotonicCaptureNS: time.Now().UnixNano()}, nil
}
func (fakeBackend) CaptureWindow(w capture.Window, region *capture.Region) (capture.RawFrame, error) {
	return capture.RawFrame{Width: 8, Height: 8, Pix: make([]byte, 8*8*4), MonotonicCaptureNS: time.Now().UnixNano()}, nil
}
func (fakeBackend) PerformanceInfo() capture.BackendInfo { return capture.BackendInfo{Name: "fake", Tier: 1} }
func (fakeBackend) Close() error                         { return nil }

// newTestApp wires the same singletons newApp would, but over a fake
// backend so tests never touch a real display.
func newTestApp(t *testing.T) *app {
	t.Helper()
	log := zap.NewNop().Sugar()
	capMgr := capture.NewManagerWithBackend(fakeBackend{})
	encoder := capture.NewEncoder()
	sampler := cpu.NewSampler(time.Hour)
	cache, err := rcache.New(120)
	if err != nil {
		t.Fatalf("rcache.New: %v", err)
	}
	streamMgr := stream.NewManager(capMgr, encoder, cache, sampler, log)
	deps := &mcp.Deps{
		CapMgr:    capMgr,
		Encoder:   encoder,
		SyncCache: capture.NewSyncCache(capture.DefaultTTL),
		StreamMgr: streamMgr,
		Cache:     cache,
		Log:       log,
		StartedAt: time.Now(),
	}
	a := &app{
		log:       log,
		capMgr:    capMgr,
		cpuSamp:   sampler,
		cache:     cache,
		streamMgr: streamMgr,
		dispatch:  mcp.NewDispatcher(deps),
	}
	t.Cleanup(a.Close)
	return a
}

func callTool(t *testing.T, a *app, name string, args any, binaryCapable bool) mcp.MCPToolResult {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	params, _ := json.Marshal(map[string]json.RawMessage{
		"name":      mustJSON(t, name),
		"arguments": argsJSON,
	})
	req := decodeRequest(t, 1, "tools/call", params)

	resp, _ := a.dispatch.Dispatch(req, binaryCapable)
	if resp == nil {
		t.Fatal("expected a response for a request with an id")
	}
	if resp.Error != nil {
		t.Fatalf("unexpected JSON-RPC error: %+v", resp.Error)
	}
	var result mcp.MCPToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal tool result: %v", err)
	}
	return result
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func decodeRequest(t *testing.T, id any, method string, params json.RawMessage) mcp.JSONRPCRequest {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  json.RawMessage(params),
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	var req mcp.JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	return req
}

func TestDispatch_Initialize(t *testing.T) {
	a := newTestApp(t)
	req := decodeRequest(t, 1, "initialize", json.RawMessage(`{}`))

	resp, binary := a.dispatch.Dispatch(req, false)
	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected dispatch result: resp=%+v", resp)
	}
	if binary != nil {
		t.Fatal("initialize should never yield a binary resource response")
	}
	var result mcp.MCPInitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal initialize result: %v", err)
	}
	if result.ProtocolVersion != mcp.ProtocolVersion {
		t.Fatalf("protocolVersion = %q, want %q", result.ProtocolVersion, mcp.ProtocolVersion)
	}
}

// TestDispatch_CaptureScreenThenRead exercises the spec §8 round-trip law:
// capture -> cache -> resource read returns identical bytes and metadata.
func TestDispatch_CaptureScreenThenRead(t *testing.T) {
	a := newTestApp(t)

	result := callTool(t, a, "capture_screen", map[string]any{"display_id": 0, "format": "png", "quality": 85}, false)
	if result.IsError {
		t.Fatalf("capture_screen returned an error result: %+v", result)
	}

	var payload struct {
		ResourceURI string `json:"resource_uri"`
		Mime        string `json:"mime"`
	}
	extractJSONBody(t, result, &payload)
	if payload.Mime != "image/png" {
		t.Fatalf("mime = %q, want image/png", payload.Mime)
	}
	if !regexp.MustCompile(`^screen://capture/[a-f0-9]{12}$`).MatchString(payload.ResourceURI) {
		t.Fatalf("resource_uri %q does not match the spec §8 scenario-1 pattern", payload.ResourceURI)
	}

	readParams, _ := json.Marshal(map[string]string{"uri": payload.ResourceURI})
	req := decodeRequest(t, 2, "resources/read", readParams)
	resp, _ := a.dispatch.Dispatch(req, false)
	if resp == nil || resp.Error != nil {
		t.Fatalf("resources/read failed: resp=%+v", resp)
	}
	var readResult mcp.MCPResourcesReadResult
	if err := json.Unmarshal(resp.Result, &readResult); err != nil {
		t.Fatalf("unmarshal resources/read result: %v", err)
	}
	if len(readResult.Contents) != 1 || readResult.Contents[0].Blob == "" {
		t.Fatalf("expected one content block with a base64 blob, got %+v", readResult.Contents)
	}
}

// TestDispatch_ResourcesReadMissingURI is the regression case this pass
// fixed: a cache miss on resources/read must be a JSON-RPC -32001 error
// (spec §6), not a successful tool-shaped result.
func TestDispatch_ResourcesReadMissingURI(t *testing.T) {
	a := newTestApp(t)
	readParams, _ := json.Marshal(map[string]string{"uri": "screen://capture/000000000000"})
	req := decodeRequest(t, 7, "resources/read", readParams)

	resp, binary := a.dispatch.Dispatch(req, false)
	if resp == nil {
		t.Fatal("expected a response for a request with an id")
	}
	if binary != nil {
		t.Fatal("a cache miss must not yield a binary resource response")
	}
	if resp.Error == nil {
		t.Fatal("expected a JSON-RPC error for an unknown resource uri")
	}
	if resp.Error.Code != mcp.CodeResourceNotFound {
		t.Fatalf("error.code = %d, want %d (ResourceNotFound)", resp.Error.Code, mcp.CodeResourceNotFound)
	}
}

// TestDispatch_ResourcesReadBinaryCapable checks the WS-only ack shape
// (spec §4.7/§4.8): the JSON-RPC result carries {binary:true,size,mimeType}
// and the raw bytes ride along on the side channel instead of base64.
func TestDispatch_ResourcesReadBinaryCapable(t *testing.T) {
	a := newTestApp(t)
	result := callTool(t, a, "capture_screen", map[string]any{"display_id": 0, "format": "jpeg", "quality": 80}, true)
	var payload struct {
		ResourceURI string `json:"resource_uri"`
	}
	extractJSONBody(t, result, &payload)

	readParams, _ := json.Marshal(map[string]string{"uri": payload.ResourceURI})
	req := decodeRequest(t, 3, "resources/read", readParams)
	resp, binary := a.dispatch.Dispatch(req, true)
	if resp == nil || resp.Error != nil {
		t.Fatalf("resources/read failed: resp=%+v", resp)
	}
	if binary == nil {
		t.Fatal("expected a BinaryResourceResponse for a binary-capable transport")
	}
	if len(binary.Bytes) == 0 {
		t.Fatal("expected non-empty binary bytes")
	}
	var ack struct {
		Binary   bool   `json:"binary"`
		Size     int    `json:"size"`
		MimeType string `json:"mimeType"`
	}
	if err := json.Unmarshal(resp.Result, &ack); err != nil {
		t.Fatalf("unmarshal binary ack: %v", err)
	}
	if !ack.Binary || ack.Size != len(binary.Bytes) || ack.MimeType != binary.Mime {
		t.Fatalf("ack mismatch: %+v vs binary bytes=%d mime=%s", ack, len(binary.Bytes), binary.Mime)
	}
}

// TestDispatch_CreateStreamRoundTrip is the spec §8 round-trip law:
// create_stream followed immediately by get_stream_info returns a Running
// session with the requested parameters.
func TestDispatch_CreateStreamRoundTrip(t *testing.T) {
	a := newTestApp(t)
	result := callTool(t, a, "create_stream", map[string]any{"display_id": 0, "fps": 30, "quality": 70, "format": "jpeg"}, false)
	var created struct {
		StreamID string `json:"stream_id"`
	}
	extractJSONBody(t, result, &created)
	if created.StreamID == "" {
		t.Fatal("expected a non-empty stream_id")
	}
	t.Cleanup(func() { a.streamMgr.Stop(created.StreamID) })

	info := callTool(t, a, "get_stream_info", map[string]any{"stream_id": created.StreamID}, false)
	var infoBody struct {
		State     string `json:"state"`
		TargetFPS int    `json:"fps"`
		Quality   int    `json:"quality"`
	}
	extractJSONBody(t, info, &infoBody)
	if infoBody.State != "running" {
		t.Fatalf("state = %q, want running", infoBody.State)
	}
	if infoBody.TargetFPS != 30 {
		t.Fatalf("fps = %d, want 30", infoBody.TargetFPS)
	}

	stopResult := callTool(t, a, "stop_stream", map[string]any{"stream_id": created.StreamID}, false)
	var stopBody struct {
		Stopped bool `json:"stopped"`
	}
	extractJSONBody(t, stopResult, &stopBody)
	if !stopBody.Stopped {
		t.Fatal("expected stopped=true")
	}
}

// TestDispatch_MaxConcurrentStreams is spec §8 end-to-end scenario 4: the
// (max+1)th stream fails with ResourceExhausted while the rest succeed.
func TestDispatch_MaxConcurrentStreams(t *testing.T) {
	a := newTestApp(t)
	a.streamMgr.SetMaxConcurrentStreams(3)

	var ids []string
	for i := 0; i < 3; i++ {
		result := callTool(t, a, "create_stream", map[string]any{"display_id": 0, "fps": 5, "quality": 50, "format": "jpeg"}, false)
		if result.IsError {
			t.Fatalf("stream %d: unexpected error result: %+v", i, result)
		}
		var created struct {
			StreamID string `json:"stream_id"`
		}
		extractJSONBody(t, result, &created)
		ids = append(ids, created.StreamID)
	}
	t.Cleanup(func() {
		for _, id := range ids {
			a.streamMgr.Stop(id)
		}
	})

	overflow := callTool(t, a, "create_stream", map[string]any{"display_id": 0, "fps": 5, "quality": 50, "format": "jpeg"}, false)
	if !overflow.IsError {
		t.Fatal("expected the 4th stream to fail with ResourceExhausted")
	}
	if len(overflow.Content) == 0 {
		t.Fatal("expected error content")
	}
}

func TestDispatch_UnknownMethodReturnsMethodNotFound(t *testing.T) {
	a := newTestApp(t)
	req := decodeRequest(t, 9, "bogus/method", json.RawMessage(`{}`))
	resp, _ := a.dispatch.Dispatch(req, false)
	if resp == nil || resp.Error == nil {
		t.Fatal("expected a JSON-RPC error")
	}
	if resp.Error.Code != mcp.CodeMethodNotFound {
		t.Fatalf("error.code = %d, want %d", resp.Error.Code, mcp.CodeMethodNotFound)
	}
}

func TestDispatch_NotificationReceivesNoResponse(t *testing.T) {
	a := newTestApp(t)
	raw, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "notifications/progress", "params": map[string]any{}})
	var req mcp.JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	resp, binary := a.dispatch.Dispatch(req, false)
	if resp != nil || binary != nil {
		t.Fatal("a request with no id must receive no response")
	}
}

// extractJSONBody parses the JSON payload out of a text content block
// formatted as "<summary>\n<json>" (response.JSONResponse's convention).
func extractJSONBody(t *testing.T, result mcp.MCPToolResult, v any) {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected at least one content block")
	}
	text := result.Content[0].Text
	body := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		body = text[idx+1:]
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("unmarshal tool content body %q: %v", body, err)
	}
}
