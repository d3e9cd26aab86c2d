package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/brennhill/screencap-mcp/internal/logging"
	"github.com/brennhill/screencap-mcp/internal/mcp"
	"github.com/brennhill/screencap-mcp/internal/rcache"
)

func newTestDeps(t *testing.T) *mcp.Deps {
	t.Helper()
	cache, err := rcache.New(8)
	if err != nil {
		t.Fatalf("rcache.New: %v", err)
	}
	return &mcp.Deps{Cache: cache, StartedAt: time.Now()}
}

func TestRunIOEchoesToolsList(t *testing.T) {
	d := mcp.NewDispatcher(newTestDeps(t))
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n")
	var out bytes.Buffer

	if err := RunIO(context.Background(), in, &out, d, logging.Noop()); err != nil {
		t.Fatalf("RunIO returned error: %v", err)
	}

	var resp mcp.JSONRPCResponse
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("response not valid JSON: %v (%q)", err, out.String())
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error response: %+v", resp.Error)
	}
	var result mcp.MCPToolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("result not a tools list: %v", err)
	}
	if len(result.Tools) == 0 {
		t.Fatal("expected at least one registered tool")
	}
}

func TestRunIONotificationGetsNoResponse(t *testing.T) {
	d := mcp.NewDispatcher(newTestDeps(t))
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	var out bytes.Buffer

	if err := RunIO(context.Background(), in, &out, d, logging.Noop()); err != nil {
		t.Fatalf("RunIO returned error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output for a notification, got %q", out.String())
	}
}

func TestRunIOParseErrorReturnsJSONRPCError(t *testing.T) {
	d := mcp.NewDispatcher(newTestDeps(t))
	in := strings.NewReader("not json\n")
	var out bytes.Buffer

	if err := RunIO(context.Background(), in, &out, d, logging.Noop()); err != nil {
		t.Fatalf("RunIO returned error: %v", err)
	}
	var resp mcp.JSONRPCResponse
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != mcp.CodeParseError {
		t.Fatalf("expected a parse error response, got %+v", resp)
	}
}

func TestRunIOUnknownMethodReturnsMethodNotFound(t *testing.T) {
	d := mcp.NewDispatcher(newTestDeps(t))
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"x","method":"bogus/method"}` + "\n")
	var out bytes.Buffer

	if err := RunIO(context.Background(), in, &out, d, logging.Noop()); err != nil {
		t.Fatalf("RunIO returned error: %v", err)
	}
	var resp mcp.JSONRPCResponse
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != mcp.CodeMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", resp)
	}
}

func TestRunIOFIFOOrderAcrossMultipleRequests(t *testing.T) {
	d := mcp.NewDispatcher(newTestDeps(t))
	in := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"resources/list"}` + "\n" +
			`{"jsonrpc":"2.0","id":3,"method":"prompts/list"}` + "\n",
	)
	var out bytes.Buffer

	if err := RunIO(context.Background(), in, &out, d, logging.Noop()); err != nil {
		t.Fatalf("RunIO returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 response lines, got %d: %q", len(lines), out.String())
	}
	for i, line := range lines {
		var resp mcp.JSONRPCResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("line %d not valid JSON: %v", i, err)
		}
		wantID := float64(i + 1)
		gotID, ok := resp.ID.(float64)
		if !ok || gotID != wantID {
			t.Fatalf("line %d: expected id %v, got %v", i, wantID, resp.ID)
		}
	}
}
