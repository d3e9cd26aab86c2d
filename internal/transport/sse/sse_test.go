package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brennhill/screencap-mcp/internal/logging"
	"github.com/brennhill/screencap-mcp/internal/mcp"
	"github.com/brennhill/screencap-mcp/internal/rcache"
)

func newTestDispatcher(t *testing.T) *mcp.Dispatcher {
	t.Helper()
	cache, err := rcache.New(8)
	if err != nil {
		t.Fatalf("rcache.New: %v", err)
	}
	return mcp.NewDispatcher(&mcp.Deps{Cache: cache, StartedAt: time.Now()})
}

func TestHandleSSESendsEndpointEvent(t *testing.T) {
	registry := NewRegistry()
	handler := HandleSSE(registry, logging.Noop())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	// Give the handler a moment to write the endpoint event, then disconnect.
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after context cancellation")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: endpoint") {
		t.Fatalf("expected an endpoint event, got %q", body)
	}
	if !strings.Contains(body, "/messages?sessionId=") {
		t.Fatalf("expected endpoint data to carry a POST uri, got %q", body)
	}
}

func TestHandleMessagesUnknownSessionReturns404(t *testing.T) {
	registry := NewRegistry()
	d := newTestDispatcher(t)
	handler := HandleMessages(registry, d, nil, logging.Noop())

	req := httptest.NewRequest(http.MethodPost, "/messages?sessionId=does-not-exist", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleMessagesDispatchesSynchronously(t *testing.T) {
	registry := NewRegistry()
	conn, err := registry.Register(context.Background(), httptest.NewRecorder())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	d := newTestDispatcher(t)
	handler := HandleMessages(registry, d, nil, logging.Noop())

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	req := httptest.NewRequest(http.MethodPost, "/messages?sessionId="+conn.SessionID, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp mcp.JSONRPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}
