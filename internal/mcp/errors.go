// errors.go — Structured error handling and error codes for MCP tools,
// plus the transport-level JSON-RPC error codes from the spec (§6, §7).
package mcp

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC transport-level error codes (spec §6). These populate
// JSONRPCResponse.Error.Code and are distinct from the tool-level
// StructuredError codes below, which are embedded as text content inside
// a successful JSON-RPC response whose MCPToolResult.IsError is true.
const (
	CodeParseError      = -32700
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeInternalError   = -32000
	CodeResourceNotFound = -32001
	CodeCaptureFailed   = -32002
	CodeResourceExhausted = -32003
	CodeTimeout         = -32004
)

// NewError builds a JSONRPCResponse carrying a transport-level error.
func NewError(id any, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}

// Tool-level error codes are self-describing snake_case strings embedded
// in MCPToolResult text content. Every code tells the caller what went
// wrong and whether retrying makes sense (spec §7).
const (
	// Input errors — caller can fix arguments and retry immediately.
	ErrInvalidJSON  = "invalid_json"
	ErrMissingParam = "missing_param"
	ErrInvalidParam = "invalid_param"

	// Capture errors — spec §7 CaptureTransient / CaptureFatal.
	ErrCaptureTransient = "capture_transient"
	ErrCaptureFatal     = "capture_fatal"
	ErrEncoderFailure   = "encoder_failure"

	// State / resource errors.
	ErrResourceNotFound   = "resource_not_found"
	ErrResourceExhausted  = "resource_exhausted"
	ErrStreamNotFound     = "stream_not_found"

	// Communication errors — retry with backoff.
	ErrTimeout = "timeout"

	// Internal errors — do not retry.
	ErrInternal      = "internal_error"
	ErrMarshalFailed = "marshal_failed"
)

// StructuredError is embedded in MCP text content. Every field is
// self-describing so a calling agent can act on it without a lookup table.
type StructuredError struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	Retry        string `json:"retry"`
	Retryable    bool   `json:"retryable"`
	RetryAfterMs int    `json:"retry_after_ms,omitempty"`
	Param        string `json:"param,omitempty"`
	Hint         string `json:"hint,omitempty"`
}

// StructuredErrorResponse constructs an MCP tool error result. Format:
//
//	Error: missing_param — Add the 'display_id' parameter and call again
//	{"error":"missing_param","message":"...","retry":"...","hint":"..."}
//
// The retry string is a plain-English instruction the caller can follow directly.
func StructuredErrorResponse(code, message, retry string, opts ...func(*StructuredError)) json.RawMessage {
	se := StructuredError{Error: code, Message: message, Retry: retry}
	for _, defaultOpt := range RetryDefaultsForCode(code) {
		defaultOpt(&se)
	}
	for _, opt := range opts {
		opt(&se)
	}

	// Error impossible: StructuredError is a simple struct with no circular refs or unsupported types.
	seJSON, _ := json.Marshal(se)
	text := fmt.Sprintf("Error: %s — %s\n%s", code, retry, string(seJSON))

	result := MCPToolResult{
		Content: []MCPContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
	return SafeMarshal(result, `{"content":[{"type":"text","text":"Internal error: failed to marshal result"}],"isError":true}`)
}

// WithParam is an option function to add param field to StructuredError.
func WithParam(p string) func(*StructuredError) {
	return func(se *StructuredError) { se.Param = p }
}

// WithHint is an option function to add hint field to StructuredError.
func WithHint(h string) func(*StructuredError) {
	return func(se *StructuredError) { se.Hint = h }
}

// WithRetryable marks whether the error is retryable by the caller.
func WithRetryable(retryable bool) func(*StructuredError) {
	return func(se *StructuredError) { se.Retryable = retryable }
}

// WithRetryAfterMs sets the suggested delay before retrying (milliseconds).
func WithRetryAfterMs(ms int) func(*StructuredError) {
	return func(se *StructuredError) { se.RetryAfterMs = ms }
}

// RetryDefaultsForCode returns option functions that set retryable and
// retry_after_ms based on the error code (spec §7 policy table).
func RetryDefaultsForCode(code string) []func(*StructuredError) {
	switch code {
	case ErrCaptureTransient:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(200)}
	case ErrTimeout:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(1000)}
	case ErrResourceExhausted:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(2000)}
	default:
		return []func(*StructuredError){WithRetryable(false)}
	}
}

// JSONRPCCodeForToolError maps a tool-level error code to the JSON-RPC
// error code that should be used when the dispatcher itself rejects a
// request before a tool result can be constructed (e.g. resources/read
// against a missing URI never reaches a tool handler).
func JSONRPCCodeForToolError(code string) int {
	switch code {
	case ErrResourceNotFound, ErrStreamNotFound:
		return CodeResourceNotFound
	case ErrCaptureFatal, ErrCaptureTransient:
		return CodeCaptureFailed
	case ErrResourceExhausted:
		return CodeResourceExhausted
	case ErrTimeout:
		return CodeTimeout
	case ErrInvalidJSON, ErrMissingParam, ErrInvalidParam:
		return CodeInvalidParams
	default:
		return CodeInternalError
	}
}
