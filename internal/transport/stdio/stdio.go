// stdio.go — the stdio transport adapter (spec §4.8). A single-threaded
// cooperative loop: one line-delimited or Content-Length framed JSON-RPC
// request in, one JSON response line out, strictly FIFO. Resources are only
// ever delivered in response to resources/read — stdio never pushes.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/brennhill/screencap-mcp/internal/bridge"
	"github.com/brennhill/screencap-mcp/internal/mcp"
)

// maxBodySize caps a Content-Length framed request body. It is a fixed
// defensive cap on request framing, independent of the MAX_FRAME_SIZE
// setting (spec §5 max_frame_size covers resource payloads).
const maxBodySize = 32 * 1024 * 1024

// Run reads JSON-RPC requests from stdin and writes responses to stdout
// until EOF or ctx is cancelled. It never writes anything but JSON-RPC
// lines to stdout — diagnostics go to the logger, which is stderr-only.
func Run(ctx context.Context, d *mcp.Dispatcher, log *zap.SugaredLogger) error {
	return RunIO(ctx, os.Stdin, os.Stdout, d, log)
}

// RunIO is Run with the stdio streams passed explicitly, so tests can drive
// the loop over in-memory pipes instead of the process's real stdin/stdout.
func RunIO(ctx context.Context, r io.Reader, w io.Writer, d *mcp.Dispatcher, log *zap.SugaredLogger) error {
	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, _, err := bridge.ReadStdioMessageWithMode(reader, maxBodySize)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("stdio: read message: %w", err)
		}
		if len(line) == 0 {
			continue
		}

		var req mcp.JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			resp := mcp.NewError(nil, mcp.CodeParseError, "parse error: "+err.Error())
			writeResponse(writer, resp, log)
			continue
		}

		if resp := dispatchWithTimeout(ctx, d, req, log); resp != nil {
			writeResponse(writer, *resp, log)
		}
	}
}

// dispatchWithTimeout runs one request to completion or returns a Timeout
// error once the per-method deadline elapses. The dispatch goroutine is not
// forcibly killed on timeout since tool handlers take no cancellation
// signal today; this mirrors the capture backend's own blocking contract
// rather than hiding it.
func dispatchWithTimeout(ctx context.Context, d *mcp.Dispatcher, req mcp.JSONRPCRequest, log *zap.SugaredLogger) *mcp.JSONRPCResponse {
	timeout := bridge.ToolCallTimeout(req.Method, req.Params)
	done := make(chan *mcp.JSONRPCResponse, 1)

	go func() {
		resp, _ := d.Dispatch(req, false)
		done <- resp
	}()

	select {
	case resp := <-done:
		return resp
	case <-time.After(timeout):
		if log != nil {
			log.Warnw("tool call exceeded timeout", "method", req.Method)
		}
		if !req.HasID() {
			return nil
		}
		resp := mcp.NewError(req.ID, mcp.CodeTimeout, "request exceeded timeout")
		return &resp
	case <-ctx.Done():
		return nil
	}
}

func writeResponse(w *bufio.Writer, resp mcp.JSONRPCResponse, log *zap.SugaredLogger) {
	b, err := json.Marshal(resp)
	if err != nil {
		if log != nil {
			log.Errorw("marshal response failed", "error", err)
		}
		return
	}
	_, _ = w.Write(b)
	_ = w.WriteByte('\n')
	if err := w.Flush(); err != nil && log != nil {
		log.Errorw("flush stdout failed", "error", err)
	}
}
