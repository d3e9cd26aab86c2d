// tools_common.go — validation and response-building helpers shared by the
// capture_screen/capture_window tools (spec §6, §8 boundary behaviors).
package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/brennhill/screencap-mcp/internal/capture"
)

// validateFormatQuality enforces spec §8: quality outside [1,100] is
// InvalidArgument; format defaults to png and must be one of the two
// supported MIME targets.
func validateFormatQuality(format string, quality int) (capture.Format, json.RawMessage) {
	if quality < 1 || quality > 100 {
		return "", StructuredErrorResponse(ErrInvalidParam, "quality must be between 1 and 100", "Pass a 'quality' between 1 and 100", WithParam("quality"))
	}
	switch format {
	case "", "png":
		return capture.FormatPNG, nil
	case "jpeg", "jpg":
		return capture.FormatJPEG, nil
	default:
		return "", StructuredErrorResponse(ErrInvalidParam, fmt.Sprintf("unsupported format %q", format), "Pass format='png' or format='jpeg'", WithParam("format"))
	}
}

// encodeAndCache runs a RawFrame through the encoder and inserts the result
// into the resource cache, returning the capture_screen/capture_window
// result shape (spec §6).
func encodeAndCache(deps *Deps, raw capture.RawFrame, format capture.Format, quality int, sourceLabel string) json.RawMessage {
	if quality == 0 {
		quality = 85
	}
	encoded, _, err := deps.Encoder.Encode(raw, format, quality)
	if err != nil {
		return StructuredErrorResponse(ErrEncoderFailure, err.Error(), "Retry the capture; if the error persists, try a lower quality or the other format")
	}
	encoded.Metadata["source"] = sourceLabel

	uri := deps.Cache.Insert(sourceLabel, raw.MonotonicCaptureNS, raw.Width, raw.Height, encoded)
	return JSONResponse("Screen captured", map[string]any{
		"success":      true,
		"resource_uri": uri,
		"mime":         encoded.Mime,
		"metadata":     encoded.Metadata,
	})
}

// captureErrorResponse maps a capture.CaptureError to the tool-level error
// codes in spec §7.
func captureErrorResponse(err error) json.RawMessage {
	ce := capture.AsCaptureError("capture", err)
	if ce.Kind == capture.Fatal {
		return StructuredErrorResponse(ErrCaptureFatal, ce.Error(), "The active backend failed; retry shortly once fallback completes")
	}
	return StructuredErrorResponse(ErrCaptureTransient, ce.Error(), "Retry the capture call")
}

func errNoMatchingWindow(pattern string) error {
	return fmt.Errorf("no window title matches %q", pattern)
}
