// tools_stream.go — handlers for create_stream, stop_stream, list_streams,
// get_stream_info (spec §6).
package mcp

import (
	"encoding/json"

	"github.com/brennhill/screencap-mcp/internal/capture"
	"github.com/brennhill/screencap-mcp/internal/stream"
)

type regionArg struct {
	X, Y, Width, Height int
}

type createStreamArgs struct {
	DisplayID              int        `json:"display_id"`
	FPS                    int        `json:"fps"`
	Quality                int        `json:"quality"`
	Format                 string     `json:"format"`
	FrameSkipEnabled       *bool      `json:"frame_skip_enabled"`
	AdaptiveQualityEnabled bool       `json:"adaptive_quality_enabled"`
	MinQuality             int        `json:"min_quality"`
	MaxQuality             int        `json:"max_quality"`
	Region                 *regionArg `json:"region"`
}

// handleCreateStream implements create_stream (spec §6, §8 round-trip law:
// create_stream followed by get_stream_info returns a Running session with
// the requested parameters).
func handleCreateStream(args json.RawMessage, deps *Deps) json.RawMessage {
	a := createStreamArgs{FPS: 10, Quality: 80, Format: "jpeg", FrameSkipEnabled: boolPtr(true)}
	LenientUnmarshal(args, &a)

	format, errResp := validateFormatQuality(a.Format, a.Quality)
	if errResp != nil {
		return errResp
	}
	if a.FPS < 1 || a.FPS > 120 {
		return StructuredErrorResponse(ErrInvalidParam, "fps must be between 1 and 120", "Pass an 'fps' between 1 and 120", WithParam("fps"))
	}

	var region *capture.Region
	if a.Region != nil {
		region = &capture.Region{X: a.Region.X, Y: a.Region.Y, Width: a.Region.Width, Height: a.Region.Height}
	}

	opts := stream.CreateOptions{
		Source:                 stream.Source{DisplayID: a.DisplayID},
		TargetFPS:              a.FPS,
		Quality:                a.Quality,
		MinQuality:             a.MinQuality,
		MaxQuality:             a.MaxQuality,
		Format:                 format,
		FrameSkipEnabled:       a.FrameSkipEnabled == nil || *a.FrameSkipEnabled,
		AdaptiveQualityEnabled: a.AdaptiveQualityEnabled,
		Region:                 region,
	}

	s, err := deps.StreamMgr.Create(opts)
	if err == stream.ErrResourceExhausted {
		return StructuredErrorResponse(ErrResourceExhausted, "max_concurrent_streams reached", "Stop an existing stream before creating another")
	}
	if err != nil {
		return StructuredErrorResponse(ErrInvalidParam, err.Error(), "Check fps (1-120) and quality (1-100) and retry")
	}

	return JSONResponse("Stream created", map[string]any{"stream_id": s.ID()})
}

type streamIDArgs struct {
	StreamID string `json:"stream_id"`
}

// handleStopStream implements stop_stream.
func handleStopStream(args json.RawMessage, deps *Deps) json.RawMessage {
	var a streamIDArgs
	if err := json.Unmarshal(args, &a); err != nil || a.StreamID == "" {
		return StructuredErrorResponse(ErrMissingParam, "stream_id is required", "Add a 'stream_id' argument and call again", WithParam("stream_id"))
	}
	stopped := deps.StreamMgr.Stop(a.StreamID)
	return JSONResponse("Stream stop requested", map[string]any{"stopped": stopped})
}

// handleListStreams implements list_streams.
func handleListStreams(args json.RawMessage, deps *Deps) json.RawMessage {
	return JSONResponse("Active streams", map[string]any{"streams": deps.StreamMgr.List()})
}

// handleGetStreamInfo implements get_stream_info.
func handleGetStreamInfo(args json.RawMessage, deps *Deps) json.RawMessage {
	var a streamIDArgs
	if err := json.Unmarshal(args, &a); err != nil || a.StreamID == "" {
		return StructuredErrorResponse(ErrMissingParam, "stream_id is required", "Add a 'stream_id' argument and call again", WithParam("stream_id"))
	}
	s, ok := deps.StreamMgr.Get(a.StreamID)
	if !ok {
		return StructuredErrorResponse(ErrStreamNotFound, "no stream with that id", "Call list_streams to see active stream ids", WithParam("stream_id"))
	}
	return JSONResponse("Stream info", s.GetInfo())
}

func boolPtr(b bool) *bool { return &b }
