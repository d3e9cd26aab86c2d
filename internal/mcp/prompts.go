// prompts.go — static human-readable guides for prompts/list and
// prompts/get (spec §4.7).
package mcp

import "encoding/json"

type mcpPrompt struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var staticPrompts = []mcpPrompt{
	{Name: "quickstart", Description: "How to capture a screenshot and read it back as a resource."},
	{Name: "streaming", Description: "How to start a live stream and subscribe to frame updates."},
}

var promptText = map[string]string{
	"quickstart": "Call capture_screen with a display_id (default 0) to get a resource_uri. " +
		"Then call resources/read with that uri to fetch the image bytes.",
	"streaming": "Call create_stream with display_id, fps, quality, and format to start a live stream. " +
		"Subscribe over SSE or WebSocket to receive resource_updated notifications as new frames are published; " +
		"call stop_stream when done.",
}

func handlePromptsList() json.RawMessage {
	return SafeMarshal(map[string]any{"prompts": staticPrompts}, `{"prompts":[]}`)
}

func handlePromptsGet(params json.RawMessage) json.RawMessage {
	var p struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(params, &p)

	text, ok := promptText[p.Name]
	if !ok {
		return StructuredErrorResponse(ErrInvalidParam, "unknown prompt name", "Call prompts/list for valid names", WithParam("name"))
	}
	return SafeMarshal(map[string]any{
		"description": text,
		"messages": []map[string]any{
			{"role": "assistant", "content": map[string]string{"type": "text", "text": text}},
		},
	}, `{}`)
}
