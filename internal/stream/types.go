// types.go — StreamSession identity, parameters, and the subscriber
// contract transports implement (spec §3 DATA MODEL, §4.5, §4.8).
package stream

import (
	"time"

	"github.com/brennhill/screencap-mcp/internal/capture"
)

// State is a StreamSession's lifecycle state. Transitions are monotone
// toward Stopped: Created -> Running -> (Paused <-> Running) -> Stopped.
type State int32

const (
	Created State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Source identifies what a session captures from: a display id, or a
// specific window handle. Exactly one of the two is meaningful, selected
// by IsWindow.
type Source struct {
	IsWindow  bool
	DisplayID int
	Window    capture.Window
}

// Params are the caller-negotiated parameters of a session (spec §3
// "parameters"). Validated once at Create time; immutable afterward. The
// quality used for encoding is held on the Session, not here: AdjustQuality
// and the QualityController drift it within [MinQuality, MaxQuality], and
// Quality keeps the starting value.
type Params struct {
	TargetFPS              int
	Quality                int
	MinQuality             int
	MaxQuality             int
	Format                 capture.Format
	FrameSkipEnabled       bool
	AdaptiveQualityEnabled bool
	Region                 *capture.Region
}

// Notification is what the producer loop publishes to subscribers once per
// cycle. Transports interpret it according to their own framing (spec
// §4.5 step 7, §4.8).
type Notification struct {
	// Type is "resource_updated" or "stream_stopped".
	Type     string
	URI      string
	Mime     string
	Size     int
	Bytes    []byte // set on every resource_updated; only the WS transport sends it
	Metadata map[string]any
	Reason   string // set on "stream_stopped"
}

// Subscriber is the weak handle a transport holds into a session. Transports
// may enqueue and later unsubscribe; they never mutate session state
// directly (spec §3 Ownership).
type Subscriber interface {
	ID() uint64
	// Enqueue attempts a non-blocking push. false means the subscriber's
	// queue is full; the caller (the session) then drops this subscriber
	// per the backpressure policy in spec §5 — the producer is never
	// blocked by a slow consumer.
	Enqueue(Notification) bool
	// Close tells the transport this subscriber has been dropped, so it
	// can close the underlying connection/queue.
	Close()
}

// Info is the externally visible snapshot returned by list_streams and
// get_stream_info.
type Info struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"`
	TargetFPS    int            `json:"fps"`
	Quality      int            `json:"quality"`
	Format       capture.Format `json:"format"`
	State        string         `json:"state"`
	CreatedAt    time.Time      `json:"created_at"`
	Subscribers  int            `json:"subscribers"`
	Metrics      MetricsSnapshot `json:"metrics"`
}
