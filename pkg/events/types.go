// Package events provides session-scoped event delivery for pipeline runs:
// an in-process bus with bounded blocking buffers and a WebSocket connection
// manager that streams a session's events to subscribed clients.
//
// Delivery contract: events for a session are delivered to every subscriber
// in publish order. Subscriber buffers are bounded and publishing BLOCKS
// when a buffer is full — events are never silently dropped. A subscriber
// joining mid-run first receives the session's full history, then live
// events, with no gap.
package events

import (
	"encoding/json"
	"time"
)

// Event types published during a pipeline run.
const (
	EventTypePipelineStart    = "pipeline_start"
	EventTypeStepStart        = "step_start"
	EventTypeStepData         = "step_data"
	EventTypeLiveDialogue     = "live_dialogue"
	EventTypeLog              = "log"
	EventTypePipelineComplete = "pipeline_complete"
	EventTypePipelineError    = "pipeline_error"
)

// Control message types sent to WebSocket clients.
const (
	msgTypeConnected = "connected"
	msgTypeJoined    = "joined"
	msgTypeError     = "error"
	msgTypePong      = "pong"
)

// Event is the envelope every published event travels in.
type Event struct {
	Type      string          `json:"type"`       // One of the EventType constants
	SessionID string          `json:"session_id"` // Session this event belongs to
	Data      json.RawMessage `json:"data"`       // Type-specific payload
	Timestamp time.Time       `json:"timestamp"`  // Publish time, UTC
}

// ClientMessage is the JSON structure for client → server WebSocket messages.
type ClientMessage struct {
	Action    string `json:"action"`               // "join_session", "leave_session", "ping"
	SessionID string `json:"session_id,omitempty"` // Session to join or leave
}
