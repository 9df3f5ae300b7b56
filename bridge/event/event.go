// Package event defines the collaboration event record and its wire format.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents one discrete occurrence forwarded to the collaboration
// server: a line of tool output, a status notice, a lifecycle marker.
//
// Events are created once at emission time and never mutated afterwards.
// The bridge only ever copies them into batches; nothing downstream writes
// back into an Event. Timestamps are assigned when the event is emitted,
// not when it is eventually sent, so delivery delay never skews event time.
type Event struct {
	// ID is a process-unique identifier assigned at emission time.
	// IDs are never reused; duplicate IDs on the receiving side indicate
	// a duplicate send, not a duplicate occurrence.
	ID string `json:"id"`

	// Type is a producer-defined category tag, e.g. "tool_start",
	// "stdout", "status". The bridge does not interpret it.
	Type string `json:"type"`

	// Content is the payload text.
	Content string `json:"content"`

	// Timestamp is milliseconds since the Unix epoch at emission time.
	Timestamp int64 `json:"timestamp"`

	// OperationID correlates the event to the producing operation. Required.
	OperationID string `json:"operation_id"`

	// SessionID optionally routes the event to a collaboration session.
	SessionID string `json:"session_id,omitempty"`

	// UserID optionally attributes the event to a user.
	UserID string `json:"user_id,omitempty"`

	// Metadata is an open key-value bag of scalar values. Empty by default.
	Metadata Metadata `json:"metadata"`
}

// Batch is the wire shape of one outbound request body.
//
// The collaboration server ingestion endpoint accepts exactly this JSON
// object: {"events": [ ... ]}.
type Batch struct {
	Events []Event `json:"events"`
}

// New constructs an Event with a fresh ID and the current wall-clock
// timestamp. Optional fields (session, user, metadata) are left zero;
// callers set them before handing the event to the queue.
func New(eventType, content, operationID string) Event {
	return Event{
		ID:          NewID(),
		Type:        eventType,
		Content:     content,
		Timestamp:   time.Now().UnixMilli(),
		OperationID: operationID,
	}
}

// NewID returns a process-unique event identifier (a random UUID).
func NewID() string {
	return uuid.NewString()
}
