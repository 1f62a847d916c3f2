package domain

import "time"

// EventKind distinguishes the two inbound event shapes.
type EventKind string

const (
	EventButton EventKind = "buttonPress"
	EventText   EventKind = "text"
)

// Event is an inbound user interaction delivered by a transport. Key
// carries the originating channel so the engine can route replies back
// through it.
type Event struct {
	Key       SessionKey `json:"key"`
	Kind      EventKind  `json:"kind"`
	ActionID  string     `json:"actionId,omitempty"` // buttonPress only
	Text      string     `json:"text,omitempty"`     // text only
	MessageID string     `json:"messageId,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
