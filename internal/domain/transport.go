package domain

import "context"

// Payload is the outward message content built from a Screen.
type Payload struct {
	Text    string     `json:"text"`
	Actions [][]Action `json:"actions,omitempty"`
}

// EditResult is the tri-state outcome of editing a message in place.
// "Message not found" is ordinary data here, not an exceptional path:
// the renderer's recovery logic consumes it directly.
type EditResult int

const (
	EditOK EditResult = iota
	EditUnchanged
	EditNotFound
)

func (r EditResult) String() string {
	switch r {
	case EditOK:
		return "ok"
	case EditUnchanged:
		return "unchanged"
	case EditNotFound:
		return "notFound"
	default:
		return "unknown"
	}
}

// Transport is the outbound capability the engine requires of a channel.
// Any transport that can send, edit, and delete messages can host the
// anchor UI.
type Transport interface {
	// Edit rewrites an existing message in place. A nil error with
	// EditNotFound means the target is gone (deleted, too old to edit);
	// errors are reserved for transient failures that are safe to retry.
	Edit(ctx context.Context, ref MessageRef, p Payload) (EditResult, error)

	// Send creates a new message and returns its reference.
	Send(ctx context.Context, chatID string, p Payload) (MessageRef, error)

	// Notice sends a short ephemeral message with a dismiss button,
	// separate from the anchor.
	Notice(ctx context.Context, chatID string, text string) error

	// Delete removes a message. Best effort; used to clean up consumed
	// user input messages.
	Delete(ctx context.Context, ref MessageRef) error
}

// Channel is a full messaging integration: a Transport plus lifecycle and
// an inbound event feed.
type Channel interface {
	Transport

	// ID returns the channel identifier (e.g. "telegram", "webchat").
	ID() string

	// Start connects the channel and begins delivering events.
	Start(ctx context.Context) error

	// Stop gracefully disconnects the channel.
	Stop(ctx context.Context) error

	// OnEvent registers the handler for inbound events.
	OnEvent(handler func(ev Event))
}
