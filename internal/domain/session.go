package domain

import "time"

// SessionKey uniquely identifies an anchor session: one user in one chat
// on one channel.
type SessionKey struct {
	ChannelID string `json:"channelId"`
	ChatID    string `json:"chatId"`
	UserID    string `json:"userId"`
}

// String returns a canonical string form of the session key.
func (k SessionKey) String() string {
	return k.ChannelID + ":" + k.ChatID + ":" + k.UserID
}

// UserKey identifies the user across chats on one channel. Used to key
// per-user data (settings, habits) that should follow the user between
// conversations.
func (k SessionKey) UserKey() string {
	return k.ChannelID + ":" + k.UserID
}

// MessageRef identifies a single message owned by a transport.
type MessageRef struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

// Session holds the full anchor state for one user in one chat.
//
// The anchor message referenced by AnchorRef is exclusively owned by the
// session; the engine never keeps a second live message in its role.
// Fields are not individually atomic — callers must process events for a
// given key one at a time (see routing).
type Session struct {
	ID           string         `json:"id"`
	Key          SessionKey     `json:"key"`
	AnchorRef    *MessageRef    `json:"anchorRef,omitempty"`
	Current      *Screen        `json:"current,omitempty"`
	History      []Screen       `json:"history,omitempty"`
	Awaiting     *AwaitingInput `json:"awaiting,omitempty"`
	LastActivity time.Time      `json:"lastActivity"`

	// Nonce is regenerated whenever the session is created. Handlers use
	// it to recognize duplicate retries of an action they already applied.
	// It is not a security token.
	Nonce string `json:"nonce"`
}
