package domain

import "time"

// InputKind classifies what shape of free text the bot is waiting for.
type InputKind string

const (
	InputText   InputKind = "text"
	InputURL    InputKind = "url"
	InputNumber InputKind = "number"
	InputDate   InputKind = "date"  // 2006-01-02
	InputMonth  InputKind = "month" // 2006-01
	InputTime   InputKind = "time"  // 15:04
)

// AwaitingInput is a typed, time-boxed request for free text. At most one
// is outstanding per session; arming a new one replaces the previous one.
type AwaitingInput struct {
	Kind    InputKind         `json:"kind"`
	Prompt  string            `json:"prompt"`
	TTL     time.Duration     `json:"ttl"`
	ArmedAt time.Time         `json:"armedAt"`

	// Context is an opaque payload telling the resolving handler what to
	// do with validated input (e.g. {"resolver": "habit_name"}).
	Context map[string]string `json:"context,omitempty"`
}

// ExpiredAt reports whether the request's TTL had elapsed at the given time.
func (a AwaitingInput) ExpiredAt(now time.Time) bool {
	return now.After(a.ArmedAt.Add(a.TTL))
}
