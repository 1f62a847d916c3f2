package anchor

import (
	"time"

	"github.com/soyeahso/teo/internal/domain"
)

// DefaultInputTTL is how long an armed input request stays valid.
const DefaultInputTTL = 300 * time.Second

// OutcomeState classifies the result of resolving inbound text against
// the session's pending input request.
type OutcomeState int

const (
	// NotAwaiting: no input request is armed; the text is not for us.
	NotAwaiting OutcomeState = iota
	// Expired: the TTL elapsed before valid input arrived. State cleared.
	Expired
	// Invalid: the validator rejected the text. State kept — the user
	// may retry within the remaining TTL.
	Invalid
	// Valid: the text passed validation. State cleared.
	Valid
)

// Outcome is the result of Awaiter.Resolve.
type Outcome struct {
	State   OutcomeState
	Hint    string            // Invalid: the validator's format hint
	Value   string            // Valid: the accepted text
	Context map[string]string // Valid: the context armed with the request
}

// Awaiter arms, clears, and resolves pending input requests. A session
// has at most one outstanding request; arming is exclusive.
type Awaiter struct {
	validators *ValidatorSet
	defaultTTL time.Duration
	now        func() time.Time
}

// NewAwaiter creates an awaiting-input controller.
func NewAwaiter(validators *ValidatorSet, defaultTTL time.Duration) *Awaiter {
	if defaultTTL <= 0 {
		defaultTTL = DefaultInputTTL
	}
	return &Awaiter{validators: validators, defaultTTL: defaultTTL, now: time.Now}
}

// Arm sets the session's pending input request, silently replacing any
// existing one — the user moved on, the old question is moot. A ttl of
// zero uses the default.
func (a *Awaiter) Arm(sess *domain.Session, kind domain.InputKind, prompt string, ttl time.Duration, ctx map[string]string) {
	if ttl <= 0 {
		ttl = a.defaultTTL
	}
	sess.Awaiting = &domain.AwaitingInput{
		Kind:    kind,
		Prompt:  prompt,
		TTL:     ttl,
		ArmedAt: a.now(),
		Context: ctx,
	}
}

// Clear drops the pending input request, if any.
func (a *Awaiter) Clear(sess *domain.Session) {
	sess.Awaiting = nil
}

// Resolve checks raw text against the session's pending request.
// Expiry is computed, not stored: armedAt + ttl < now.
func (a *Awaiter) Resolve(sess *domain.Session, raw string) Outcome {
	aw := sess.Awaiting
	if aw == nil {
		return Outcome{State: NotAwaiting}
	}

	if aw.ExpiredAt(a.now()) {
		sess.Awaiting = nil
		return Outcome{State: Expired}
	}

	ok, hint := a.validators.Validate(aw.Kind, raw)
	if !ok {
		return Outcome{State: Invalid, Hint: hint}
	}

	sess.Awaiting = nil
	return Outcome{State: Valid, Value: raw, Context: aw.Context}
}
