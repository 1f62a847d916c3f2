package anchor

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
)

// RefreshNotice is the one-time ephemeral message sent when the anchor
// had to be recreated, so the user understands continuity was preserved.
const RefreshNotice = "Screen refreshed, carrying on."

// Renderer presents screens by editing the session's anchor message,
// recreating it when the edit target is gone. This recovery path is what
// upholds the single-message guarantee when the anchor is deleted or too
// old to edit.
type Renderer struct {
	log *logging.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(log *logging.Logger) *Renderer {
	return &Renderer{log: log.Sub("render")}
}

// BuildPayload turns a screen into the outward message content. When an
// input request is armed, a waiting banner leads the text.
func BuildPayload(screen domain.Screen, aw *domain.AwaitingInput) domain.Payload {
	var b strings.Builder
	if aw != nil {
		b.WriteString("⏳ *Waiting for: " + aw.Prompt + "*\n\n")
	}
	b.WriteString("*" + screen.Title + "*\n\n")
	b.WriteString(screen.Body)
	if screen.Status != "" {
		b.WriteString("\n\n_" + screen.Status + "_")
	}
	return domain.Payload{Text: b.String(), Actions: screen.Actions}
}

// Present shows a screen on the session's anchor message.
//
// It edits the existing anchor when one is set; an unchanged edit counts
// as success (idempotent no-op). A missing edit target triggers
// recovery: send a replacement message, re-anchor the session, and emit
// a separate dismissible refresh notice. Transient transport failures
// propagate wrapped in ErrTransport with no state mutated, so retrying
// the same event is safe.
//
// Present does not touch Current or History — the engine commits
// navigation state only after a successful present.
func (r *Renderer) Present(ctx context.Context, t domain.Transport, sess *domain.Session, screen domain.Screen, aw *domain.AwaitingInput) error {
	payload := BuildPayload(screen, aw)

	if sess.AnchorRef != nil {
		res, err := t.Edit(ctx, *sess.AnchorRef, payload)
		if err != nil {
			return fmt.Errorf("%w: edit %s: %v", ErrTransport, sess.AnchorRef.MessageID, err)
		}
		switch res {
		case domain.EditOK, domain.EditUnchanged:
			return nil
		case domain.EditNotFound:
			r.log.Warn().
				Str("session", sess.Key.String()).
				Str("anchor", sess.AnchorRef.MessageID).
				Msg("anchor message lost, recreating")
		}
	}

	ref, err := t.Send(ctx, sess.Key.ChatID, payload)
	if err != nil {
		return fmt.Errorf("%w: send: %v", ErrTransport, err)
	}

	recovered := sess.AnchorRef != nil
	sess.AnchorRef = &ref

	if recovered {
		if err := t.Notice(ctx, sess.Key.ChatID, RefreshNotice); err != nil {
			// The anchor is re-established; a lost notice is not worth
			// failing the whole present over.
			r.log.Warn().Err(err).Str("session", sess.Key.String()).Msg("refresh notice failed")
		}
	}

	r.log.Info().
		Str("session", sess.Key.String()).
		Str("screen", screen.ScreenID).
		Str("anchor", ref.MessageID).
		Bool("recovered", recovered).
		Msg("anchor message created")
	return nil
}
