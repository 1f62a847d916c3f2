package anchor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
)

// Handler builds the next screen for an action. Handlers may call out to
// external collaborators for content, but must not touch the session's
// history stack or anchor ref — only the navigator and renderer do.
type Handler func(ctx context.Context, sess *domain.Session, params map[string]string) (domain.Screen, error)

// Dispatcher routes action IDs to registered handlers. The reserved
// navigation IDs (domain.ActionBack, domain.ActionMain) are intercepted
// by the engine before lookup ever reaches this table.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	log      *logging.Logger
}

// NewDispatcher creates an empty dispatch table.
func NewDispatcher(log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		log:      log.Sub("dispatch"),
	}
}

// Register adds a handler for an action ID.
func (d *Dispatcher) Register(actionID string, h Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if actionID == domain.ActionBack || actionID == domain.ActionMain {
		return fmt.Errorf("%w: %s is reserved", ErrDuplicateAction, actionID)
	}
	if _, exists := d.handlers[actionID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, actionID)
	}
	d.handlers[actionID] = h
	d.log.Debug().Str("action", actionID).Msg("handler registered")
	return nil
}

// Lookup returns the handler for an action ID.
func (d *Dispatcher) Lookup(actionID string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[actionID]
	return h, ok
}

// SplitAction separates an inbound action ID from its encoded params.
// Buttons carry params query-style: "news_list?page=2".
func SplitAction(raw string) (actionID string, params map[string]string) {
	params = map[string]string{}
	actionID = raw
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		actionID = raw[:i]
		if vals, err := url.ParseQuery(raw[i+1:]); err == nil {
			for k := range vals {
				params[k] = vals.Get(k)
			}
		}
	}
	return actionID, params
}

// FormatAction encodes an action ID with params for a button, the
// inverse of SplitAction.
func FormatAction(actionID string, params map[string]string) string {
	if len(params) == 0 {
		return actionID
	}
	vals := url.Values{}
	for k, v := range params {
		vals.Set(k, v)
	}
	return actionID + "?" + vals.Encode()
}
