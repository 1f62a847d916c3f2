package anchor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
)

// ResolverKey is the awaiting-input context key naming the registered
// input resolver that consumes the validated value.
const ResolverKey = "resolver"

// Config carries the engine's tunables. Zero values fall back to the
// defaults observed in production: history depth 10, input TTL 300s,
// idle horizon 24h.
type Config struct {
	HistoryDepth int
	DefaultTTL   time.Duration
	IdleHorizon  time.Duration
}

// TransportResolver looks up the transport for a channel ID. Implemented
// by channel.Registry.
type TransportResolver interface {
	Transport(channelID string) (domain.Transport, bool)
}

// Persister snapshots sessions to durable storage so anchors survive a
// restart. Optional; the engine works fully in memory without one.
type Persister interface {
	Save(sess *domain.Session) error
	Delete(key domain.SessionKey) error
}

// RootBuilder produces the top-level menu screen for a session.
type RootBuilder func(ctx context.Context, sess *domain.Session) domain.Screen

// InputResolver consumes a validated input value. The context map is the
// one the request was armed with.
type InputResolver func(ctx context.Context, sess *domain.Session, value string, ctxMap map[string]string) (domain.Screen, error)

// Engine is the anchor navigation engine: it owns session state and
// turns inbound events into edits of each session's single anchor
// message.
//
// HandleEvent must be called strictly one event at a time per session
// key; routing.Router provides that serialization.
type Engine struct {
	cfg        Config
	sessions   *SessionStore
	nav        *Navigator
	validators *ValidatorSet
	awaiter    *Awaiter
	dispatch   *Dispatcher
	renderer   *Renderer
	transports TransportResolver
	root       RootBuilder
	persist    Persister
	log        *logging.Logger

	resolverMu sync.RWMutex
	resolvers  map[string]InputResolver
}

// New creates an engine. The root builder backs the reserved main-menu
// action and the empty-history fallback for back navigation.
func New(cfg Config, transports TransportResolver, root RootBuilder, log *logging.Logger) *Engine {
	if cfg.HistoryDepth <= 0 {
		cfg.HistoryDepth = DefaultHistoryDepth
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultInputTTL
	}
	if cfg.IdleHorizon <= 0 {
		cfg.IdleHorizon = 24 * time.Hour
	}

	validators := NewValidatorSet()
	return &Engine{
		cfg:        cfg,
		sessions:   NewSessionStore(),
		nav:        NewNavigator(cfg.HistoryDepth),
		validators: validators,
		awaiter:    NewAwaiter(validators, cfg.DefaultTTL),
		dispatch:   NewDispatcher(log),
		renderer:   NewRenderer(log),
		transports: transports,
		root:       root,
		log:        log.Sub("anchor"),
		resolvers:  make(map[string]InputResolver),
	}
}

// SetPersister attaches durable session storage. Call before events flow.
func (e *Engine) SetPersister(p Persister) { e.persist = p }

// Restore seeds the in-memory store with persisted sessions.
func (e *Engine) Restore(sessions []*domain.Session) {
	for _, sess := range sessions {
		e.sessions.Put(sess)
	}
	if len(sessions) > 0 {
		e.log.Info().Int("count", len(sessions)).Msg("sessions restored")
	}
}

// Sessions exposes the session store (read paths: status reporting).
func (e *Engine) Sessions() *SessionStore { return e.sessions }

// Validators exposes the validator registry for feature extensions.
func (e *Engine) Validators() *ValidatorSet { return e.validators }

// Register adds an action handler to the dispatch table.
func (e *Engine) Register(actionID string, h Handler) error {
	return e.dispatch.Register(actionID, h)
}

// MustRegister is Register for wiring done at startup, where a duplicate
// action ID is a programming error.
func (e *Engine) MustRegister(actionID string, h Handler) {
	if err := e.dispatch.Register(actionID, h); err != nil {
		panic(err)
	}
}

// RegisterResolver adds a named input resolver.
func (e *Engine) RegisterResolver(name string, fn InputResolver) error {
	e.resolverMu.Lock()
	defer e.resolverMu.Unlock()
	if _, exists := e.resolvers[name]; exists {
		return ErrDuplicateResolver
	}
	e.resolvers[name] = fn
	return nil
}

// MustRegisterResolver is RegisterResolver for startup wiring.
func (e *Engine) MustRegisterResolver(name string, fn InputResolver) {
	if err := e.RegisterResolver(name, fn); err != nil {
		panic(err)
	}
}

// Arm requests typed free-text input from the session's user. The next
// text event is checked against it.
func (e *Engine) Arm(sess *domain.Session, kind domain.InputKind, prompt string, ttl time.Duration, ctxMap map[string]string) {
	e.awaiter.Arm(sess, kind, prompt, ttl, ctxMap)
}

// HandleEvent processes one inbound event end to end: touch activity,
// resolve the action or text, and re-present the anchor.
func (e *Engine) HandleEvent(ctx context.Context, ev domain.Event) error {
	t, ok := e.transports.Transport(ev.Key.ChannelID)
	if !ok {
		return ErrNoTransport
	}

	sess := e.sessions.GetOrCreate(ev.Key)
	e.sessions.Touch(sess)

	var err error
	switch ev.Kind {
	case domain.EventButton:
		err = e.handleButton(ctx, t, sess, ev)
	case domain.EventText:
		err = e.handleText(ctx, t, sess, ev)
	default:
		e.log.Warn().Str("kind", string(ev.Kind)).Msg("unknown event kind")
	}

	if err == nil {
		e.save(sess)
	}
	return err
}

func (e *Engine) handleButton(ctx context.Context, t domain.Transport, sess *domain.Session, ev domain.Event) error {
	actionID, params := SplitAction(ev.ActionID)

	switch actionID {
	case domain.ActionBack:
		prev := e.nav.Peek(sess)
		if prev == nil {
			return e.showRoot(ctx, t, sess)
		}
		// History screens are re-displayed verbatim; no handler runs.
		if err := e.renderer.Present(ctx, t, sess, *prev, nil); err != nil {
			return err
		}
		e.awaiter.Clear(sess)
		e.nav.Back(sess)
		return nil

	case domain.ActionMain:
		return e.showRoot(ctx, t, sess)

	case domain.ActionHideNotice:
		if ev.MessageID != "" {
			ref := domain.MessageRef{ChatID: sess.Key.ChatID, MessageID: ev.MessageID}
			if err := t.Delete(ctx, ref); err != nil {
				e.log.Debug().Err(err).Msg("could not delete notice")
			}
		}
		return nil

	case domain.ActionNone:
		return nil
	}

	h, ok := e.dispatch.Lookup(actionID)
	if !ok {
		// Unknown actions never crash the session: log and re-show the
		// current screen unchanged so the user is not left hanging.
		e.log.Warn().
			Str("action", actionID).
			Str("session", sess.Key.String()).
			Msg("no handler for action")
		if sess.Current != nil {
			return e.renderer.Present(ctx, t, sess, *sess.Current, sess.Awaiting)
		}
		return e.showRoot(ctx, t, sess)
	}

	screen, err := h(ctx, sess, params)
	if err != nil {
		e.log.Error().Err(err).
			Str("action", actionID).
			Str("session", sess.Key.String()).
			Msg("handler failed")
		screen = errorScreen(ev.ActionID, err)
	}
	return e.showScreen(ctx, t, sess, screen)
}

func (e *Engine) handleText(ctx context.Context, t domain.Transport, sess *domain.Session, ev domain.Event) error {
	out := e.awaiter.Resolve(sess, strings.TrimSpace(ev.Text))

	switch out.State {
	case NotAwaiting:
		e.log.Debug().Str("session", sess.Key.String()).Msg("text with no pending input, ignoring")
		return nil

	case Expired:
		e.log.Info().Str("session", sess.Key.String()).Msg("pending input expired")
		return e.showScreen(ctx, t, sess, expiredScreen())

	case Invalid:
		// Keep the request armed; the TTL keeps running while the user
		// corrects the format.
		if err := t.Notice(ctx, sess.Key.ChatID, "❌ "+out.Hint); err != nil {
			return fmt.Errorf("%w: notice: %v", ErrTransport, err)
		}
		return nil
	}

	// Valid: the raw input message has served its purpose, tidy it away.
	if ev.MessageID != "" {
		ref := domain.MessageRef{ChatID: sess.Key.ChatID, MessageID: ev.MessageID}
		if err := t.Delete(ctx, ref); err != nil {
			e.log.Debug().Err(err).Msg("could not delete input message")
		}
	}

	name := out.Context[ResolverKey]
	e.resolverMu.RLock()
	fn, ok := e.resolvers[name]
	e.resolverMu.RUnlock()

	if !ok {
		e.log.Warn().Str("resolver", name).Msg("no resolver for validated input")
		return e.showScreen(ctx, t, sess, receivedScreen(out.Value))
	}

	screen, err := fn(ctx, sess, out.Value, out.Context)
	if err != nil {
		e.log.Error().Err(err).
			Str("resolver", name).
			Str("session", sess.Key.String()).
			Msg("input resolver failed")
		screen = errorScreen(domain.ActionMain, err)
	}
	return e.showScreen(ctx, t, sess, screen)
}

// showScreen presents a freshly built screen and, only once presented,
// records it in navigation state. A transient failure leaves the session
// exactly as it was, so retrying the event is safe.
func (e *Engine) showScreen(ctx context.Context, t domain.Transport, sess *domain.Session, screen domain.Screen) error {
	if err := e.renderer.Present(ctx, t, sess, screen, sess.Awaiting); err != nil {
		return err
	}
	e.nav.Show(sess, screen)
	return nil
}

// showRoot rebuilds and presents the main menu, clearing history and any
// pending input. Navigating to the root always cancels an open question.
func (e *Engine) showRoot(ctx context.Context, t domain.Transport, sess *domain.Session) error {
	root := e.root(ctx, sess)
	if err := e.renderer.Present(ctx, t, sess, root, nil); err != nil {
		return err
	}
	e.awaiter.Clear(sess)
	e.nav.ResetToRoot(sess, root)
	return nil
}

// RunSweeper purges idle sessions on the given interval until ctx ends.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := e.sessions.SweepExpired(e.cfg.IdleHorizon)
			for _, sess := range expired {
				if e.persist != nil {
					if err := e.persist.Delete(sess.Key); err != nil {
						e.log.Error().Err(err).Str("session", sess.Key.String()).Msg("failed to delete persisted session")
					}
				}
			}
			if len(expired) > 0 {
				e.log.Info().Int("count", len(expired)).Msg("idle sessions purged")
			}
		}
	}
}

func (e *Engine) save(sess *domain.Session) {
	if e.persist == nil {
		return
	}
	if err := e.persist.Save(sess); err != nil {
		e.log.Error().Err(err).Str("session", sess.Key.String()).Msg("failed to persist session")
	}
}

func errorScreen(retryAction string, err error) domain.Screen {
	return domain.Screen{
		ScreenID: "error",
		Title:    "❌ Something went wrong",
		Body:     err.Error(),
		Actions: [][]domain.Action{
			{{Label: "Try again", ActionID: retryAction}},
		},
	}.WithNav(true)
}

func expiredScreen() domain.Screen {
	return domain.Screen{
		ScreenID: "input_expired",
		Title:    "⏰ Time is up",
		Body:     "Input was cancelled due to inactivity.",
	}.WithNav(true)
}

func receivedScreen(value string) domain.Screen {
	return domain.Screen{
		ScreenID: "input_received",
		Params:   map[string]string{"text": value},
		Title:    "✅ Got it",
		Body:     "Received: *" + value + "*",
	}.WithNav(true)
}
