// Package routing delivers inbound channel events to the anchor engine
// with strict per-session ordering.
package routing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
)

// EventHandler processes one inbound event. Satisfied by *anchor.Engine.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev domain.Event) error
}

// transientRetries bounds re-attempts of events that failed on a
// transient transport error. The engine guarantees no state mutated
// before such a failure, so re-running the same event is safe.
const transientRetries = 2

// Router fans events out across sessions while keeping each session
// strictly sequential: two events for the same key never run
// concurrently, and run in arrival order. Distinct keys proceed in
// parallel so one slow user never blocks another.
type Router struct {
	handler EventHandler
	log     *logging.Logger

	ctx context.Context

	mu     sync.Mutex
	queues map[string][]domain.Event
	active map[string]bool
	wg     sync.WaitGroup
}

// NewRouter creates a router delivering to the given handler. The
// context bounds all in-flight event processing.
func NewRouter(ctx context.Context, handler EventHandler, log *logging.Logger) *Router {
	return &Router{
		handler: handler,
		log:     log.Sub("routing"),
		ctx:     ctx,
		queues:  make(map[string][]domain.Event),
		active:  make(map[string]bool),
	}
}

// Wire registers the router as the event handler on a channel.
func (r *Router) Wire(ch domain.Channel) {
	ch.OnEvent(r.Enqueue)
	r.log.Debug().Str("channel", ch.ID()).Msg("wired event handler")
}

// Enqueue appends an event to its session's queue, spawning a worker for
// the key if none is draining it. Returns immediately.
func (r *Router) Enqueue(ev domain.Event) {
	key := ev.Key.String()

	r.mu.Lock()
	r.queues[key] = append(r.queues[key], ev)
	if !r.active[key] {
		r.active[key] = true
		r.wg.Add(1)
		go r.drain(key)
	}
	r.mu.Unlock()
}

// drain processes one key's queue in order until it is empty, then
// retires. A later event for the key spawns a fresh worker.
func (r *Router) drain(key string) {
	defer r.wg.Done()

	for {
		r.mu.Lock()
		pending := r.queues[key]
		if len(pending) == 0 {
			delete(r.queues, key)
			r.active[key] = false
			delete(r.active, key)
			r.mu.Unlock()
			return
		}
		ev := pending[0]
		r.queues[key] = pending[1:]
		r.mu.Unlock()

		r.handle(ev)
	}
}

func (r *Router) handle(ev domain.Event) {
	var err error
	for attempt := 0; ; attempt++ {
		err = r.handler.HandleEvent(r.ctx, ev)
		if err == nil || !errors.Is(err, anchor.ErrTransport) || attempt >= transientRetries {
			break
		}
		r.log.Warn().Err(err).
			Str("session", ev.Key.String()).
			Int("attempt", attempt+1).
			Msg("transient transport failure, retrying event")
		select {
		case <-r.ctx.Done():
			return
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}

	if err != nil {
		r.log.Error().Err(err).
			Str("session", ev.Key.String()).
			Str("kind", string(ev.Kind)).
			Msg("event processing failed")
	}
}

// Drain blocks until all queued events have been processed. Used by
// shutdown and tests.
func (r *Router) Drain() {
	r.wg.Wait()
}
