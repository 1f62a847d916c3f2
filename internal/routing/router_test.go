package routing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent", "json")
}

// recordingHandler notes the order events arrive in, per session key.
type recordingHandler struct {
	mu      sync.Mutex
	perKey  map[string][]string
	inKey   map[string]bool
	overlap bool
	delay   time.Duration
	fail    map[string]int // actionID -> remaining transient failures
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		perKey: make(map[string][]string),
		inKey:  make(map[string]bool),
		fail:   make(map[string]int),
	}
}

func (h *recordingHandler) HandleEvent(_ context.Context, ev domain.Event) error {
	key := ev.Key.String()

	h.mu.Lock()
	if h.inKey[key] {
		h.overlap = true
	}
	h.inKey[key] = true
	h.mu.Unlock()

	if h.delay > 0 {
		time.Sleep(h.delay)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.inKey[key] = false

	if n := h.fail[ev.ActionID]; n > 0 {
		h.fail[ev.ActionID] = n - 1
		return fmt.Errorf("%w: simulated outage", anchor.ErrTransport)
	}
	h.perKey[key] = append(h.perKey[key], ev.ActionID)
	return nil
}

func keyFor(user string) domain.SessionKey {
	return domain.SessionKey{ChannelID: "telegram", ChatID: user, UserID: user}
}

func TestRouter_PreservesPerKeyOrder(t *testing.T) {
	h := newRecordingHandler()
	h.delay = time.Millisecond
	r := NewRouter(context.Background(), h, testLogger())

	const events = 20
	for i := 0; i < events; i++ {
		r.Enqueue(domain.Event{
			Key:      keyFor("alice"),
			Kind:     domain.EventButton,
			ActionID: fmt.Sprintf("a%d", i),
		})
		r.Enqueue(domain.Event{
			Key:      keyFor("bob"),
			Kind:     domain.EventButton,
			ActionID: fmt.Sprintf("b%d", i),
		})
	}
	r.Drain()

	assert.False(t, h.overlap, "two events for one key must never run concurrently")
	for user, prefix := range map[string]string{"alice": "a", "bob": "b"} {
		got := h.perKey[keyFor(user).String()]
		require.Len(t, got, events)
		for i, id := range got {
			assert.Equal(t, fmt.Sprintf("%s%d", prefix, i), id, "arrival order per key")
		}
	}
}

func TestRouter_WorkerRetiresWhenIdle(t *testing.T) {
	h := newRecordingHandler()
	r := NewRouter(context.Background(), h, testLogger())

	r.Enqueue(domain.Event{Key: keyFor("alice"), Kind: domain.EventButton, ActionID: "first"})
	r.Drain()

	// A later burst spawns a fresh worker for the same key.
	r.Enqueue(domain.Event{Key: keyFor("alice"), Kind: domain.EventButton, ActionID: "second"})
	r.Drain()

	assert.Equal(t, []string{"first", "second"}, h.perKey[keyFor("alice").String()])
}

func TestRouter_RetriesTransientFailures(t *testing.T) {
	h := newRecordingHandler()
	h.fail["flaky"] = 1
	r := NewRouter(context.Background(), h, testLogger())

	r.Enqueue(domain.Event{Key: keyFor("alice"), Kind: domain.EventButton, ActionID: "flaky"})
	r.Drain()

	assert.Equal(t, []string{"flaky"}, h.perKey[keyFor("alice").String()],
		"a single transient failure is absorbed by the retry")
}

func TestRouter_GivesUpAfterRetryBudget(t *testing.T) {
	h := newRecordingHandler()
	h.fail["down"] = 10
	r := NewRouter(context.Background(), h, testLogger())

	r.Enqueue(domain.Event{Key: keyFor("alice"), Kind: domain.EventButton, ActionID: "down"})
	r.Enqueue(domain.Event{Key: keyFor("alice"), Kind: domain.EventButton, ActionID: "after"})
	r.Drain()

	// The failed event is dropped, the queue keeps moving.
	assert.Equal(t, []string{"after"}, h.perKey[keyFor("alice").String()])
}
