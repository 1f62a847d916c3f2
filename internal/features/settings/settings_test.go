package settings

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
	"github.com/soyeahso/teo/internal/store"
)

type fakeTransport struct {
	nextID  int
	notices []string
}

func (f *fakeTransport) Edit(_ context.Context, _ domain.MessageRef, _ domain.Payload) (domain.EditResult, error) {
	return domain.EditOK, nil
}
func (f *fakeTransport) Send(_ context.Context, chatID string, _ domain.Payload) (domain.MessageRef, error) {
	f.nextID++
	return domain.MessageRef{ChatID: chatID, MessageID: fmt.Sprintf("m%d", f.nextID)}, nil
}
func (f *fakeTransport) Notice(_ context.Context, _ string, text string) error {
	f.notices = append(f.notices, text)
	return nil
}
func (f *fakeTransport) Delete(_ context.Context, _ domain.MessageRef) error { return nil }
func (f *fakeTransport) Transport(_ string) (domain.Transport, bool)         { return f, true }

func testRoot(_ context.Context, _ *domain.Session) domain.Screen {
	return domain.Screen{ScreenID: "main_menu", Title: "Main"}
}

func setup(t *testing.T) (*anchor.Engine, *fakeTransport, *store.UserStore, domain.SessionKey) {
	t.Helper()
	log := logging.New(nil, "silent", "json")

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	tr := &fakeTransport{}
	engine := anchor.New(anchor.Config{}, tr, testRoot, log)
	New(engine, users).Register()

	key := domain.SessionKey{ChannelID: "webchat", ChatID: "100", UserID: "7"}
	return engine, tr, users, key
}

func TestMenuShowsCurrentSettings(t *testing.T) {
	engine, _, users, key := setup(t)
	require.NoError(t, users.Put(store.UserSettings{
		UserKey: key.UserKey(), City: "Berlin", NotifyTime: "09:30", Notifications: true,
	}))

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventButton, ActionID: "settings_menu",
	}))

	sess, _ := engine.Sessions().Get(key)
	assert.Contains(t, sess.Current.Body, "Berlin")
	assert.Contains(t, sess.Current.Body, "09:30")
	assert.Contains(t, sess.Current.Body, "*on*")
}

func TestChangeTimeFlow(t *testing.T) {
	engine, tr, users, key := setup(t)

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventButton, ActionID: "change_time",
	}))
	sess, _ := engine.Sessions().Get(key)
	require.NotNil(t, sess.Awaiting)
	assert.Equal(t, domain.InputTime, sess.Awaiting.Kind)

	// Wrong format: hint notice, request stays armed.
	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventText, Text: "half past nine",
	}))
	require.NotNil(t, sess.Awaiting)
	require.Len(t, tr.notices, 1)
	assert.Contains(t, tr.notices[0], "HH:MM")

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventText, Text: "09:30",
	}))
	assert.Equal(t, "settings_time_saved", sess.Current.ScreenID)
	assert.Nil(t, sess.Awaiting)

	settings, err := users.Get(key.UserKey())
	require.NoError(t, err)
	assert.Equal(t, "09:30", settings.NotifyTime)
}

func TestToggleNotifications(t *testing.T) {
	engine, _, users, key := setup(t)

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventButton, ActionID: "toggle_notifications",
	}))
	settings, err := users.Get(key.UserKey())
	require.NoError(t, err)
	assert.True(t, settings.Notifications)

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventButton, ActionID: "toggle_notifications",
	}))
	settings, err = users.Get(key.UserKey())
	require.NoError(t, err)
	assert.False(t, settings.Notifications)
}
