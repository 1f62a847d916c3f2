package weather

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
	"github.com/soyeahso/teo/internal/store"
)

type fakeTransport struct {
	nextID int
}

func (f *fakeTransport) Edit(_ context.Context, _ domain.MessageRef, _ domain.Payload) (domain.EditResult, error) {
	return domain.EditOK, nil
}
func (f *fakeTransport) Send(_ context.Context, chatID string, _ domain.Payload) (domain.MessageRef, error) {
	f.nextID++
	return domain.MessageRef{ChatID: chatID, MessageID: fmt.Sprintf("m%d", f.nextID)}, nil
}
func (f *fakeTransport) Notice(_ context.Context, _ string, _ string) error  { return nil }
func (f *fakeTransport) Delete(_ context.Context, _ domain.MessageRef) error { return nil }
func (f *fakeTransport) Transport(_ string) (domain.Transport, bool)         { return f, true }

func testRoot(_ context.Context, _ *domain.Session) domain.Screen {
	return domain.Screen{ScreenID: "main_menu", Title: "Main"}
}

// seededClient returns a client whose cache already knows the city, so
// no live API call happens.
func seededClient(city string) *Client {
	c := NewClient()
	c.cache[city] = Report{
		City:    city,
		TempC:   21.4,
		WindKmh: 12,
		Daily: []Day{
			{Date: "2026-01-10", MinC: -2, MaxC: 4, PrecipMM: 0.3},
			{Date: "2026-01-11", MinC: -1, MaxC: 6, PrecipMM: 0},
		},
		FetchedAt: time.Now(),
	}
	return c
}

func setup(t *testing.T, client *Client) (*anchor.Engine, *store.UserStore, domain.SessionKey) {
	t.Helper()
	log := logging.New(nil, "silent", "json")

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	engine := anchor.New(anchor.Config{}, &fakeTransport{}, testRoot, log)
	New(engine, client, users, "Moscow", log).Register()

	key := domain.SessionKey{ChannelID: "webchat", ChatID: "100", UserID: "7"}
	return engine, users, key
}

func TestMenuUsesDefaultCity(t *testing.T) {
	engine, _, key := setup(t, NewClient())

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventButton, ActionID: "weather_menu",
	}))

	sess, _ := engine.Sessions().Get(key)
	assert.Contains(t, sess.Current.Body, "Moscow")
}

func TestMenuPrefersSavedCity(t *testing.T) {
	engine, users, key := setup(t, NewClient())
	require.NoError(t, users.Put(store.UserSettings{UserKey: key.UserKey(), City: "Berlin"}))

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventButton, ActionID: "weather_menu",
	}))

	sess, _ := engine.Sessions().Get(key)
	assert.Contains(t, sess.Current.Body, "Berlin")
}

func TestCurrentWeatherScreen(t *testing.T) {
	engine, _, key := setup(t, seededClient("Moscow"))

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventButton, ActionID: "current_weather",
	}))

	sess, _ := engine.Sessions().Get(key)
	require.Equal(t, "current_weather", sess.Current.ScreenID)
	assert.Contains(t, sess.Current.Body, "21.4°C")
	assert.Contains(t, sess.Current.Body, "12 km/h")
}

func TestForecastScreen(t *testing.T) {
	engine, _, key := setup(t, seededClient("Moscow"))

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventButton, ActionID: "forecast",
	}))

	sess, _ := engine.Sessions().Get(key)
	require.Equal(t, "forecast", sess.Current.ScreenID)
	assert.Contains(t, sess.Current.Body, "2026-01-10")
	assert.Contains(t, sess.Current.Body, "2026-01-11")
}

func TestResolveCitySavesGeocodedName(t *testing.T) {
	engine, users, key := setup(t, seededClient("Berlin"))

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventButton, ActionID: "change_city",
	}))
	sess, _ := engine.Sessions().Get(key)
	require.NotNil(t, sess.Awaiting)

	require.NoError(t, engine.HandleEvent(context.Background(), domain.Event{
		Key: key, Kind: domain.EventText, Text: "Berlin",
	}))

	assert.Equal(t, "city_updated", sess.Current.ScreenID)
	settings, err := users.Get(key.UserKey())
	require.NoError(t, err)
	assert.Equal(t, "Berlin", settings.City)
}

func TestFetchServesFromCache(t *testing.T) {
	c := seededClient("Moscow")

	report, err := c.Fetch(context.Background(), "Moscow")
	require.NoError(t, err)
	assert.Equal(t, 21.4, report.TempC)
}
