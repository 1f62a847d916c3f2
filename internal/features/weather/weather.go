// Package weather builds the weather screens.
package weather

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/logging"
	"github.com/soyeahso/teo/internal/store"
)

// Feature wires the weather screens into the engine.
type Feature struct {
	engine      *anchor.Engine
	client      *Client
	users       *store.UserStore
	defaultCity string
	log         *logging.Logger
}

// New creates the weather feature.
func New(e *anchor.Engine, client *Client, users *store.UserStore, defaultCity string, log *logging.Logger) *Feature {
	return &Feature{
		engine:      e,
		client:      client,
		users:       users,
		defaultCity: defaultCity,
		log:         log.Sub("weather"),
	}
}

// Register adds the weather handlers and input resolvers.
func (f *Feature) Register() {
	f.engine.MustRegister("weather_menu", f.menuScreen)
	f.engine.MustRegister("current_weather", f.currentScreen)
	f.engine.MustRegister("forecast", f.forecastScreen)
	f.engine.MustRegister("change_city", f.changeCity)
	f.engine.MustRegisterResolver("city_name", f.resolveCity)
}

func (f *Feature) menuScreen(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	city := f.cityFor(sess)
	return domain.Screen{
		ScreenID: "weather_menu",
		Title:    "🌤 Weather",
		Body:     "City: *" + city + "*",
		Actions: [][]domain.Action{
			{{Label: "Now", ActionID: "current_weather"}, {Label: "3 days", ActionID: "forecast"}},
			{{Label: "Change city", ActionID: "change_city"}},
		},
	}.WithNav(true), nil
}

func (f *Feature) currentScreen(ctx context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	city := f.cityFor(sess)
	report, err := f.client.Fetch(ctx, city)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("fetching weather: %w", err)
	}

	return domain.Screen{
		ScreenID: "current_weather",
		Params:   map[string]string{"city": city},
		Title:    "🌤 " + report.City + " now",
		Body:     fmt.Sprintf("Temperature: *%.1f°C*\nWind: %.0f km/h", report.TempC, report.WindKmh),
		Status:   "fetched " + report.FetchedAt.Format("15:04"),
		Actions: [][]domain.Action{
			{{Label: "3 days", ActionID: "forecast"}, {Label: "Refresh", ActionID: "current_weather"}},
		},
	}.WithNav(true), nil
}

func (f *Feature) forecastScreen(ctx context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	city := f.cityFor(sess)
	report, err := f.client.Fetch(ctx, city)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("fetching forecast: %w", err)
	}

	var b strings.Builder
	for _, d := range report.Daily {
		fmt.Fprintf(&b, "%s: %.0f…%.0f°C, %.1f mm\n", d.Date, d.MinC, d.MaxC, d.PrecipMM)
	}
	return domain.Screen{
		ScreenID: "forecast",
		Params:   map[string]string{"city": city},
		Title:    "📅 " + report.City + ", 3 days",
		Body:     b.String(),
	}.WithNav(true), nil
}

func (f *Feature) changeCity(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	f.engine.Arm(sess, domain.InputText, "city name", 0, map[string]string{
		anchor.ResolverKey: "city_name",
	})
	return domain.Screen{
		ScreenID: "change_city",
		Title:    "🏙 Change city",
		Body:     "Send the name of your city.",
	}.WithNav(true), nil
}

func (f *Feature) resolveCity(ctx context.Context, sess *domain.Session, value string, _ map[string]string) (domain.Screen, error) {
	// Geocode before saving so typos are caught while the user is here.
	report, err := f.client.Fetch(ctx, value)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("unknown city %q: %w", value, err)
	}

	settings, err := f.users.Get(sess.Key.UserKey())
	if err != nil {
		return domain.Screen{}, err
	}
	settings.City = report.City
	if err := f.users.Put(settings); err != nil {
		return domain.Screen{}, err
	}

	return domain.Screen{
		ScreenID: "city_updated",
		Params:   map[string]string{"city": report.City},
		Title:    "✅ City updated",
		Body:     "City set to *" + report.City + "*",
		Actions: [][]domain.Action{
			{{Label: "🌤 Weather now", ActionID: "current_weather"}},
		},
	}.WithNav(true), nil
}

func (f *Feature) cityFor(sess *domain.Session) string {
	settings, err := f.users.Get(sess.Key.UserKey())
	if err != nil {
		f.log.Warn().Err(err).Msg("failed to load user settings")
		return f.defaultCity
	}
	if settings.City == "" {
		return f.defaultCity
	}
	return settings.City
}
