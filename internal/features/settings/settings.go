// Package settings renders the per-user preferences screens.
package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/store"
)

// Feature wires the settings screens into the engine. The city prompt
// lives with the weather feature; the menu here only links to it.
type Feature struct {
	engine *anchor.Engine
	users  *store.UserStore
}

func New(e *anchor.Engine, users *store.UserStore) *Feature {
	return &Feature{engine: e, users: users}
}

// Register adds the settings handlers and the notify-time resolver.
func (f *Feature) Register() {
	f.engine.MustRegister("settings_menu", f.menuScreen)
	f.engine.MustRegister("change_time", f.changeTimeScreen)
	f.engine.MustRegister("toggle_notifications", f.toggleNotifications)
	f.engine.MustRegisterResolver("notify_time", f.resolveNotifyTime)
}

func (f *Feature) menuScreen(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	settings, err := f.users.Get(sess.Key.UserKey())
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading settings: %w", err)
	}

	city := settings.City
	if city == "" {
		city = "not set"
	}
	notifyTime := settings.NotifyTime
	if notifyTime == "" {
		notifyTime = "not set"
	}
	notifyState := "off"
	notifyLabel := "🔔 Turn notifications on"
	if settings.Notifications {
		notifyState = "on"
		notifyLabel = "🔕 Turn notifications off"
	}

	return domain.Screen{
		ScreenID: "settings_menu",
		Title:    "⚙️ Settings",
		Body: fmt.Sprintf("City: *%s*\nDaily summary: *%s*\nNotifications: *%s*",
			city, notifyTime, notifyState),
		Actions: [][]domain.Action{
			{{Label: "🏙 Change city", ActionID: "change_city"}},
			{{Label: "⏰ Change time", ActionID: "change_time"}},
			{{Label: notifyLabel, ActionID: "toggle_notifications"}},
		},
	}.WithNav(true), nil
}

func (f *Feature) changeTimeScreen(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	f.engine.Arm(sess, domain.InputTime, "notification time", 0, map[string]string{
		anchor.ResolverKey: "notify_time",
	})
	return domain.Screen{
		ScreenID: "settings_time",
		Title:    "⏰ Daily summary time",
		Body:     "Send a time like 09:30 and the daily summary will arrive then.",
	}.WithNav(true), nil
}

func (f *Feature) resolveNotifyTime(_ context.Context, sess *domain.Session, value string, _ map[string]string) (domain.Screen, error) {
	// The validator already accepted HH:MM; normalize for display.
	t, err := time.Parse("15:04", value)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("parsing time %q: %w", value, err)
	}
	normalized := t.Format("15:04")

	userKey := sess.Key.UserKey()
	settings, err := f.users.Get(userKey)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading settings: %w", err)
	}
	settings.UserKey = userKey
	settings.NotifyTime = normalized
	if err := f.users.Put(settings); err != nil {
		return domain.Screen{}, fmt.Errorf("saving notify time: %w", err)
	}

	return domain.Screen{
		ScreenID: "settings_time_saved",
		Title:    "✅ Time saved",
		Body:     "Daily summary set for *" + normalized + "*.",
		Actions: [][]domain.Action{
			{{Label: "⚙️ Settings", ActionID: "settings_menu"}},
		},
	}.WithNav(true), nil
}

func (f *Feature) toggleNotifications(ctx context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	userKey := sess.Key.UserKey()
	settings, err := f.users.Get(userKey)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading settings: %w", err)
	}
	settings.UserKey = userKey
	settings.Notifications = !settings.Notifications
	if err := f.users.Put(settings); err != nil {
		return domain.Screen{}, fmt.Errorf("saving notifications: %w", err)
	}
	return f.menuScreen(ctx, sess, nil)
}
