// Package menu provides the root screen and the help screen.
package menu

import (
	"context"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
)

// Root builds the main menu screen. Registered with the engine as the
// root builder, it backs the reserved main-menu action and the fallback
// when back-navigation empties the history.
func Root(_ context.Context, _ *domain.Session) domain.Screen {
	return domain.Screen{
		ScreenID: "main_menu",
		Title:    "🏠 Main menu",
		Body:     "Hi! I keep everything on this one message. Pick a section below.",
		Actions: [][]domain.Action{
			{{Label: "🌤 Weather", ActionID: "weather_menu"}},
			{{Label: "📰 News", ActionID: "news_menu"}},
			{{Label: "🎯 Habits", ActionID: "habits_menu"}},
			{{Label: "💰 Finance", ActionID: "finance_menu"}},
			{{Label: "⚙️ Settings", ActionID: "settings_menu"}},
			{{Label: "❓ Help", ActionID: "help"}},
		},
	}
}

// Register wires the help handler.
func Register(e *anchor.Engine) {
	e.MustRegister("help", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return domain.Screen{
			ScreenID: "help",
			Title:    "❓ Help",
			Body: "Everything happens on this one message: buttons switch screens, " +
				"Back returns without reloading anything, and when I ask for text " +
				"the header shows what I'm waiting for. If the message ever " +
				"disappears, I quietly recreate it and carry on.",
		}.WithNav(true), nil
	})
}
