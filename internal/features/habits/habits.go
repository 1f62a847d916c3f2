// Package habits builds the habit tracking screens: a two-step creation
// flow driven by awaited input, daily check-offs, and stats.
package habits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/teo/internal/anchor"
	"github.com/soyeahso/teo/internal/domain"
	"github.com/soyeahso/teo/internal/store"
)

// Feature wires the habit screens into the engine.
type Feature struct {
	engine *anchor.Engine
	habits *store.HabitStore
	now    func() time.Time
}

// New creates the habits feature.
func New(e *anchor.Engine, habits *store.HabitStore) *Feature {
	return &Feature{engine: e, habits: habits, now: time.Now}
}

// Register adds the habit handlers and input resolvers.
func (f *Feature) Register() {
	f.engine.MustRegister("habits_menu", f.menuScreen)
	f.engine.MustRegister("view_habits", f.listScreen)
	f.engine.MustRegister("create_habit", f.createScreen)
	f.engine.MustRegister("habit_skip_description", f.skipDescription)
	f.engine.MustRegister("habit_check", f.checkHabit)
	f.engine.MustRegister("habit_stats", f.statsScreen)
	f.engine.MustRegisterResolver("habit_name", f.resolveName)
	f.engine.MustRegisterResolver("habit_description", f.resolveDescription)
}

func (f *Feature) menuScreen(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
	return domain.Screen{
		ScreenID: "habits_menu",
		Title:    "🎯 Habits",
		Body:     "Track daily habits and keep your streaks alive.",
		Actions: [][]domain.Action{
			{{Label: "📋 My habits", ActionID: "view_habits"}},
			{{Label: "➕ New habit", ActionID: "create_habit"}},
			{{Label: "📊 Stats", ActionID: "habit_stats"}},
		},
	}.WithNav(true), nil
}

func (f *Feature) listScreen(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	list, err := f.habits.List(sess.Key.UserKey())
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading habits: %w", err)
	}
	if len(list) == 0 {
		return domain.Screen{
			ScreenID: "habits_empty",
			Title:    "📋 My habits",
			Body:     "No habits yet. Create your first one!",
			Actions: [][]domain.Action{
				{{Label: "➕ New habit", ActionID: "create_habit"}},
			},
		}.WithNav(true), nil
	}

	var b strings.Builder
	var rows [][]domain.Action
	for i, h := range list {
		fmt.Fprintf(&b, "%d. *%s*", i+1, h.Name)
		if h.Description != "" {
			b.WriteString(" — " + h.Description)
		}
		b.WriteString("\n")
		rows = append(rows, []domain.Action{{
			Label:    "✅ " + h.Name,
			ActionID: anchor.FormatAction("habit_check", map[string]string{"id": h.ID}),
		}})
	}

	return domain.Screen{
		ScreenID: "view_habits",
		Title:    "📋 My habits",
		Body:     b.String(),
		Actions:  rows,
	}.WithNav(true), nil
}

// createScreen arms the first input of the two-step creation flow.
func (f *Feature) createScreen(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	f.engine.Arm(sess, domain.InputText, "habit name", 0, map[string]string{
		anchor.ResolverKey: "habit_name",
	})
	return domain.Screen{
		ScreenID: "habit_create",
		Title:    "➕ New habit",
		Body:     "Send a name for the habit.",
	}.WithNav(true), nil
}

// resolveName chains straight into the second question: the accepted
// name travels in the next request's context, not in any global.
func (f *Feature) resolveName(_ context.Context, sess *domain.Session, value string, _ map[string]string) (domain.Screen, error) {
	f.engine.Arm(sess, domain.InputText, "habit description", 0, map[string]string{
		anchor.ResolverKey: "habit_description",
		"name":             value,
	})
	return domain.Screen{
		ScreenID: "habit_describe",
		Params:   map[string]string{"name": value},
		Title:    "📝 Description",
		Body:     "Name: *" + value + "*\n\nNow send a description (optional):",
		Actions: [][]domain.Action{
			{{Label: "⏭ Skip", ActionID: anchor.FormatAction("habit_skip_description", map[string]string{"name": value})}},
		},
	}.WithNav(true), nil
}

func (f *Feature) resolveDescription(_ context.Context, sess *domain.Session, value string, ctxMap map[string]string) (domain.Screen, error) {
	return f.create(sess, ctxMap["name"], value)
}

func (f *Feature) skipDescription(_ context.Context, sess *domain.Session, params map[string]string) (domain.Screen, error) {
	return f.create(sess, params["name"], "")
}

func (f *Feature) create(sess *domain.Session, name, description string) (domain.Screen, error) {
	if name == "" {
		name = "New habit"
	}
	if _, err := f.habits.Create(sess.Key.UserKey(), name, description); err != nil {
		return domain.Screen{}, fmt.Errorf("creating habit: %w", err)
	}
	return domain.Screen{
		ScreenID: "habit_created",
		Params:   map[string]string{"name": name},
		Title:    "✅ Habit created",
		Body:     "Habit *" + name + "* is ready!",
		Actions: [][]domain.Action{
			{{Label: "📋 My habits", ActionID: "view_habits"}},
			{{Label: "➕ One more", ActionID: "create_habit"}},
		},
	}.WithNav(true), nil
}

// checkHabit marks today done. The store upsert makes a retried press of
// the same button a no-op rather than a double count.
func (f *Feature) checkHabit(_ context.Context, sess *domain.Session, params map[string]string) (domain.Screen, error) {
	id := params["id"]
	if id == "" {
		return domain.Screen{}, fmt.Errorf("missing habit id")
	}
	today := f.now().Format("2006-01-02")
	if err := f.habits.Check(id, today); err != nil {
		return domain.Screen{}, fmt.Errorf("checking habit: %w", err)
	}

	return domain.Screen{
		ScreenID: "habit_checked",
		Params:   map[string]string{"id": id, "day": today},
		Title:    "✅ Done for today",
		Body:     "Checked off for " + today + ". Keep it up!",
		Actions: [][]domain.Action{
			{{Label: "📋 My habits", ActionID: "view_habits"}},
			{{Label: "📊 Stats", ActionID: "habit_stats"}},
		},
	}.WithNav(true), nil
}

func (f *Feature) statsScreen(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
	today := f.now().Format("2006-01-02")
	stats, err := f.habits.Stats(sess.Key.UserKey(), today)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("loading stats: %w", err)
	}
	if len(stats) == 0 {
		return domain.Screen{
			ScreenID: "habit_stats_empty",
			Title:    "📊 Stats",
			Body:     "Nothing to count yet.",
		}.WithNav(true), nil
	}

	var b strings.Builder
	for _, st := range stats {
		mark := "▫️"
		if st.CheckedToday {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s *%s*: %d check-ins total\n", mark, st.Habit.Name, st.TotalChecks)
	}
	return domain.Screen{
		ScreenID: "habit_stats",
		Title:    "📊 Stats",
		Body:     b.String(),
		Status:   "as of " + today,
	}.WithNav(true), nil
}
