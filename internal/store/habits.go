package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Habit is a tracked habit belonging to one user.
type Habit struct {
	ID          string
	UserKey     string
	Name        string
	Description string
	CreatedAt   time.Time
}

// HabitStats summarizes check-off history for one habit.
type HabitStats struct {
	Habit       Habit
	TotalChecks int
	CheckedToday bool
}

// HabitStore persists habits and their daily check-offs.
type HabitStore struct {
	db *DB
}

// NewHabitStore creates a habit store over db.
func NewHabitStore(db *DB) *HabitStore {
	return &HabitStore{db: db}
}

// Create inserts a new habit and returns its ID.
func (s *HabitStore) Create(userKey, name, description string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.sql.Exec(
		`INSERT INTO habits (id, user_key, name, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userKey, name, description, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("create habit: %w", err)
	}
	return id, nil
}

// List returns all habits for a user, oldest first.
func (s *HabitStore) List(userKey string) ([]Habit, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, user_key, name, description, created_at FROM habits
		 WHERE user_key = ? ORDER BY created_at`, userKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		var h Habit
		var created string
		if err := rows.Scan(&h.ID, &h.UserKey, &h.Name, &h.Description, &created); err != nil {
			continue
		}
		h.CreatedAt, _ = time.Parse(time.RFC3339, created)
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// Check marks a habit done for the given day (YYYY-MM-DD). Re-checking
// the same day is a no-op, which keeps retried button presses harmless.
func (s *HabitStore) Check(habitID, day string) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO habit_checks (habit_id, checked_on) VALUES (?, ?)
		 ON CONFLICT(habit_id, checked_on) DO NOTHING`,
		habitID, day,
	)
	if err != nil {
		return fmt.Errorf("check habit %s: %w", habitID, err)
	}
	return nil
}

// Stats returns per-habit totals for a user, with today's state.
func (s *HabitStore) Stats(userKey, today string) ([]HabitStats, error) {
	habits, err := s.List(userKey)
	if err != nil {
		return nil, err
	}

	stats := make([]HabitStats, 0, len(habits))
	for _, h := range habits {
		st := HabitStats{Habit: h}
		if err := s.db.sql.QueryRow(
			`SELECT COUNT(*) FROM habit_checks WHERE habit_id = ?`, h.ID,
		).Scan(&st.TotalChecks); err != nil {
			return nil, fmt.Errorf("habit stats %s: %w", h.ID, err)
		}
		var todayCount int
		if err := s.db.sql.QueryRow(
			`SELECT COUNT(*) FROM habit_checks WHERE habit_id = ? AND checked_on = ?`, h.ID, today,
		).Scan(&todayCount); err != nil {
			return nil, fmt.Errorf("habit stats %s: %w", h.ID, err)
		}
		st.CheckedToday = todayCount > 0
		stats = append(stats, st)
	}
	return stats, nil
}

// Delete removes a habit and its history.
func (s *HabitStore) Delete(habitID string) error {
	_, err := s.db.sql.Exec(`DELETE FROM habits WHERE id = ?`, habitID)
	if err != nil {
		return fmt.Errorf("delete habit %s: %w", habitID, err)
	}
	return nil
}
