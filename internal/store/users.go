package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserSettings are the per-user preferences feature handlers read and
// write. Keyed by "channel:user" so the same person on two channels gets
// independent settings.
type UserSettings struct {
	UserKey       string
	City          string
	NotifyTime    string // HH:MM, empty = unset
	Notifications bool
	SheetURL      string
}

// UserStore persists user settings.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user settings store over db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Get returns settings for a user key, zero-valued when absent.
func (s *UserStore) Get(userKey string) (UserSettings, error) {
	u := UserSettings{UserKey: userKey}
	var notifications int
	err := s.db.sql.QueryRow(
		`SELECT city, notify_time, notifications, sheet_url FROM users WHERE user_key = ?`,
		userKey,
	).Scan(&u.City, &u.NotifyTime, &notifications, &u.SheetURL)
	if errors.Is(err, sql.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return u, fmt.Errorf("get user %s: %w", userKey, err)
	}
	u.Notifications = notifications != 0
	return u, nil
}

// Put upserts the full settings row.
func (s *UserStore) Put(u UserSettings) error {
	notifications := 0
	if u.Notifications {
		notifications = 1
	}
	_, err := s.db.sql.Exec(
		`INSERT INTO users (user_key, city, notify_time, notifications, sheet_url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_key) DO UPDATE SET
		   city = excluded.city,
		   notify_time = excluded.notify_time,
		   notifications = excluded.notifications,
		   sheet_url = excluded.sheet_url,
		   updated_at = excluded.updated_at`,
		u.UserKey, u.City, u.NotifyTime, notifications, u.SheetURL,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put user %s: %w", u.UserKey, err)
	}
	return nil
}

// Count returns the number of known users.
func (s *UserStore) Count() (int, error) {
	var n int
	err := s.db.sql.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
