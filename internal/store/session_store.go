package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/soyeahso/teo/internal/domain"
)

// SessionStore persists anchor session snapshots so anchors survive a
// restart. It implements anchor.Persister. Each session is stored as a
// JSON document alongside a few indexed key columns; the engine's
// in-memory store stays the source of truth while running.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a durable session store over db.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save upserts the session snapshot.
func (s *SessionStore) Save(sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.db.sql.Exec(
		`INSERT INTO anchor_sessions (key_str, channel_id, chat_id, user_id, data, last_activity)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key_str) DO UPDATE SET data = excluded.data, last_activity = excluded.last_activity`,
		sess.Key.String(), sess.Key.ChannelID, sess.Key.ChatID, sess.Key.UserID,
		string(data), sess.LastActivity.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.Key.String(), err)
	}
	return nil
}

// Delete removes the snapshot for a key.
func (s *SessionStore) Delete(key domain.SessionKey) error {
	_, err := s.db.sql.Exec(`DELETE FROM anchor_sessions WHERE key_str = ?`, key.String())
	if err != nil {
		return fmt.Errorf("delete session %s: %w", key.String(), err)
	}
	return nil
}

// LoadAll returns every persisted session, for seeding the engine at
// startup. Rows that fail to decode are skipped and logged rather than
// blocking startup.
func (s *SessionStore) LoadAll() ([]*domain.Session, error) {
	rows, err := s.db.sql.Query(`SELECT key_str, data FROM anchor_sessions`)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var keyStr, data string
		if err := rows.Scan(&keyStr, &data); err != nil {
			continue
		}
		var sess domain.Session
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			s.db.log.Warn().Err(err).Str("key", keyStr).Msg("skipping undecodable session snapshot")
			continue
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// Count returns the number of persisted sessions.
func (s *SessionStore) Count() (int, error) {
	var n int
	err := s.db.sql.QueryRow(`SELECT COUNT(*) FROM anchor_sessions`).Scan(&n)
	return n, err
}
