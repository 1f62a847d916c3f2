package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create anchor session snapshots",
		SQL: `
			CREATE TABLE anchor_sessions (
				key_str       TEXT PRIMARY KEY,
				channel_id    TEXT NOT NULL,
				chat_id       TEXT NOT NULL,
				user_id       TEXT NOT NULL,
				data          TEXT NOT NULL,
				last_activity TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_anchor_sessions_activity ON anchor_sessions (last_activity);
			CREATE INDEX idx_anchor_sessions_channel ON anchor_sessions (channel_id);
		`,
	},
	{
		Version: 2,
		Name:    "create user settings",
		SQL: `
			CREATE TABLE users (
				user_key      TEXT PRIMARY KEY,
				city          TEXT NOT NULL DEFAULT '',
				notify_time   TEXT NOT NULL DEFAULT '',
				notifications INTEGER NOT NULL DEFAULT 0,
				sheet_url     TEXT NOT NULL DEFAULT '',
				created_at    TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
	{
		Version: 3,
		Name:    "create habits",
		SQL: `
			CREATE TABLE habits (
				id          TEXT PRIMARY KEY,
				user_key    TEXT NOT NULL,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_habits_user ON habits (user_key);

			CREATE TABLE habit_checks (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				habit_id   TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
				checked_on TEXT NOT NULL,
				UNIQUE (habit_id, checked_on)
			);

			CREATE INDEX idx_habit_checks_habit ON habit_checks (habit_id, checked_on);
		`,
	},
}
