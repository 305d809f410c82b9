package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate creates the schema. Idempotent; safe to run on every start.
//
// Messages keep their set/map-valued fields (read_by, reactions, attachments,
// forwarded) as JSON columns so the stored field names match the wire format
// of the existing data.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			email TEXT UNIQUE,
			avatar TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			hashed_password TEXT NOT NULL DEFAULT '',
			online BOOLEAN NOT NULL DEFAULT 0,
			last_seen INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT 0,
			last_message TEXT DEFAULT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			joined_at INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (group_id, user_id),
			FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL DEFAULT '',
			sender_id TEXT NOT NULL,
			receiver_id TEXT NOT NULL DEFAULT '',
			group_id TEXT NOT NULL DEFAULT '',
			chat_id TEXT NOT NULL DEFAULT '',
			timestamp INTEGER NOT NULL,
			read_by TEXT NOT NULL DEFAULT '[]',
			reactions TEXT NOT NULL DEFAULT '{}',
			attachments TEXT NOT NULL DEFAULT '[]',
			forwarded TEXT DEFAULT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_a TEXT NOT NULL,
			user_b TEXT NOT NULL,
			last_message TEXT DEFAULT NULL,
			created_at INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
		`CREATE INDEX IF NOT EXISTS idx_users_online ON users(online);`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_group ON messages(group_id, timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_a ON conversations(user_a, updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_b ON conversations(user_b, updated_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
