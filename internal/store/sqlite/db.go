package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"chatserver/internal/domain"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// In-memory databases are per-connection; a single connection also
	// sidesteps SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// NewRepositories wires every SQLite repository over the given handle.
func NewRepositories(db *sql.DB) *domain.Repositories {
	return &domain.Repositories{
		Users:         NewUserRepo(db),
		Messages:      NewMessageRepo(db),
		GroupMessages: NewGroupMessageRepo(db),
		Groups:        NewGroupRepo(db),
		Media:         NewMediaRepo(db),
	}
}

// Migrate runs idempotent DDL migrations for the chat schema. The seen_by
// columns hold JSON arrays; SQLite has no native array type.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			display_name VARCHAR(50) NOT NULL,
			profile_picture TEXT,
			refresh_token TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			message_type VARCHAR(10) NOT NULL DEFAULT 'text',
			content TEXT NOT NULL,
			seen_by TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (receiver_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			joined_at DATETIME NOT NULL,
			PRIMARY KEY (group_id, user_id),
			FOREIGN KEY (group_id) REFERENCES groups(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS group_messages (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL,
			group_id TEXT NOT NULL,
			message_type VARCHAR(10) NOT NULL DEFAULT 'text',
			content TEXT NOT NULL,
			seen_by TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (group_id) REFERENCES groups(id)
		);`,
		`CREATE TABLE IF NOT EXISTS media (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			media_type VARCHAR(10) NOT NULL,
			media_url TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (message_id) REFERENCES messages(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);`,
		`CREATE INDEX IF NOT EXISTS idx_group_messages_group ON group_messages(group_id);`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_media_message ON media(message_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
