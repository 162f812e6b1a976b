package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"chatserver/internal/domain"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewRepositories wires every PostgreSQL repository over the given handle.
func NewRepositories(db *sql.DB) *domain.Repositories {
	return &domain.Repositories{
		Users:         NewUserRepo(db),
		Messages:      NewMessageRepo(db),
		GroupMessages: NewGroupMessageRepo(db),
		Groups:        NewGroupRepo(db),
		Media:         NewMediaRepo(db),
	}
}

// Migrate runs idempotent DDL migrations for the chat schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users
		`CREATE TABLE IF NOT EXISTS users (
			id              UUID         PRIMARY KEY,
			username        VARCHAR(50)  UNIQUE NOT NULL,
			email           VARCHAR(100) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			display_name    VARCHAR(50)  NOT NULL,
			profile_picture TEXT,
			refresh_token   TEXT,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Direct messages
		`CREATE TABLE IF NOT EXISTS messages (
			id           UUID        PRIMARY KEY,
			sender_id    UUID        NOT NULL REFERENCES users(id),
			receiver_id  UUID        NOT NULL REFERENCES users(id),
			message_type VARCHAR(10) NOT NULL DEFAULT 'text',
			content      TEXT        NOT NULL,
			seen_by      TEXT[]      NOT NULL DEFAULT '{}',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Groups
		`CREATE TABLE IF NOT EXISTS groups (
			id         UUID         PRIMARY KEY,
			name       VARCHAR(100) NOT NULL,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Group membership
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id  UUID        NOT NULL REFERENCES groups(id),
			user_id   UUID        NOT NULL REFERENCES users(id),
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (group_id, user_id)
		)`,

		// Group messages
		`CREATE TABLE IF NOT EXISTS group_messages (
			id           UUID        PRIMARY KEY,
			sender_id    UUID        NOT NULL REFERENCES users(id),
			group_id     UUID        NOT NULL REFERENCES groups(id),
			message_type VARCHAR(10) NOT NULL DEFAULT 'text',
			content      TEXT        NOT NULL,
			seen_by      TEXT[]      NOT NULL DEFAULT '{}',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Media attachments
		`CREATE TABLE IF NOT EXISTS media (
			id         UUID        PRIMARY KEY,
			user_id    UUID        NOT NULL REFERENCES users(id),
			message_id UUID        NOT NULL REFERENCES messages(id),
			media_type VARCHAR(10) NOT NULL,
			media_url  TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_group_messages_group ON group_messages(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_messages_created_at ON group_messages(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_media_message ON media(message_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
