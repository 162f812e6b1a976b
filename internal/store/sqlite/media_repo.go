package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatserver/internal/domain"
)

type MediaRepo struct {
	db *sql.DB
}

func NewMediaRepo(db *sql.DB) *MediaRepo {
	return &MediaRepo{db: db}
}

var _ domain.MediaRepository = (*MediaRepo)(nil)

func (r *MediaRepo) Create(ctx context.Context, m *domain.Media) error {
	m.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (id, user_id, message_id, media_type, media_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.UserID, m.MessageID, m.MediaType, m.MediaURL, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}
