package postgres

import (
	"context"
	"database/sql"
	"fmt"

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
	query := `
		INSERT INTO media (id, user_id, message_id, media_type, media_url, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query,
		m.ID, m.UserID, m.MessageID, m.MediaType, m.MediaURL,
	).Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}
