package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"chatserver/internal/domain"
)

type GroupMessageRepo struct {
	db *sql.DB
}

func NewGroupMessageRepo(db *sql.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

var _ domain.GroupMessageRepository = (*GroupMessageRepo)(nil)

func (r *GroupMessageRepo) Create(ctx context.Context, m *domain.GroupMessage) error {
	query := `
		INSERT INTO group_messages (id, sender_id, group_id, message_type, content, seen_by, created_at)
		VALUES ($1, $2, $3, $4, $5, '{}', NOW())
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query,
		m.ID, m.SenderID, m.GroupID, m.MessageType, m.Content,
	).Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("create group message: %w", err)
	}
	if m.SeenBy == nil {
		m.SeenBy = []string{}
	}
	return nil
}

func (r *GroupMessageRepo) ListForGroup(ctx context.Context, groupID string) ([]*domain.GroupMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, group_id, message_type, content, seen_by, created_at
		FROM group_messages
		WHERE group_id = $1
		ORDER BY created_at ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.GroupMessage
	for rows.Next() {
		m := &domain.GroupMessage{}
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.GroupID, &m.MessageType, &m.Content,
			pq.Array(&m.SeenBy), &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan group message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *GroupMessageRepo) AddSeenBy(ctx context.Context, messageID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE group_messages
		SET seen_by = array_append(seen_by, $2)
		WHERE id = $1 AND NOT (seen_by @> ARRAY[$2]::text[])
	`, messageID, userID)
	if err != nil {
		return fmt.Errorf("add seen by: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM group_messages WHERE id = $1)`, messageID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check group message: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
	}
	return nil
}
