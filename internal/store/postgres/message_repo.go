package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"chatserver/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO messages (id, sender_id, receiver_id, message_type, content, seen_by, created_at)
		VALUES ($1, $2, $3, $4, $5, '{}', NOW())
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query,
		m.ID, m.SenderID, m.ReceiverID, m.MessageType, m.Content,
	).Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	if m.SeenBy == nil {
		m.SeenBy = []string{}
	}
	return nil
}

// ListBetween returns all messages exchanged between the two users, in either
// direction, in insertion order.
func (r *MessageRepo) ListBetween(ctx context.Context, userA, userB string) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, message_type, content, seen_by, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC
	`, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.MessageType, &m.Content,
			pq.Array(&m.SeenBy), &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// AddSeenBy appends the user to the seen-by set. The guard keeps the column
// duplicate-free without a read-modify-write cycle.
func (r *MessageRepo) AddSeenBy(ctx context.Context, messageID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET seen_by = array_append(seen_by, $2)
		WHERE id = $1 AND NOT (seen_by @> ARRAY[$2]::text[])
	`, messageID, userID)
	if err != nil {
		return fmt.Errorf("add seen by: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either already seen or missing; distinguish for the caller.
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1)`, messageID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check message: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
	}
	return nil
}
