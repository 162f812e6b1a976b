package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

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
	m.CreatedAt = time.Now().UTC()
	if m.SeenBy == nil {
		m.SeenBy = []string{}
	}
	seenBy, err := json.Marshal(m.SeenBy)
	if err != nil {
		return fmt.Errorf("encode seen_by: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, message_type, content, seen_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.SenderID, m.ReceiverID, m.MessageType, m.Content, string(seenBy), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListBetween(ctx context.Context, userA, userB string) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, message_type, content, seen_by, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?)
		   OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC
	`, userA, userB, userB, userA)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		var seenBy string
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.MessageType, &m.Content,
			&seenBy, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(seenBy), &m.SeenBy); err != nil {
			return nil, fmt.Errorf("decode seen_by: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// AddSeenBy reads, dedupes, and writes back the JSON seen-by set.
func (r *MessageRepo) AddSeenBy(ctx context.Context, messageID, userID string) error {
	return addSeenBy(ctx, r.db, "messages", messageID, userID)
}

func addSeenBy(ctx context.Context, db *sql.DB, table, messageID, userID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT seen_by FROM `+table+` WHERE id = ?`, messageID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read seen_by: %w", err)
	}

	var seenBy []string
	if err := json.Unmarshal([]byte(raw), &seenBy); err != nil {
		return fmt.Errorf("decode seen_by: %w", err)
	}
	for _, id := range seenBy {
		if id == userID {
			return nil // already seen
		}
	}
	seenBy = append(seenBy, userID)

	encoded, err := json.Marshal(seenBy)
	if err != nil {
		return fmt.Errorf("encode seen_by: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE `+table+` SET seen_by = ? WHERE id = ?`, string(encoded), messageID,
	); err != nil {
		return fmt.Errorf("write seen_by: %w", err)
	}
	return tx.Commit()
}
