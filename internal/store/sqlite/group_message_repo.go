package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

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
	m.CreatedAt = time.Now().UTC()
	if m.SeenBy == nil {
		m.SeenBy = []string{}
	}
	seenBy, err := json.Marshal(m.SeenBy)
	if err != nil {
		return fmt.Errorf("encode seen_by: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO group_messages (id, sender_id, group_id, message_type, content, seen_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.SenderID, m.GroupID, m.MessageType, m.Content, string(seenBy), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create group message: %w", err)
	}
	return nil
}

func (r *GroupMessageRepo) ListForGroup(ctx context.Context, groupID string) ([]*domain.GroupMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, group_id, message_type, content, seen_by, created_at
		FROM group_messages
		WHERE group_id = ?
		ORDER BY created_at ASC, id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.GroupMessage
	for rows.Next() {
		m := &domain.GroupMessage{}
		var seenBy string
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.GroupID, &m.MessageType, &m.Content,
			&seenBy, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan group message: %w", err)
		}
		if err := json.Unmarshal([]byte(seenBy), &m.SeenBy); err != nil {
			return nil, fmt.Errorf("decode seen_by: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *GroupMessageRepo) AddSeenBy(ctx context.Context, messageID, userID string) error {
	return addSeenBy(ctx, r.db, "group_messages", messageID, userID)
}
