package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatserver/internal/domain"
)

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

var _ domain.GroupRepository = (*GroupRepo)(nil)

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group, memberIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO groups (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
	`, g.ID, g.Name, g.CreatedAt, g.UpdatedAt); err != nil {
		return fmt.Errorf("create group: %w", err)
	}

	for _, userID := range memberIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)
		`, g.ID, userID, now); err != nil {
			return fmt.Errorf("add member %s: %w", userID, err)
		}
	}

	return tx.Commit()
}

func (r *GroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	g := &domain.Group{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan group: %w", err)
	}
	return g, nil
}

func (r *GroupRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.created_at, g.updated_at
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		g := &domain.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.hashed_password, u.display_name,
		       u.profile_picture, u.refresh_token, u.created_at, u.updated_at
		FROM users u
		JOIN group_members gm ON gm.user_id = u.id
		WHERE gm.group_id = ?
		ORDER BY gm.joined_at ASC, u.id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.DisplayName,
			&u.ProfilePicture, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?
		)
	`, groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}
