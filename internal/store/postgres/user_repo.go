package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"chatserver/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `id, username, email, hashed_password, display_name, profile_picture, refresh_token, created_at, updated_at`

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, hashed_password, display_name, profile_picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		u.ID, u.Username, u.Email, u.HashedPassword, u.DisplayName, u.ProfilePicture,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return r.scanUsers(rows)
}

func (r *UserRepo) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE id = $2`,
		token, id,
	)
	return err
}

func (r *UserRepo) UpdateProfilePicture(ctx context.Context, id string, url string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_picture = $1, updated_at = NOW() WHERE id = $2`,
		url, id,
	)
	return err
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *UserRepo) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.DisplayName,
		&u.ProfilePicture, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) scanUsers(rows *sql.Rows) ([]*domain.User, error) {
	defer rows.Close()
	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.DisplayName,
			&u.ProfilePicture, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
