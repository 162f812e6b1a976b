package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chatserver/internal/domain"
	"chatserver/internal/security"
)

// AuthService handles registration, login, token refresh, and logout.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// TokenPair is the result of a successful login: both token kinds plus the
// authenticated user. The refresh token has already been persisted.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, domain.ErrConflict
	}

	if existing, err := s.users.GetByUsername(ctx, in.Username); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	} else if existing != nil {
		return nil, domain.ErrConflict
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		Username:       in.Username,
		Email:          in.Email,
		HashedPassword: hashed,
		DisplayName:    firstName(in.Username),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials, issues both tokens, and persists the refresh
// token on the user row. The previous refresh token is overwritten, so a
// login elsewhere silently invalidates that session's refresh capability.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	if in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, domain.ErrUnauthorized
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	user.RefreshToken = &refresh

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// Refresh mints a new access token. The presented refresh token must both
// verify and match the value stored for that user; a token replaced by a
// later login is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", domain.ErrInvalidInput
	}

	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", domain.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return "", domain.ErrUnauthorized
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// Logout clears the stored refresh token. Outstanding access tokens remain
// valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.users.UpdateRefreshToken(ctx, userID, nil)
}

// firstName derives the display name recorded at registration.
func firstName(username string) string {
	if i := strings.IndexByte(username, ' '); i > 0 {
		return username[:i]
	}
	return username
}
