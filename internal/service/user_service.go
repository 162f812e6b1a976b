package service

import (
	"context"

	"chatserver/internal/domain"
)

// UserService provides user-related operations.
type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) SetProfilePicture(ctx context.Context, id, url string) error {
	if id == "" || url == "" {
		return domain.ErrInvalidInput
	}
	return s.users.UpdateProfilePicture(ctx, id, url)
}
