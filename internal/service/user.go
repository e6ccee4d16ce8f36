package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/repo"
)

// UserService keeps the local profile cache in step with the auth provider.
type UserService struct {
	users repo.UserRepo
}

// NewUserService constructs a UserService backed by the provided repo.
func NewUserService(users repo.UserRepo) *UserService {
	return &UserService{users: users}
}

// Sync stores the profile carried by the caller's token.
func (s *UserService) Sync(ctx context.Context, u domain.User) (domain.User, error) {
	if strings.TrimSpace(u.ID) == "" {
		return domain.User{}, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	result, err := s.users.Upsert(ctx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Sync: %w", err)
	}
	return result, nil
}
