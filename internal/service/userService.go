package service

import (
	"context"
	"fmt"

	repository "github.com/pyop-labs/ticketing-backend/internal/database/postgres"
	"github.com/pyop-labs/ticketing-backend/internal/entity"
)

// CreateUserRequest представляет данные для регистрации пользователя
type CreateUserRequest struct {
	ClerkID   string `json:"clerk_id" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService создает новый экземпляр UserService
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// CreateUser регистрирует пользователя по внешнему идентификатору
func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest) (*entity.User, error) {
	user := &entity.User{
		ClerkID:   req.ClerkID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByClerkID возвращает пользователя по внешнему идентификатору
func (s *userService) GetUserByClerkID(ctx context.Context, clerkID string) (*entity.User, error) {
	user, err := s.userRepo.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
