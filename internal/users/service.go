package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omoshop/shop-backend/pkg/db/models"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
)

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service exposes read operations over user accounts.
type Service interface {
	GetUser(ctx context.Context, id uuid.UUID) (UserDTO, error)
	GetUserByEmail(ctx context.Context, email string) (UserDTO, error)
}

type service struct {
	repo userFinder
}

// NewService builds a users service with the required dependencies.
func NewService(repo userFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		return UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return ToDTO(user), nil
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (UserDTO, error) {
	if email == "" {
		return UserDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		return UserDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user by email")
	}
	return ToDTO(user), nil
}
