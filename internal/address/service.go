package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omoshop/shop-backend/pkg/db/models"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
)

type repository interface {
	Create(ctx context.Context, addr *models.Address) (*models.Address, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AddressInput carries the fields of a shipping address.
type AddressInput struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
	ZipCode string `json:"zip_code" validate:"required"`
}

// Service exposes shipping address management. Every operation that touches a
// stored address checks ownership first.
type Service interface {
	AddAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*models.Address, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	ResolveOwnedAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
	UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, input AddressInput) (*models.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error
}

type service struct {
	repo repository
}

// NewService builds an address service with the required dependencies.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AddAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*models.Address, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	addr := &models.Address{
		UserID:  userID,
		Street:  strings.TrimSpace(input.Street),
		City:    strings.TrimSpace(input.City),
		State:   strings.TrimSpace(input.State),
		Country: strings.TrimSpace(input.Country),
		ZipCode: strings.TrimSpace(input.ZipCode),
	}
	if _, err := s.repo.Create(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating address")
	}
	return addr, nil
}

func (s *service) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing addresses")
	}
	return rows, nil
}

// ResolveOwnedAddress loads the address and verifies it belongs to the user.
// A missing address and a foreign address fail differently so callers can
// surface 404 versus 403.
func (s *service) ResolveOwnedAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	addr, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading address")
	}
	if addr.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to user")
	}
	return addr, nil
}

func (s *service) UpdateAddress(ctx context.Context, userID, addressID uuid.UUID, input AddressInput) (*models.Address, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if _, err := s.ResolveOwnedAddress(ctx, userID, addressID); err != nil {
		return nil, err
	}
	updates := map[string]any{
		"street":   strings.TrimSpace(input.Street),
		"city":     strings.TrimSpace(input.City),
		"state":    strings.TrimSpace(input.State),
		"country":  strings.TrimSpace(input.Country),
		"zip_code": strings.TrimSpace(input.ZipCode),
	}
	if err := s.repo.Update(ctx, addressID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating address")
	}
	return s.repo.FindByID(ctx, addressID)
}

func (s *service) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := s.ResolveOwnedAddress(ctx, userID, addressID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, addressID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting address")
	}
	return nil
}

func validateInput(input AddressInput) error {
	for _, field := range []string{input.Street, input.City, input.State, input.Country, input.ZipCode} {
		if strings.TrimSpace(field) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "street, city, state, country and zip_code are required")
		}
	}
	return nil
}
