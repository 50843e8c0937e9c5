package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
	"github.com/omoshop/shop-backend/pkg/pagination"
)

// Service exposes read operations over placed orders.
type Service interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (OrderDTO, error)
	GetUserOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (OrderList, error)
}

type service struct {
	repo Repository
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		return OrderDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return ToDTO(order), nil
}

// GetUserOrders returns every order of the user, newest first. A user with no
// orders gets an empty slice, not an error.
func (s *service) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, ToDTO(&rows[i]))
	}
	return dtos, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (OrderList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return OrderList{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUserPage(ctx, userID, params)
	if err != nil {
		return OrderList{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders page")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, ToDTO(&rows[i]))
	}
	return OrderList{Orders: dtos, NextCursor: next}, nil
}
