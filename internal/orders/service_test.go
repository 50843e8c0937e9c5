package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
	"github.com/omoshop/shop-backend/pkg/pagination"
)

func TestGetOrderNotFound(t *testing.T) {
	t.Parallel()

	svc, err := NewService(NewRepository(newTestDB(t)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.GetOrder(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if appErr.Message() != "Order not found" {
		t.Fatalf("unexpected message %q", appErr.Message())
	}
}

func TestGetUserOrdersEmpty(t *testing.T) {
	t.Parallel()

	svc, err := NewService(NewRepository(newTestDB(t)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	dtos, err := svc.GetUserOrders(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if dtos == nil || len(dtos) != 0 {
		t.Fatalf("expected empty slice, got %v", dtos)
	}
}

func TestGetOrderProjectsItems(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	created := mustCreateOrder(t, repo, uuid.New(), time.Now())

	dto, err := svc.GetOrder(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if dto.OrderID != created.ID {
		t.Fatalf("unexpected order id %s", dto.OrderID)
	}
	if dto.OrderStatus != "PENDING" {
		t.Fatalf("unexpected status %s", dto.OrderStatus)
	}
	if len(dto.OrderItems) != 1 || dto.OrderItems[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", dto.OrderItems)
	}
}

func TestListUserOrdersRejectsBadCursor(t *testing.T) {
	t.Parallel()

	svc, err := NewService(NewRepository(newTestDB(t)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.ListUserOrders(context.Background(), uuid.New(), pagination.Params{Cursor: "???"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
