package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omoshop/shop-backend/pkg/db/models"
	"github.com/omoshop/shop-backend/pkg/enums"
)

// OrderItemDTO is one snapshotted line of an order.
type OrderItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// OrderDTO is the outward projection of an order.
type OrderDTO struct {
	OrderID     uuid.UUID         `json:"orderId"`
	UserID      uuid.UUID         `json:"userId"`
	OrderDate   time.Time         `json:"orderDate"`
	TotalPrice  decimal.Decimal   `json:"totalPrice"`
	OrderStatus enums.OrderStatus `json:"orderStatus"`
	OrderItems  []OrderItemDTO    `json:"orderItems"`
}

// OrderList wraps one page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToDTO converts the persistence model into the API projection.
func ToDTO(order *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return OrderDTO{
		OrderID:     order.ID,
		UserID:      order.UserID,
		OrderDate:   order.OrderDate,
		TotalPrice:  order.TotalPrice,
		OrderStatus: order.Status,
		OrderItems:  items,
	}
}
