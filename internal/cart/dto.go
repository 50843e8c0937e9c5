package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omoshop/shop-backend/pkg/db/models"
)

// CartItemDTO is the outward projection of one cart line.
type CartItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// CartDTO is the outward projection of a cart.
type CartDTO struct {
	CartID      uuid.UUID       `json:"cartId"`
	UserID      uuid.UUID       `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []CartItemDTO   `json:"items"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ToDTO converts the persistence model into the API projection.
func ToDTO(cart *models.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		dto := CartItemDTO{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		}
		if item.Product != nil {
			dto.ProductName = item.Product.Name
		}
		items = append(items, dto)
	}
	return CartDTO{
		CartID:      cart.ID,
		UserID:      cart.UserID,
		TotalAmount: cart.TotalAmount,
		Items:       items,
		UpdatedAt:   cart.UpdatedAt,
	}
}
