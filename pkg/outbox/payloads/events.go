package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent signals that checkout committed an order and the
// originating cart still needs its post-commit cleanup.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CartID     uuid.UUID `json:"cart_id"`
	UserID     uuid.UUID `json:"user_id"`
	TotalPrice string    `json:"total_price"`
}

// CartClearedEvent records that a cart was emptied after its order committed.
type CartClearedEvent struct {
	CartID    uuid.UUID `json:"cart_id"`
	OrderID   uuid.UUID `json:"order_id"`
	ClearedAt time.Time `json:"cleared_at"`
}
