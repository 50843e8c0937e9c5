package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/omoshop/shop-backend/internal/cart"
	"github.com/omoshop/shop-backend/internal/orders"
	"github.com/omoshop/shop-backend/internal/products"
	"github.com/omoshop/shop-backend/pkg/db/models"
	"github.com/omoshop/shop-backend/pkg/enums"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
	"github.com/omoshop/shop-backend/pkg/logger"
	"github.com/omoshop/shop-backend/pkg/metrics"
	"github.com/omoshop/shop-backend/pkg/outbox"
	"github.com/omoshop/shop-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type addressResolver interface {
	ResolveOwnedAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
}

type cartClearer interface {
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

type inventoryRunner interface {
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error)
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type inventoryEngine struct{}

func (inventoryEngine) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error) {
	return products.NewRepository(tx).DecrementInventory(ctx, productID, qty)
}

// Service executes the order placement workflow.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, addressID *uuid.UUID) (*models.Order, error)
}

type service struct {
	tx         txRunner
	cartRepo   cart.Repository
	ordersRepo orders.Repository
	addresses  addressResolver
	carts      cartClearer
	inventory  inventoryRunner
	outbox     outboxPublisher
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	txTimeout  time.Duration
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	addresses addressResolver,
	carts cartClearer,
	inventory inventoryRunner,
	publisher outboxPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
	txTimeout time.Duration,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address resolver required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if inventory == nil {
		inventory = inventoryEngine{}
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if txTimeout <= 0 {
		txTimeout = 10 * time.Second
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		addresses:  addresses,
		carts:      carts,
		inventory:  inventory,
		outbox:     publisher,
		metrics:    checkoutMetrics,
		logg:       logg,
		txTimeout:  txTimeout,
	}, nil
}

// PlaceOrder converts the user's cart into an order. The stock decrements,
// the order insert and the outbox row commit in one transaction; the cart is
// cleared afterwards in a second transaction, with the outbox worker retrying
// the clear if this process dies in between.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, addressID *uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	started := time.Now()

	record, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.fail(pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found"))
		}
		return nil, s.fail(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart"))
	}
	// An empty cart reads the same as a missing one: there is nothing to
	// place an order from.
	if len(record.Items) == 0 {
		return nil, s.fail(pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found"))
	}

	var shippingAddress *models.Address
	if addressID != nil {
		shippingAddress, err = s.addresses.ResolveOwnedAddress(ctx, userID, *addressID)
		if err != nil {
			return nil, s.fail(err)
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var order *models.Order
	err = s.tx.WithTx(txCtx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(record.Items))
		for _, line := range record.Items {
			ok, derr := s.inventory.Decrement(txCtx, tx, line.ProductID, line.Quantity)
			if derr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, derr, "decrementing inventory")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("Not enough stock for product: %s", productName(line)))
			}
			items = append(items, models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.UnitPrice,
			})
			total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		candidate := &models.Order{
			UserID:     userID,
			OrderDate:  time.Now(),
			TotalPrice: total,
			Status:     enums.OrderStatusPending,
			Items:      items,
		}
		if shippingAddress != nil {
			candidate.AddressID = &shippingAddress.ID
		}
		created, cerr := ordersRepo.Create(txCtx, candidate)
		if cerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, cerr, "creating order")
		}
		order = created

		// deduped by (event type, order id) should the insert ever race a
		// concurrent retry
		return s.outbox.EmitIfNotExists(txCtx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:    created.ID,
				CartID:     record.ID,
				UserID:     userID,
				TotalPrice: total.StringFixed(2),
			},
		})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, s.fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout timed out"))
		}
		return nil, s.fail(err)
	}

	// Phase two runs in its own transaction. A crash between the commit above
	// and this clear leaves the cart populated; the outbox worker replays the
	// clear keyed by the cart id carried in the event until it lands.
	if clearErr := s.carts.ClearCart(ctx, record.ID); clearErr != nil {
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			logCtx = s.logg.WithCartID(logCtx, record.ID.String())
			s.logg.Warn(logCtx, "cart clear deferred to outbox worker")
		}
	}

	s.metrics.IncPlaced()
	s.metrics.ObserveDuration(time.Since(started))
	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, userID.String())
		logCtx = s.logg.WithOrderID(logCtx, order.ID.String())
		s.logg.Info(logCtx, "order placed")
	}
	return order, nil
}

func (s *service) fail(err error) error {
	reason := "internal"
	if appErr := pkgerrors.As(err); appErr != nil {
		switch appErr.Code() {
		case pkgerrors.CodeConflict:
			reason = "insufficient_stock"
		case pkgerrors.CodeNotFound:
			reason = "not_found"
		case pkgerrors.CodeValidation:
			reason = "validation"
		case pkgerrors.CodeForbidden:
			reason = "forbidden"
		case pkgerrors.CodeDependency:
			reason = "timeout"
		}
	}
	s.metrics.IncFailure(reason)
	return err
}

func productName(line models.CartItem) string {
	if line.Product != nil && line.Product.Name != "" {
		return line.Product.Name
	}
	return line.ProductID.String()
}
