package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/omoshop/shop-backend/pkg/db/models"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
	"github.com/omoshop/shop-backend/pkg/logger"
)

// Service exposes cart line-item maintenance. Cart totals are recomputed from
// the lines on every mutation, never adjusted incrementally.
type Service interface {
	InitializeCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetTotalPrice(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error)
	AddItem(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.Cart, error)
	RefreshPriceSnapshot(ctx context.Context, cartID, productID uuid.UUID) (*models.Cart, error)
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
	ClearCartForOrder(ctx context.Context, orderID, cartID uuid.UUID) error
}

type service struct {
	repo     Repository
	products productFinder
	orders   orderFinder
	logg     *logger.Logger
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, products productFinder, orders orderFinder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order finder required")
	}
	return &service{repo: repo, products: products, orders: orders, logg: logg}, nil
}

// InitializeCart returns the user's cart, creating an empty one on first use.
func (s *service) InitializeCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	cart = &models.Cart{UserID: userID, TotalAmount: decimal.Zero}
	if _, err := s.repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	return cart, nil
}

func (s *service) GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return cart, nil
}

func (s *service) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return cart, nil
}

func (s *service) GetTotalPrice(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return cart.TotalAmount, nil
}

// AddItem merges the product into the cart: an existing line gains quantity,
// a new line snapshots the current product price.
func (s *service) AddItem(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if _, err := s.GetCart(ctx, cartID); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	item, err := s.repo.FindItem(ctx, cartID, productID)
	switch {
	case err == nil:
		item.Quantity += qty
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = &models.CartItem{
			CartID:    cartID,
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: product.Price,
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}
	item.RecalculateTotal()
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart item")
	}
	return s.recomputeTotal(ctx, cartID)
}

// UpdateItemQuantity sets the quantity of an existing line. A missing line is
// a no-op, matching the add-first contract of the cart API.
func (s *service) UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if _, err := s.GetCart(ctx, cartID); err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, cartID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.GetCart(ctx, cartID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}
	item.Quantity = qty
	item.RecalculateTotal()
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart item")
	}
	return s.recomputeTotal(ctx, cartID)
}

// RefreshPriceSnapshot re-reads the live product price into the line. Checkout
// charges the snapshotted price, so callers decide when to re-snapshot.
func (s *service) RefreshPriceSnapshot(ctx context.Context, cartID, productID uuid.UUID) (*models.Cart, error) {
	item, err := s.repo.FindItem(ctx, cartID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "CartItem not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	item.UnitPrice = product.Price
	item.RecalculateTotal()
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart item")
	}
	return s.recomputeTotal(ctx, cartID)
}

func (s *service) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*models.Cart, error) {
	if _, err := s.GetCart(ctx, cartID); err != nil {
		return nil, err
	}
	affected, err := s.repo.DeleteItem(ctx, cartID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting cart item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "CartItem not found")
	}
	return s.recomputeTotal(ctx, cartID)
}

// ClearCart deletes the lines and the cart row itself. The next add-to-cart
// starts from a fresh cart.
func (s *service) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.GetCart(ctx, cartID); err != nil {
		return err
	}
	if err := s.repo.DeleteItems(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting cart items")
	}
	if err := s.repo.DeleteCart(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting cart")
	}
	return nil
}

// ClearCartForOrder clears the cart that produced the order. It only ever
// touches the cart row named by cartID; a cart the user created after
// checkout is a different row and stays intact. Already-cleared carts count
// as success so retries converge instead of erroring.
func (s *service) ClearCartForOrder(ctx context.Context, orderID, cartID uuid.UUID) error {
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	if cartID == uuid.Nil {
		return nil
	}

	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Cart already cleared by a previous attempt.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	if err := s.ClearCart(ctx, cart.ID); err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, orderID.String())
		logCtx = s.logg.WithCartID(logCtx, cart.ID.String())
		s.logg.Info(logCtx, "cart cleared for order")
	}
	return nil
}

func (s *service) recomputeTotal(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	total, err := s.repo.SumItemTotals(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing cart items")
	}
	if err := s.repo.UpdateTotal(ctx, cartID, total); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart total")
	}
	return s.GetCart(ctx, cartID)
}
