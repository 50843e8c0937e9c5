package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/omoshop/shop-backend/internal/address"
	"github.com/omoshop/shop-backend/internal/cart"
	"github.com/omoshop/shop-backend/internal/orders"
	"github.com/omoshop/shop-backend/pkg/db/models"
	"github.com/omoshop/shop-backend/pkg/enums"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
	"github.com/omoshop/shop-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type gormProductFinder struct {
	db *gorm.DB
}

func (f *gormProductFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := f.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

type gormOrderFinder struct {
	db *gorm.DB
}

func (f *gormOrderFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := f.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	cartSvc  cart.Service
	addrSvc  address.Service
	outboxes *outbox.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.User{},
		&models.Address{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, &gormProductFinder{db: conn}, &gormOrderFinder{db: conn}, nil)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	addrSvc, err := address.NewService(address.NewRepository(conn))
	if err != nil {
		t.Fatalf("address service: %v", err)
	}
	outboxRepo := outbox.NewRepository(conn)

	svc, err := NewService(
		&gormTxRunner{db: conn},
		cartRepo,
		orders.NewRepository(conn),
		addrSvc,
		cartSvc,
		nil,
		outbox.NewService(outboxRepo, nil),
		nil,
		nil,
		0,
	)
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}

	return &fixture{db: conn, svc: svc, cartSvc: cartSvc, addrSvc: addrSvc, outboxes: outboxRepo}
}

func (f *fixture) mustCreateProduct(t *testing.T, name, price string, inventory int) *models.Product {
	t.Helper()
	category := &models.Category{Name: "category-" + uuid.NewString()}
	if err := f.db.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	product := &models.Product{
		Name:       name,
		Brand:      "brand-" + uuid.NewString(),
		Price:      decimal.RequireFromString(price),
		Inventory:  inventory,
		CategoryID: category.ID,
	}
	if err := f.db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func (f *fixture) mustFillCart(t *testing.T, userID uuid.UUID, product *models.Product, qty int) *models.Cart {
	t.Helper()
	ctx := context.Background()
	record, err := f.cartSvc.InitializeCart(ctx, userID)
	if err != nil {
		t.Fatalf("initialize cart: %v", err)
	}
	if _, err := f.cartSvc.AddItem(ctx, record.ID, product.ID, qty); err != nil {
		t.Fatalf("add item: %v", err)
	}
	return record
}

func (f *fixture) inventoryOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := f.db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Inventory
}

func TestPlaceOrderHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	laptop := f.mustCreateProduct(t, "Laptop", "1500.00", 10)
	record := f.mustFillCart(t, userID, laptop, 2)

	order, err := f.svc.PlaceOrder(ctx, userID, nil)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}
	if !order.TotalPrice.Equal(decimal.RequireFromString("3000.00")) {
		t.Fatalf("expected total 3000.00, got %s", order.TotalPrice)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", order.Items)
	}
	if !order.Items[0].Price.Equal(decimal.RequireFromString("1500.00")) {
		t.Fatalf("expected snapshotted price 1500.00, got %s", order.Items[0].Price)
	}

	if got := f.inventoryOf(t, laptop.ID); got != 8 {
		t.Fatalf("expected inventory 8, got %d", got)
	}

	// Phase two removed the cart.
	var count int64
	if err := f.db.Model(&models.Cart{}).Where("id = ?", record.ID).Count(&count).Error; err != nil {
		t.Fatalf("count carts: %v", err)
	}
	if count != 0 {
		t.Fatal("expected cart to be cleared")
	}

	// The outbox row committed with the order.
	rows, err := f.outboxes.FetchUnprocessed(10, 5)
	if err != nil {
		t.Fatalf("fetch outbox: %v", err)
	}
	if len(rows) != 1 || rows[0].EventType != enums.EventOrderCreated || rows[0].AggregateID != order.ID {
		t.Fatalf("unexpected outbox rows %+v", rows)
	}
}

func TestPlaceOrderChargesSnapshotNotLivePrice(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	product := f.mustCreateProduct(t, "Keyboard", "100.00", 10)
	f.mustFillCart(t, userID, product, 1)

	// Price hike after the line was added.
	if err := f.db.Model(&models.Product{}).Where("id = ?", product.ID).
		UpdateColumn("price", decimal.RequireFromString("180.00")).Error; err != nil {
		t.Fatalf("update price: %v", err)
	}

	order, err := f.svc.PlaceOrder(ctx, userID, nil)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !order.TotalPrice.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected snapshot price 100.00, got %s", order.TotalPrice)
	}
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	plenty := f.mustCreateProduct(t, "Mouse", "20.00", 50)
	scarce := f.mustCreateProduct(t, "Monitor", "300.00", 1)

	record := f.mustFillCart(t, userID, plenty, 2)
	if _, err := f.cartSvc.AddItem(ctx, record.ID, scarce.ID, 3); err != nil {
		t.Fatalf("add scarce item: %v", err)
	}

	_, err := f.svc.PlaceOrder(ctx, userID, nil)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if appErr.Message() != "Not enough stock for product: Monitor" {
		t.Fatalf("unexpected message %q", appErr.Message())
	}

	// Rollback left every product untouched, even the one decremented first.
	if got := f.inventoryOf(t, plenty.ID); got != 50 {
		t.Fatalf("expected inventory 50, got %d", got)
	}
	if got := f.inventoryOf(t, scarce.ID); got != 1 {
		t.Fatalf("expected inventory 1, got %d", got)
	}

	// No order, no outbox row, cart intact.
	var orderCount int64
	if err := f.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatal("expected no order row")
	}
	rows, err := f.outboxes.FetchUnprocessed(10, 5)
	if err != nil {
		t.Fatalf("fetch outbox: %v", err)
	}
	if len(rows) != 0 {
		t.Fatal("expected no outbox rows")
	}
	reloaded, err := f.cartSvc.GetCart(ctx, record.ID)
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if len(reloaded.Items) != 2 {
		t.Fatalf("expected cart intact with 2 lines, got %d", len(reloaded.Items))
	}
}

func TestPlaceOrderAddressChecks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	product := f.mustCreateProduct(t, "Desk", "250.00", 5)
	f.mustFillCart(t, userID, product, 1)

	missing := uuid.New()
	_, err := f.svc.PlaceOrder(ctx, userID, &missing)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if appErr.Message() != "Address not found" {
		t.Fatalf("unexpected message %q", appErr.Message())
	}

	foreign, err := f.addrSvc.AddAddress(ctx, uuid.New(), address.AddressInput{
		Street: "5 Elsewhere Rd", City: "Tulsa", State: "OK", Country: "US", ZipCode: "74104",
	})
	if err != nil {
		t.Fatalf("add foreign address: %v", err)
	}
	_, err = f.svc.PlaceOrder(ctx, userID, &foreign.ID)
	appErr = pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	owned, err := f.addrSvc.AddAddress(ctx, userID, address.AddressInput{
		Street: "1 Main St", City: "Tulsa", State: "OK", Country: "US", ZipCode: "74104",
	})
	if err != nil {
		t.Fatalf("add owned address: %v", err)
	}
	order, err := f.svc.PlaceOrder(ctx, userID, &owned.ID)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.AddressID == nil || *order.AddressID != owned.ID {
		t.Fatalf("expected order stamped with address %s", owned.ID)
	}
}

func TestPlaceOrderCartValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// No cart at all.
	_, err := f.svc.PlaceOrder(ctx, uuid.New(), nil)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if appErr.Message() != "Cart not found" {
		t.Fatalf("unexpected message %q", appErr.Message())
	}

	// An empty cart is treated the same as a missing one.
	userID := uuid.New()
	if _, err := f.cartSvc.InitializeCart(ctx, userID); err != nil {
		t.Fatalf("initialize cart: %v", err)
	}
	_, err = f.svc.PlaceOrder(ctx, userID, nil)
	appErr = pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for empty cart, got %v", err)
	}
	if appErr.Message() != "Cart not found" {
		t.Fatalf("unexpected message %q", appErr.Message())
	}
}
