package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/omoshop/shop-backend/pkg/db/models"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
)

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
	db  *gorm.DB
	svc Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn), &gormProductFinder{db: conn}, &gormOrderFinder{db: conn}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{db: conn, svc: svc}
}

func (f *fixture) mustCreateProduct(t *testing.T, price string, inventory int) *models.Product {
	t.Helper()
	category := &models.Category{Name: "category-" + uuid.NewString()}
	if err := f.db.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	product := &models.Product{
		Name:       "product-" + uuid.NewString(),
		Brand:      "Acme",
		Price:      decimal.RequireFromString(price),
		Inventory:  inventory,
		CategoryID: category.ID,
	}
	if err := f.db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func TestAddItemMergesLinesAndRecomputesTotal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	cart, err := f.svc.InitializeCart(ctx, userID)
	if err != nil {
		t.Fatalf("initialize cart: %v", err)
	}

	laptop := f.mustCreateProduct(t, "1500.00", 10)
	mouse := f.mustCreateProduct(t, "25.50", 100)

	if _, err := f.svc.AddItem(ctx, cart.ID, laptop.ID, 1); err != nil {
		t.Fatalf("add laptop: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, cart.ID, laptop.ID, 1); err != nil {
		t.Fatalf("add laptop again: %v", err)
	}
	updated, err := f.svc.AddItem(ctx, cart.ID, mouse.ID, 2)
	if err != nil {
		t.Fatalf("add mouse: %v", err)
	}

	if len(updated.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(updated.Items))
	}
	for _, item := range updated.Items {
		if item.ProductID == laptop.ID && item.Quantity != 2 {
			t.Fatalf("expected merged laptop line qty 2, got %d", item.Quantity)
		}
	}

	want := decimal.RequireFromString("3051.00")
	if !updated.TotalAmount.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, updated.TotalAmount)
	}
}

func TestAddItemSnapshotsPriceAtAddTime(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	cart, err := f.svc.InitializeCart(ctx, uuid.New())
	if err != nil {
		t.Fatalf("initialize cart: %v", err)
	}
	product := f.mustCreateProduct(t, "100.00", 10)

	if _, err := f.svc.AddItem(ctx, cart.ID, product.ID, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}

	// Price change after the add must not touch the snapshot.
	if err := f.db.Model(&models.Product{}).Where("id = ?", product.ID).
		UpdateColumn("price", decimal.RequireFromString("150.00")).Error; err != nil {
		t.Fatalf("update price: %v", err)
	}

	reloaded, err := f.svc.GetCart(ctx, cart.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if !reloaded.Items[0].UnitPrice.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected snapshotted price 100.00, got %s", reloaded.Items[0].UnitPrice)
	}

	// The named refresh is the only path that re-reads the live price.
	refreshed, err := f.svc.RefreshPriceSnapshot(ctx, cart.ID, product.ID)
	if err != nil {
		t.Fatalf("refresh snapshot: %v", err)
	}
	if !refreshed.Items[0].UnitPrice.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("expected refreshed price 150.00, got %s", refreshed.Items[0].UnitPrice)
	}
	if !refreshed.TotalAmount.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("expected total 150.00, got %s", refreshed.TotalAmount)
	}
}

func TestUpdateItemQuantityMissingLineIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	cart, err := f.svc.InitializeCart(ctx, uuid.New())
	if err != nil {
		t.Fatalf("initialize cart: %v", err)
	}

	updated, err := f.svc.UpdateItemQuantity(ctx, cart.ID, uuid.New(), 3)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if len(updated.Items) != 0 {
		t.Fatalf("expected no lines, got %d", len(updated.Items))
	}
	if !updated.TotalAmount.Equal(decimal.Zero) {
		t.Fatalf("expected zero total, got %s", updated.TotalAmount)
	}
}

func TestUpdateItemQuantityRecomputesTotal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	cart, err := f.svc.InitializeCart(ctx, uuid.New())
	if err != nil {
		t.Fatalf("initialize cart: %v", err)
	}
	product := f.mustCreateProduct(t, "10.00", 50)

	if _, err := f.svc.AddItem(ctx, cart.ID, product.ID, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	updated, err := f.svc.UpdateItemQuantity(ctx, cart.ID, product.ID, 5)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if updated.Items[0].Quantity != 5 {
		t.Fatalf("expected qty 5, got %d", updated.Items[0].Quantity)
	}
	if !updated.TotalAmount.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected total 50.00, got %s", updated.TotalAmount)
	}
}

func TestRemoveItemNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	cart, err := f.svc.InitializeCart(ctx, uuid.New())
	if err != nil {
		t.Fatalf("initialize cart: %v", err)
	}

	_, err = f.svc.RemoveItem(ctx, cart.ID, uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if appErr.Message() != "CartItem not found" {
		t.Fatalf("unexpected message %q", appErr.Message())
	}
}

func TestClearCartDeletesCartRow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	cart, err := f.svc.InitializeCart(ctx, userID)
	if err != nil {
		t.Fatalf("initialize cart: %v", err)
	}
	product := f.mustCreateProduct(t, "10.00", 50)
	if _, err := f.svc.AddItem(ctx, cart.ID, product.ID, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := f.svc.ClearCart(ctx, cart.ID); err != nil {
		t.Fatalf("clear cart: %v", err)
	}

	_, err = f.svc.GetCart(ctx, cart.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected cart gone, got %v", err)
	}

	// InitializeCart after a clear starts a fresh cart.
	fresh, err := f.svc.InitializeCart(ctx, userID)
	if err != nil {
		t.Fatalf("reinitialize: %v", err)
	}
	if fresh.ID == cart.ID {
		t.Fatal("expected a new cart id")
	}
}

func TestClearCartForOrderIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	cart, err := f.svc.InitializeCart(ctx, userID)
	if err != nil {
		t.Fatalf("initialize cart: %v", err)
	}
	product := f.mustCreateProduct(t, "10.00", 50)
	if _, err := f.svc.AddItem(ctx, cart.ID, product.ID, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}

	order := &models.Order{
		UserID:     userID,
		OrderDate:  cart.CreatedAt,
		TotalPrice: decimal.RequireFromString("20.00"),
		Status:     "PENDING",
	}
	if err := f.db.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := f.svc.ClearCartForOrder(ctx, order.ID, cart.ID); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	// Second run finds no cart and succeeds anyway.
	if err := f.svc.ClearCartForOrder(ctx, order.ID, cart.ID); err != nil {
		t.Fatalf("second clear: %v", err)
	}

	if err := f.svc.ClearCartForOrder(ctx, uuid.New(), cart.ID); err == nil {
		t.Fatal("expected unknown order to fail")
	}
}

func TestClearCartForOrderLeavesNewCartIntact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	// Post-checkout state: the order row exists and the originating cart is
	// already gone.
	original, err := f.svc.InitializeCart(ctx, userID)
	if err != nil {
		t.Fatalf("initialize cart: %v", err)
	}
	order := &models.Order{
		UserID:     userID,
		OrderDate:  original.CreatedAt,
		TotalPrice: decimal.RequireFromString("20.00"),
		Status:     "PENDING",
	}
	if err := f.db.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := f.svc.ClearCart(ctx, original.ID); err != nil {
		t.Fatalf("clear original cart: %v", err)
	}

	// The user starts shopping again before the reconciler gets to the row.
	fresh, err := f.svc.InitializeCart(ctx, userID)
	if err != nil {
		t.Fatalf("reinitialize cart: %v", err)
	}
	product := f.mustCreateProduct(t, "15.00", 10)
	if _, err := f.svc.AddItem(ctx, fresh.ID, product.ID, 1); err != nil {
		t.Fatalf("add item to fresh cart: %v", err)
	}

	if err := f.svc.ClearCartForOrder(ctx, order.ID, original.ID); err != nil {
		t.Fatalf("replayed clear: %v", err)
	}

	got, err := f.svc.GetCart(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("fresh cart should survive the replay: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected fresh cart to keep its line, got %d items", len(got.Items))
	}

	// A nil cart id means there is nothing left to clear.
	if err := f.svc.ClearCartForOrder(ctx, order.ID, uuid.Nil); err != nil {
		t.Fatalf("nil cart id should be a no-op: %v", err)
	}
}
