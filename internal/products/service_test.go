package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/omoshop/shop-backend/pkg/db/models"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
)

type stubRepo struct {
	products map[uuid.UUID]*models.Product
	exists   bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{products: make(map[uuid.UUID]*models.Product)}
}

func (s *stubRepo) Create(_ context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (s *stubRepo) ExistsByNameAndBrand(context.Context, string, string) (bool, error) {
	return s.exists, nil
}

func (s *stubRepo) List(context.Context, ListFilters) ([]models.Product, error) {
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	product := s.products[id]
	if name, ok := updates["name"].(string); ok {
		product.Name = name
	}
	if price, ok := updates["price"].(decimal.Decimal); ok {
		product.Price = price
	}
	if inventory, ok := updates["inventory"].(int); ok {
		product.Inventory = inventory
	}
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.products, id)
	return nil
}

type stubCategories struct {
	byName  map[string]*models.Category
	created []string
}

func newStubCategories() *stubCategories {
	return &stubCategories{byName: make(map[string]*models.Category)}
}

func (s *stubCategories) GetCategoryByName(_ context.Context, name string) (*models.Category, error) {
	if category, ok := s.byName[name]; ok {
		return category, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Category not found")
}

func (s *stubCategories) AddCategory(_ context.Context, name string) (*models.Category, error) {
	category := &models.Category{ID: uuid.New(), Name: name}
	s.byName[name] = category
	s.created = append(s.created, name)
	return category, nil
}

func TestAddProductCreatesMissingCategory(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	categories := newStubCategories()
	svc, err := NewService(repo, categories)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	dto, err := svc.AddProduct(context.Background(), AddProductInput{
		Name:      "Laptop",
		Brand:     "Acme",
		Price:     decimal.RequireFromString("1500.00"),
		Inventory: 10,
		Category:  "Electronics",
	})
	if err != nil {
		t.Fatalf("add product: %v", err)
	}

	if len(categories.created) != 1 || categories.created[0] != "Electronics" {
		t.Fatalf("expected Electronics to be created, got %v", categories.created)
	}
	if dto.Category != "Electronics" {
		t.Fatalf("expected category on dto, got %q", dto.Category)
	}
	if !dto.Price.Equal(decimal.RequireFromString("1500.00")) {
		t.Fatalf("unexpected price %s", dto.Price)
	}
}

func TestAddProductRejectsDuplicateListing(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	repo.exists = true
	svc, err := NewService(repo, newStubCategories())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.AddProduct(context.Background(), AddProductInput{
		Name:     "Laptop",
		Brand:    "Acme",
		Price:    decimal.RequireFromString("1500.00"),
		Category: "Electronics",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetProductNotFound(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newStubRepo(), newStubCategories())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.GetProduct(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if appErr.Message() != "Product not found" {
		t.Fatalf("unexpected message %q", appErr.Message())
	}
}

func TestListProductsUnknownCategoryReturnsEmpty(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc, err := NewService(repo, newStubCategories())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	dtos, err := svc.ListProducts(context.Background(), "", "", "Nope")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dtos) != 0 {
		t.Fatalf("expected empty list, got %d", len(dtos))
	}
}
