package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omoshop/shop-backend/pkg/db/models"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
)

type repository interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ExistsByNameAndBrand(ctx context.Context, name, brand string) (bool, error)
	List(ctx context.Context, filters ListFilters) ([]models.Product, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryResolver interface {
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	AddCategory(ctx context.Context, name string) (*models.Category, error)
}

// Service exposes catalog product management.
type Service interface {
	AddProduct(ctx context.Context, input AddProductInput) (ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (ProductDTO, error)
	ListProducts(ctx context.Context, brand, name, category string) ([]ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo       repository
	categories categoryResolver
}

// NewService builds a products service with the required dependencies.
func NewService(repo repository, categories categoryResolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category resolver required")
	}
	return &service{repo: repo, categories: categories}, nil
}

func (s *service) AddProduct(ctx context.Context, input AddProductInput) (ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	brand := strings.TrimSpace(input.Brand)
	if name == "" || brand == "" {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product name and brand are required")
	}
	if input.Price.IsNegative() {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Inventory < 0 {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "inventory must not be negative")
	}

	exists, err := s.repo.ExistsByNameAndBrand(ctx, name, brand)
	if err != nil {
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking product uniqueness")
	}
	if exists {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("%s %s already exists, you may update this product instead", brand, name))
	}

	category, err := s.resolveCategory(ctx, input.Category)
	if err != nil {
		return ProductDTO{}, err
	}

	product := &models.Product{
		Name:        name,
		Brand:       brand,
		Description: input.Description,
		Price:       input.Price,
		Inventory:   input.Inventory,
		CategoryID:  category.ID,
		Category:    category,
	}
	if _, err := s.repo.Create(ctx, product); err != nil {
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return ToDTO(product), nil
}

// resolveCategory finds the named category, creating it when absent.
func (s *service) resolveCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	category, err := s.categories.GetCategoryByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
		return s.categories.AddCategory(ctx, name)
	}
	return nil, err
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return ToDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context, brand, name, category string) ([]ProductDTO, error) {
	filters := ListFilters{
		Brand: strings.TrimSpace(brand),
		Name:  strings.TrimSpace(name),
	}
	if trimmed := strings.TrimSpace(category); trimmed != "" {
		resolved, err := s.categories.GetCategoryByName(ctx, trimmed)
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
				return []ProductDTO{}, nil
			}
			return nil, err
		}
		filters.CategoryID = resolved.ID
	}

	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, ToDTO(&rows[i]))
	}
	return dtos, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (ProductDTO, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Brand != nil {
		updates["brand"] = strings.TrimSpace(*input.Brand)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		updates["price"] = *input.Price
	}
	if input.Inventory != nil {
		if *input.Inventory < 0 {
			return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "inventory must not be negative")
		}
		updates["inventory"] = *input.Inventory
	}
	if input.Category != nil {
		category, err := s.resolveCategory(ctx, *input.Category)
		if err != nil {
			return ProductDTO{}, err
		}
		updates["category_id"] = category.ID
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
		}
	}
	return s.GetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	return nil
}
