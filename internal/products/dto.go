package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omoshop/shop-backend/pkg/db/models"
)

// ListFilters describe the optional inputs supported by the product list.
type ListFilters struct {
	Brand      string
	Name       string
	CategoryID uuid.UUID
}

// AddProductInput carries the fields needed to create a listing. The category
// is referenced by name and created on the fly when it does not exist yet.
type AddProductInput struct {
	Name        string          `json:"name" validate:"required"`
	Brand       string          `json:"brand" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Inventory   int             `json:"inventory" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
}

// UpdateProductInput carries the mutable fields of a listing.
type UpdateProductInput struct {
	Name        *string          `json:"name,omitempty"`
	Brand       *string          `json:"brand,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Inventory   *int             `json:"inventory,omitempty" validate:"omitempty,gte=0"`
	Category    *string          `json:"category,omitempty"`
}

// ProductDTO is the outward projection of a product.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Inventory   int             `json:"inventory"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToDTO converts the persistence model into the API projection.
func ToDTO(product *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Brand:       product.Brand,
		Description: product.Description,
		Price:       product.Price,
		Inventory:   product.Inventory,
		CreatedAt:   product.CreatedAt,
	}
	if product.Category != nil {
		dto.Category = product.Category.Name
	}
	return dto
}
