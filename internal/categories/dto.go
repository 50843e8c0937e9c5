package categories

import (
	"github.com/google/uuid"

	"github.com/omoshop/shop-backend/pkg/db/models"
)

// CategoryDTO is the outward projection of a category.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ToDTO converts the persistence model into the API projection.
func ToDTO(category *models.Category) CategoryDTO {
	return CategoryDTO{ID: category.ID, Name: category.Name}
}

// ToDTOs converts a slice of categories.
func ToDTOs(items []models.Category) []CategoryDTO {
	dtos := make([]CategoryDTO, 0, len(items))
	for i := range items {
		dtos = append(dtos, ToDTO(&items[i]))
	}
	return dtos
}
