package address

import (
	"github.com/google/uuid"

	"github.com/omoshop/shop-backend/pkg/db/models"
)

// AddressDTO is the outward projection of a shipping address.
type AddressDTO struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"userId"`
	Street  string    `json:"street"`
	City    string    `json:"city"`
	State   string    `json:"state"`
	Country string    `json:"country"`
	ZipCode string    `json:"zip_code"`
}

// ToDTO converts the persistence model into the API projection.
func ToDTO(addr *models.Address) AddressDTO {
	return AddressDTO{
		ID:      addr.ID,
		UserID:  addr.UserID,
		Street:  addr.Street,
		City:    addr.City,
		State:   addr.State,
		Country: addr.Country,
		ZipCode: addr.ZipCode,
	}
}

// ToDTOs converts a slice of addresses.
func ToDTOs(items []models.Address) []AddressDTO {
	dtos := make([]AddressDTO, 0, len(items))
	for i := range items {
		dtos = append(dtos, ToDTO(&items[i]))
	}
	return dtos
}
