package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/omoshop/shop-backend/pkg/db/models"
)

// UserDTO is the outward projection of a user. The password hash never
// leaves the service layer.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// ToDTO converts the persistence model into the API projection.
func ToDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Roles:     user.Roles,
		CreatedAt: user.CreatedAt,
	}
}
