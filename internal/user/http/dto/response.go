package dto

import (
	"time"

	userDomain "github.com/allisson/fieldcrypt/internal/user/domain"
)

// UserResponse is the decrypted view of a user. The password hash is never exposed.
type UserResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Providers []string  `json:"providers"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapUserToResponse converts a domain user to its API representation.
func MapUserToResponse(user *userDomain.User) UserResponse {
	providers := user.Sensitive.Providers
	if providers == nil {
		providers = []string{}
	}

	return UserResponse{
		ID:        user.ID.String(),
		TenantID:  user.TenantID.String(),
		Name:      user.Name,
		Email:     user.Sensitive.Email,
		Providers: providers,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
