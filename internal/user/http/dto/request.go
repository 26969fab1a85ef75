// Package dto provides data transfer objects for the user HTTP endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/fieldcrypt/internal/validation"
)

// RegisterUserRequest is the body of POST /v1/users.
type RegisterUserRequest struct {
	TenantID  string   `json:"tenant_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Providers []string `json:"providers"`
}

// Validate checks the request shape. Field rules are enforced again by the use case.
func (r *RegisterUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TenantID, validation.Required, customValidation.UUIDString),
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Email, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Password, validation.Required),
	)
}

// LinkProviderRequest is the body of POST /v1/users/:id/providers.
type LinkProviderRequest struct {
	Provider string `json:"provider"`
}

// Validate checks if the link provider request is valid.
func (r *LinkProviderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Provider,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 64),
		),
	)
}
