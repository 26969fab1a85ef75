// Package dto provides data transfer objects for the invitation HTTP endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/fieldcrypt/internal/validation"
)

// CreateInvitationRequest is the body of POST /v1/invitations.
type CreateInvitationRequest struct {
	TenantID  string `json:"tenant_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	InvitedBy string `json:"invited_by"`
}

// Validate checks if the create invitation request is valid.
func (r *CreateInvitationRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TenantID, validation.Required, customValidation.UUIDString),
		validation.Field(&r.Email, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Role, validation.Required),
		validation.Field(&r.InvitedBy, validation.Required, customValidation.NotBlank),
	)
}

// AcceptInvitationRequest is the body of POST /v1/invitations/accept.
type AcceptInvitationRequest struct {
	Token string `json:"token"`
}

// Validate checks if the accept invitation request is valid.
func (r *AcceptInvitationRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required, customValidation.NoWhitespace),
	)
}
