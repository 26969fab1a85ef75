package dto

import (
	"time"

	"github.com/google/uuid"

	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	"github.com/allisson/fieldcrypt/internal/invitation/usecase"
)

// InvitationResponse is the decrypted view of an invitation.
type InvitationResponse struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	InvitedBy  string     `json:"invited_by"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateInvitationResponse carries the token, only returned once.
type CreateInvitationResponse struct {
	InvitationResponse
	Token string `json:"token"`
}

// ListInvitationsResponse is a page of pending invitations.
type ListInvitationsResponse struct {
	Data []InvitationResponse `json:"data"`
}

// MapInvitationToResponse converts a domain invitation to its API representation.
func MapInvitationToResponse(inv *invitationDomain.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:         inv.ID.String(),
		TenantID:   inv.TenantID.String(),
		Email:      inv.Sensitive.Email,
		Role:       inv.Sensitive.Role,
		InvitedBy:  inv.Sensitive.InvitedBy,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		CreatedAt:  inv.CreatedAt,
	}
}

// MapInvitationsToListResponse converts a page of invitations.
func MapInvitationsToListResponse(invitations []*invitationDomain.Invitation) ListInvitationsResponse {
	data := make([]InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		data = append(data, MapInvitationToResponse(inv))
	}
	return ListInvitationsResponse{Data: data}
}

// ToCreateInvitationInput converts a validated request to the use case input.
func ToCreateInvitationInput(req CreateInvitationRequest) (usecase.CreateInvitationInput, error) {
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return usecase.CreateInvitationInput{}, err
	}
	return usecase.CreateInvitationInput{
		TenantID:  tenantID,
		Email:     req.Email,
		Role:      req.Role,
		InvitedBy: req.InvitedBy,
	}, nil
}
