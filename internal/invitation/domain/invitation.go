// Package domain defines tenant invitations. The invitee claims are sensitive and only
// stored encrypted; the invitation token is a JWT signed with the signing secret.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// Supported invitation roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// InvitationClaims groups the invitation fields that are never stored in plaintext.
type InvitationClaims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	InvitedBy string `json:"invited_by"`
}

// Invitation is the plaintext view of an invitation.
type Invitation struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Sensitive     InvitationClaims
	TokenSecretID uuid.UUID
	ExpiresAt     time.Time
	AcceptedAt    *time.Time
	CreatedAt     time.Time
}

// EncryptedInvitation is the stored form of an Invitation.
type EncryptedInvitation struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Sensitive     cryptoDomain.Encrypted[InvitationClaims]
	EmailHash     cryptoDomain.SearchableHash
	TokenSecretID uuid.UUID
	ExpiresAt     time.Time
	AcceptedAt    *time.Time
	CreatedAt     time.Time
}

// IsPending reports whether the invitation can still be accepted at now.
func (i *Invitation) IsPending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}

// ToEncrypted pairs the non-sensitive fields of i with its encrypted payload and hash.
func (i *Invitation) ToEncrypted(
	sensitive cryptoDomain.Encrypted[InvitationClaims],
	emailHash cryptoDomain.SearchableHash,
) *EncryptedInvitation {
	return &EncryptedInvitation{
		ID:            i.ID,
		TenantID:      i.TenantID,
		Sensitive:     sensitive,
		EmailHash:     emailHash,
		TokenSecretID: i.TokenSecretID,
		ExpiresAt:     i.ExpiresAt,
		AcceptedAt:    i.AcceptedAt,
		CreatedAt:     i.CreatedAt,
	}
}

// ToSensitive rebuilds the plaintext Invitation from e and its decrypted claims.
func (e *EncryptedInvitation) ToSensitive(claims InvitationClaims) *Invitation {
	return &Invitation{
		ID:            e.ID,
		TenantID:      e.TenantID,
		Sensitive:     claims,
		TokenSecretID: e.TokenSecretID,
		ExpiresAt:     e.ExpiresAt,
		AcceptedAt:    e.AcceptedAt,
		CreatedAt:     e.CreatedAt,
	}
}
