// Package usecase implements invitation issuance and acceptance.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// InvitationRepository persists encrypted invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *invitationDomain.EncryptedInvitation) error

	// GetByID returns ErrInvitationNotFound when the invitation does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*invitationDomain.EncryptedInvitation, error)

	// FindPendingByEmailHashes returns a pending invitation of the tenant matching any hash.
	FindPendingByEmailHashes(
		ctx context.Context,
		tenantID uuid.UUID,
		hashes []cryptoDomain.SearchableHash,
		now time.Time,
	) (*invitationDomain.EncryptedInvitation, error)

	// ListPending pages the pending invitations of a tenant, oldest first.
	ListPending(
		ctx context.Context,
		tenantID uuid.UUID,
		now time.Time,
		offset, limit int,
	) ([]*invitationDomain.EncryptedInvitation, error)

	// MarkAccepted sets accepted_at unless already set. It reports false when it was.
	MarkAccepted(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (bool, error)

	// Update rewrites the encrypted fields when the stored ciphertext equals expectedCiphertext.
	Update(ctx context.Context, inv *invitationDomain.EncryptedInvitation, expectedCiphertext string) (bool, error)

	// ListStale pages invitation ids after afterID holding a value from a non-current secret.
	ListStale(
		ctx context.Context,
		purpose keysDomain.Purpose,
		currentID, afterID uuid.UUID,
		limit int,
	) ([]uuid.UUID, error)

	// CountReferences counts invitations still needing secretID. For signing only
	// pending invitations count, since an expired or accepted token is never verified again.
	CountReferences(
		ctx context.Context,
		purpose keysDomain.Purpose,
		secretID uuid.UUID,
		now time.Time,
	) (int64, error)
}

// CreateInvitationInput contains the input data for issuing an invitation.
type CreateInvitationInput struct {
	TenantID  uuid.UUID
	Email     string
	Role      string
	InvitedBy string
}

// InvitationUseCase defines the invitation operations exposed to the HTTP layer.
type InvitationUseCase interface {
	// Create issues an invitation and returns it with its signed token. The token is
	// not stored and cannot be retrieved again.
	Create(ctx context.Context, input CreateInvitationInput) (*invitationDomain.Invitation, string, error)

	// Accept verifies a token and marks its invitation accepted.
	Accept(ctx context.Context, token string) (*invitationDomain.Invitation, error)

	// ListPending returns the decrypted pending invitations of a tenant.
	ListPending(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]*invitationDomain.Invitation, error)
}
