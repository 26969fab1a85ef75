package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// InvitationCollection exposes the invitations table to key rotation. Issued tokens
// cannot be re-signed, so a signing rotation only waits for pending tokens to expire
// or be accepted before the previous signing secret can be retired.
type InvitationCollection struct {
	repo      InvitationRepository
	txManager database.TxManager
	crypto    invitationCrypto
}

// NewInvitationCollection creates an InvitationCollection.
func NewInvitationCollection(
	repo InvitationRepository,
	txManager database.TxManager,
	encryption cryptoService.EncryptionService,
	hash cryptoService.HashService,
) *InvitationCollection {
	return &InvitationCollection{
		repo:      repo,
		txManager: txManager,
		crypto:    invitationCrypto{encryption: encryption, hash: hash},
	}
}

// Name identifies the collection in logs and rotation metrics.
func (c *InvitationCollection) Name() string {
	return "invitations"
}

// ListStale pages the invitations not yet on the current secret of purpose.
func (c *InvitationCollection) ListStale(
	ctx context.Context,
	purpose keysDomain.Purpose,
	currentID, afterID uuid.UUID,
	limit int,
) ([]uuid.UUID, error) {
	return c.repo.ListStale(ctx, purpose, currentID, afterID, limit)
}

// CountReferences counts invitations still needing secretID.
func (c *InvitationCollection) CountReferences(
	ctx context.Context,
	purpose keysDomain.Purpose,
	secretID uuid.UUID,
) (int64, error) {
	return c.repo.CountReferences(ctx, purpose, secretID, time.Now().UTC())
}

// Reseal re-encrypts and re-hashes one invitation with the current secrets.
func (c *InvitationCollection) Reseal(ctx context.Context, id uuid.UUID) error {
	return c.txManager.WithTx(ctx, func(ctx context.Context) error {
		stored, err := c.repo.GetByID(ctx, id)
		if apperrors.Is(err, invitationDomain.ErrInvitationNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		inv, err := c.crypto.open(ctx, stored)
		if err != nil {
			return err
		}

		resealed, err := c.crypto.seal(ctx, inv)
		if err != nil {
			return err
		}

		_, err = c.repo.Update(ctx, resealed, stored.Sensitive.Ciphertext)
		return err
	})
}
