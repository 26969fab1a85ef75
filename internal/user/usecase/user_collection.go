package usecase

import (
	"context"

	"github.com/google/uuid"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	userDomain "github.com/allisson/fieldcrypt/internal/user/domain"
)

// UserCollection exposes the users table to key rotation.
type UserCollection struct {
	repo      UserRepository
	txManager database.TxManager
	crypto    userCrypto
}

// NewUserCollection creates a UserCollection.
func NewUserCollection(
	repo UserRepository,
	txManager database.TxManager,
	encryption cryptoService.EncryptionService,
	hash cryptoService.HashService,
) *UserCollection {
	return &UserCollection{
		repo:      repo,
		txManager: txManager,
		crypto:    userCrypto{encryption: encryption, hash: hash},
	}
}

// Name identifies the collection in logs and rotation metrics.
func (c *UserCollection) Name() string {
	return "users"
}

// ListStale pages the users not yet on the current secret of purpose.
func (c *UserCollection) ListStale(
	ctx context.Context,
	purpose keysDomain.Purpose,
	currentID, afterID uuid.UUID,
	limit int,
) ([]uuid.UUID, error) {
	return c.repo.ListStale(ctx, purpose, currentID, afterID, limit)
}

// CountReferences counts users still bound to secretID.
func (c *UserCollection) CountReferences(
	ctx context.Context,
	purpose keysDomain.Purpose,
	secretID uuid.UUID,
) (int64, error) {
	return c.repo.CountReferences(ctx, purpose, secretID)
}

// Reseal decrypts a user with the secret it names and writes it back encrypted and
// hashed with the current secrets. The ciphertext and hash change together in one
// update; if the row changed meanwhile the concurrent writer already used current
// secrets and the user is left as is.
func (c *UserCollection) Reseal(ctx context.Context, id uuid.UUID) error {
	return c.txManager.WithTx(ctx, func(ctx context.Context) error {
		stored, err := c.repo.GetByID(ctx, id)
		if apperrors.Is(err, userDomain.ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		user, err := c.crypto.open(ctx, stored)
		if err != nil {
			return err
		}

		resealed, err := c.crypto.seal(ctx, user)
		if err != nil {
			return err
		}

		_, err = c.repo.Update(ctx, resealed, stored.Sensitive.Ciphertext)
		return err
	})
}
