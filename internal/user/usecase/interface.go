// Package usecase implements the user business logic on top of encrypted storage.
package usecase

import (
	"context"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	userDomain "github.com/allisson/fieldcrypt/internal/user/domain"
)

// UserRepository persists encrypted users.
type UserRepository interface {
	// Create inserts a user. A duplicate email hash yields ErrUserAlreadyExists.
	Create(ctx context.Context, user *userDomain.EncryptedUser) error

	// Update rewrites the encrypted fields of a user whose stored ciphertext still equals
	// expectedCiphertext. It reports false when the row changed in between.
	Update(ctx context.Context, user *userDomain.EncryptedUser, expectedCiphertext string) (bool, error)

	// GetByID returns ErrUserNotFound when the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.EncryptedUser, error)

	// FindByEmailHashes returns the first user of the tenant matching any of the hashes.
	FindByEmailHashes(
		ctx context.Context,
		tenantID uuid.UUID,
		hashes []cryptoDomain.SearchableHash,
	) (*userDomain.EncryptedUser, error)

	// ListStale pages, by ascending id after afterID, the users holding a value produced
	// by a secret of purpose other than currentID.
	ListStale(
		ctx context.Context,
		purpose keysDomain.Purpose,
		currentID, afterID uuid.UUID,
		limit int,
	) ([]uuid.UUID, error)

	// CountReferences counts users holding a value produced by secretID.
	CountReferences(ctx context.Context, purpose keysDomain.Purpose, secretID uuid.UUID) (int64, error)
}

// UserUseCase defines the user operations exposed to the HTTP layer.
type UserUseCase interface {
	Register(ctx context.Context, input RegisterUserInput) (*userDomain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*userDomain.User, error)
	LinkProvider(ctx context.Context, id uuid.UUID, provider string) (*userDomain.User, error)
}
