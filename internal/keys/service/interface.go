// Package service exposes one SecretService per purpose on top of the secret store and
// the secret cache.
package service

import (
	"context"

	"github.com/google/uuid"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// SecretService resolves the secrets of a single purpose.
type SecretService interface {
	// Purpose returns the purpose served.
	Purpose() keysDomain.Purpose

	// CurrentSecret returns the secret new writes must use, creating the first one on
	// demand when allowed.
	CurrentSecret(ctx context.Context) (*keysDomain.Secret, error)

	// SecretByID returns the exact secret named by a stored value.
	SecretByID(ctx context.Context, id uuid.UUID) (*keysDomain.Secret, error)

	// Rotate creates a new secret, makes it current and refreshes the cache.
	Rotate(ctx context.Context) (*keysDomain.Secret, error)

	// LookupSecrets returns the current secret followed by the other non-retired ones.
	LookupSecrets(ctx context.Context) ([]*keysDomain.Secret, error)

	// Refresh reloads the current secret from the store, bypassing the cache, and drops
	// the lookup window.
	Refresh(ctx context.Context) error

	// Retire marks a non-current secret as retired. It returns ErrRetirementPending while
	// the secret that replaced it has been current for less than the retire grace.
	Retire(ctx context.Context, id uuid.UUID) error
}
