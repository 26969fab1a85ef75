// Package store implements the durable secret backends.
//
// Every backend keeps historical secrets addressable by ID and exposes exactly one
// current secret per purpose. Backend failures are reported as domain.ErrSecretStore
// and never masked.
package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// SecretStore is the durable key/value facility holding versioned secrets.
type SecretStore interface {
	// GetOrNull returns the current secret for the purpose or (nil, nil) when none exists.
	GetOrNull(ctx context.Context, key keysDomain.Purpose) (*keysDomain.Secret, error)

	// GetByID returns any secret ever stored, current or historical, or (nil, nil).
	GetByID(ctx context.Context, id uuid.UUID) (*keysDomain.Secret, error)

	// Put stores a new secret and atomically makes it current for the purpose.
	Put(ctx context.Context, key keysDomain.Purpose, value, note string) (*keysDomain.Secret, error)

	// ListActive returns the non-retired secrets of the purpose, newest first.
	ListActive(ctx context.Context, key keysDomain.Purpose) ([]*keysDomain.Secret, error)

	// Retire marks a non-current secret as retired. Retiring an unknown, retired or
	// current secret is a no-op.
	Retire(ctx context.Context, id uuid.UUID) error
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", keysDomain.ErrSecretStore, op, err)
}

func newSecret(key keysDomain.Purpose, value, note string) *keysDomain.Secret {
	return &keysDomain.Secret{
		ID:        uuid.Must(uuid.NewV7()),
		Key:       key,
		Value:     value,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
}

// sealer protects secret values at rest in the service database with a KMS keeper.
type sealer struct {
	keeper cryptoDomain.KMSKeeper
}

func (s sealer) seal(ctx context.Context, value string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, keysDomain.ErrMalformedSecret
	}
	defer cryptoDomain.Zero(raw)

	sealed, err := s.keeper.Encrypt(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to seal secret: %w", err)
	}
	return sealed, nil
}

func (s sealer) unseal(ctx context.Context, sealed []byte) (string, error) {
	raw, err := s.keeper.Decrypt(ctx, sealed)
	if err != nil {
		return "", fmt.Errorf("failed to unseal secret: %w", err)
	}
	defer cryptoDomain.Zero(raw)

	return base64.StdEncoding.EncodeToString(raw), nil
}
