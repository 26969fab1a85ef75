// Package usecase implements the key rotation orchestrator.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// Collection is a store of sensitive documents that can be moved to current secrets.
type Collection interface {
	// Name identifies the collection in logs and metrics.
	Name() string

	// ListStale returns up to limit ids greater than afterID, in id order, of documents
	// bound to a secret of purpose other than currentID.
	ListStale(
		ctx context.Context,
		purpose keysDomain.Purpose,
		currentID, afterID uuid.UUID,
		limit int,
	) ([]uuid.UUID, error)

	// Reseal re-encrypts and re-hashes one document with the current secrets.
	Reseal(ctx context.Context, id uuid.UUID) error

	// CountReferences counts documents still needing secretID.
	CountReferences(ctx context.Context, purpose keysDomain.Purpose, secretID uuid.UUID) (int64, error)
}

// Lease is a cross-process guard so that one rotation per purpose runs cluster wide.
type Lease interface {
	// Acquire takes the lease of purpose for holder. It returns false when another
	// holder owns an unexpired lease.
	Acquire(ctx context.Context, purpose keysDomain.Purpose, holder string, ttl time.Duration) (bool, error)

	// Release drops the lease if holder still owns it.
	Release(ctx context.Context, purpose keysDomain.Purpose, holder string) error
}

// RotationUseCase rotates secrets and migrates stored documents onto them.
type RotationUseCase interface {
	// Trigger starts a background rotation of purpose and returns immediately. When a
	// rotation of purpose is already running its status is returned instead.
	Trigger(ctx context.Context, purpose keysDomain.Purpose) (*rotationDomain.Status, error)

	// TriggerAll calls Trigger for every registered purpose.
	TriggerAll(ctx context.Context) ([]*rotationDomain.Status, error)

	// Run rotates purpose and blocks until the migration finished.
	Run(ctx context.Context, purpose keysDomain.Purpose) (*rotationDomain.Status, error)

	// Status returns a snapshot of every purpose.
	Status(ctx context.Context) rotationDomain.Summary

	// Wait blocks until every background rotation returned.
	Wait()
}
