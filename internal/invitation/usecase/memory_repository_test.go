package usecase

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// memoryRepository is an in-memory InvitationRepository for use case tests.
type memoryRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]invitationDomain.EncryptedInvitation
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{rows: make(map[uuid.UUID]invitationDomain.EncryptedInvitation)}
}

type inlineTxManager struct{}

func (inlineTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func isPending(inv invitationDomain.EncryptedInvitation, now time.Time) bool {
	return inv.AcceptedAt == nil && now.Before(inv.ExpiresAt)
}

func (r *memoryRepository) sorted() []invitationDomain.EncryptedInvitation {
	out := make([]invitationDomain.EncryptedInvitation, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out
}

func (r *memoryRepository) Create(_ context.Context, inv *invitationDomain.EncryptedInvitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[inv.ID] = *inv
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*invitationDomain.EncryptedInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, invitationDomain.ErrInvitationNotFound
	}
	return &row, nil
}

func (r *memoryRepository) FindPendingByEmailHashes(
	_ context.Context,
	tenantID uuid.UUID,
	hashes []cryptoDomain.SearchableHash,
	now time.Time,
) (*invitationDomain.EncryptedInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.sorted() {
		if row.TenantID != tenantID || !isPending(row, now) {
			continue
		}
		for _, h := range hashes {
			if h.Equal(row.EmailHash) {
				return &row, nil
			}
		}
	}
	return nil, invitationDomain.ErrInvitationNotFound
}

func (r *memoryRepository) ListPending(
	_ context.Context,
	tenantID uuid.UUID,
	now time.Time,
	offset, limit int,
) ([]*invitationDomain.EncryptedInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*invitationDomain.EncryptedInvitation
	for _, row := range r.sorted() {
		if row.TenantID == tenantID && isPending(row, now) {
			out = append(out, &row)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) MarkAccepted(_ context.Context, id uuid.UUID, acceptedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.AcceptedAt != nil {
		return false, nil
	}
	row.AcceptedAt = &acceptedAt
	r.rows[id] = row
	return true, nil
}

func (r *memoryRepository) Update(
	_ context.Context,
	inv *invitationDomain.EncryptedInvitation,
	expectedCiphertext string,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[inv.ID]
	if !ok || row.Sensitive.Ciphertext != expectedCiphertext {
		return false, nil
	}
	row.Sensitive = inv.Sensitive
	row.EmailHash = inv.EmailHash
	r.rows[inv.ID] = row
	return true, nil
}

func (r *memoryRepository) secretIDOf(row invitationDomain.EncryptedInvitation, purpose keysDomain.Purpose) uuid.UUID {
	switch purpose {
	case keysDomain.PurposeEncryption:
		return row.Sensitive.SecretID
	case keysDomain.PurposeHashing:
		return row.EmailHash.SecretID
	default:
		return row.TokenSecretID
	}
}

func (r *memoryRepository) ListStale(
	_ context.Context,
	purpose keysDomain.Purpose,
	currentID, afterID uuid.UUID,
	limit int,
) ([]uuid.UUID, error) {
	if purpose == keysDomain.PurposeSigning {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, row := range r.sorted() {
		if bytes.Compare(row.ID[:], afterID[:]) <= 0 || r.secretIDOf(row, purpose) == currentID {
			continue
		}
		ids = append(ids, row.ID)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (r *memoryRepository) CountReferences(
	_ context.Context,
	purpose keysDomain.Purpose,
	secretID uuid.UUID,
	now time.Time,
) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, row := range r.rows {
		if r.secretIDOf(row, purpose) != secretID {
			continue
		}
		if purpose == keysDomain.PurposeSigning && !isPending(row, now) {
			continue
		}
		count++
	}
	return count, nil
}
