package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

const mysqlInvitationColumns = `id, tenant_id, sensitive_ciphertext, sensitive_secret_id, email_hash,
	email_hash_secret_id, token_secret_id, expires_at, accepted_at, created_at`

// MySQLInvitationRepository handles invitation persistence for MySQL. UUIDs are stored as BINARY(16).
type MySQLInvitationRepository struct {
	db *sql.DB
}

// NewMySQLInvitationRepository creates a new MySQLInvitationRepository.
func NewMySQLInvitationRepository(db *sql.DB) *MySQLInvitationRepository {
	return &MySQLInvitationRepository{db: db}
}

// Create inserts a new invitation.
func (r *MySQLInvitationRepository) Create(ctx context.Context, inv *invitationDomain.EncryptedInvitation) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO invitations (` + mysqlInvitationColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		inv.ID[:],
		inv.TenantID[:],
		inv.Sensitive.Ciphertext,
		inv.Sensitive.SecretID[:],
		inv.EmailHash.Data,
		inv.EmailHash.SecretID[:],
		inv.TokenSecretID[:],
		inv.ExpiresAt,
		inv.AcceptedAt,
		inv.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create invitation")
	}
	return nil
}

// GetByID retrieves an invitation by ID.
func (r *MySQLInvitationRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*invitationDomain.EncryptedInvitation, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + mysqlInvitationColumns + ` FROM invitations WHERE id = ?`

	inv, err := r.scanInvitation(querier.QueryRowContext(ctx, query, id[:]))
	if err != nil {
		if isNoRows(err) {
			return nil, invitationDomain.ErrInvitationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get invitation by id")
	}
	return inv, nil
}

// FindPendingByEmailHashes retrieves a pending invitation whose email hash matches any of hashes.
func (r *MySQLInvitationRepository) FindPendingByEmailHashes(
	ctx context.Context,
	tenantID uuid.UUID,
	hashes []cryptoDomain.SearchableHash,
	now time.Time,
) (*invitationDomain.EncryptedInvitation, error) {
	if len(hashes) == 0 {
		return nil, invitationDomain.ErrInvitationNotFound
	}

	pairs, pairArgs := mysqlHashPairs(hashes)
	args := append([]any{tenantID[:], now}, pairArgs...)

	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + mysqlInvitationColumns + ` FROM invitations
			  WHERE tenant_id = ? AND accepted_at IS NULL AND expires_at > ?
			    AND (email_hash, email_hash_secret_id) IN (` + pairs + `)
			  ORDER BY id
			  LIMIT 1`

	inv, err := r.scanInvitation(querier.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, invitationDomain.ErrInvitationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to find invitation by email hash")
	}
	return inv, nil
}

// ListPending retrieves the pending invitations of a tenant ordered by id.
func (r *MySQLInvitationRepository) ListPending(
	ctx context.Context,
	tenantID uuid.UUID,
	now time.Time,
	offset, limit int,
) ([]*invitationDomain.EncryptedInvitation, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + mysqlInvitationColumns + ` FROM invitations
			  WHERE tenant_id = ? AND accepted_at IS NULL AND expires_at > ?
			  ORDER BY id
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, tenantID[:], now, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pending invitations")
	}
	defer func() {
		_ = rows.Close()
	}()

	invitations := make([]*invitationDomain.EncryptedInvitation, 0)
	for rows.Next() {
		inv, err := r.scanInvitation(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan invitation")
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate invitations")
	}
	return invitations, nil
}

// MarkAccepted sets accepted_at on a not yet accepted invitation.
func (r *MySQLInvitationRepository) MarkAccepted(
	ctx context.Context,
	id uuid.UUID,
	acceptedAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE invitations SET accepted_at = ? WHERE id = ? AND accepted_at IS NULL`

	result, err := querier.ExecContext(ctx, query, acceptedAt, id[:])
	if err != nil {
		return false, apperrors.Wrap(err, "failed to accept invitation")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected == 1, nil
}

// Update rewrites the encrypted fields when the stored ciphertext is unchanged.
func (r *MySQLInvitationRepository) Update(
	ctx context.Context,
	inv *invitationDomain.EncryptedInvitation,
	expectedCiphertext string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE invitations
			  SET sensitive_ciphertext = ?, sensitive_secret_id = ?, email_hash = ?, email_hash_secret_id = ?
			  WHERE id = ? AND sensitive_ciphertext = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		inv.Sensitive.Ciphertext,
		inv.Sensitive.SecretID[:],
		inv.EmailHash.Data,
		inv.EmailHash.SecretID[:],
		inv.ID[:],
		expectedCiphertext,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update invitation")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected == 1, nil
}

// ListStale returns up to limit invitation ids after afterID bound to a non-current secret.
func (r *MySQLInvitationRepository) ListStale(
	ctx context.Context,
	purpose keysDomain.Purpose,
	currentID, afterID uuid.UUID,
	limit int,
) ([]uuid.UUID, error) {
	column, ok := secretColumn(purpose)
	if !ok || !resealable(purpose) {
		return nil, nil
	}

	querier := database.GetTx(ctx, r.db)

	query := fmt.Sprintf(`SELECT id FROM invitations
			  WHERE %s <> ? AND id > ?
			  ORDER BY id
			  LIMIT ?`, column)

	rows, err := querier.QueryContext(ctx, query, currentID[:], afterID[:], limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale invitations")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []uuid.UUID
	for rows.Next() {
		var idBytes []byte
		if err := rows.Scan(&idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan invitation id")
		}
		id, err := uuid.FromBytes(idBytes)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse invitation id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate stale invitations")
	}
	return ids, nil
}

// CountReferences counts invitations depending on secretID. Signing references only
// count while the invitation is pending.
func (r *MySQLInvitationRepository) CountReferences(
	ctx context.Context,
	purpose keysDomain.Purpose,
	secretID uuid.UUID,
	now time.Time,
) (int64, error) {
	column, ok := secretColumn(purpose)
	if !ok {
		return 0, nil
	}

	querier := database.GetTx(ctx, r.db)

	var (
		count int64
		err   error
	)
	if resealable(purpose) {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM invitations WHERE %s = ?`, column)
		err = querier.QueryRowContext(ctx, query, secretID[:]).Scan(&count)
	} else {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM invitations
				  WHERE %s = ? AND accepted_at IS NULL AND expires_at > ?`, column)
		err = querier.QueryRowContext(ctx, query, secretID[:], now).Scan(&count)
	}
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count invitation references")
	}
	return count, nil
}

func (r *MySQLInvitationRepository) scanInvitation(
	row rowScanner,
) (*invitationDomain.EncryptedInvitation, error) {
	var inv invitationDomain.EncryptedInvitation
	var id, tenantID, sensitiveSecretID, emailHashSecretID, tokenSecretID []byte
	var acceptedAt sql.NullTime

	err := row.Scan(
		&id,
		&tenantID,
		&inv.Sensitive.Ciphertext,
		&sensitiveSecretID,
		&inv.EmailHash.Data,
		&emailHashSecretID,
		&tokenSecretID,
		&inv.ExpiresAt,
		&acceptedAt,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, field := range []struct {
		dst *uuid.UUID
		src []byte
	}{
		{&inv.ID, id},
		{&inv.TenantID, tenantID},
		{&inv.Sensitive.SecretID, sensitiveSecretID},
		{&inv.EmailHash.SecretID, emailHashSecretID},
		{&inv.TokenSecretID, tokenSecretID},
	} {
		if *field.dst, err = uuid.FromBytes(field.src); err != nil {
			return nil, err
		}
	}

	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Time
	}
	return &inv, nil
}
