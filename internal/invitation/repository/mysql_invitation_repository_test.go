package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

func TestMySQLInvitationRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLInvitationRepository(db)
	inv := newEncryptedInvitation()
	accepted := inv.CreatedAt.Add(time.Minute)
	inv.AcceptedAt = &accepted

	mock.ExpectQuery("SELECT (.+) FROM invitations WHERE id = \\?").
		WithArgs(inv.ID[:]).
		WillReturnRows(sqlmock.NewRows(invitationRowColumns).AddRow(
			inv.ID[:], inv.TenantID[:], inv.Sensitive.Ciphertext, inv.Sensitive.SecretID[:],
			inv.EmailHash.Data, inv.EmailHash.SecretID[:], inv.TokenSecretID[:],
			inv.ExpiresAt, accepted, inv.CreatedAt,
		))

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv, got)
}

func TestMySQLInvitationRepository_FindPendingByEmailHashes(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLInvitationRepository(db)
	tenantID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	secretID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery("WHERE tenant_id = \\? AND accepted_at IS NULL AND expires_at > \\? " +
		"AND \\(email_hash, email_hash_secret_id\\) IN \\(\\(\\?, \\?\\)\\)").
		WithArgs(tenantID[:], now, "aa", secretID[:]).
		WillReturnRows(sqlmock.NewRows(invitationRowColumns))

	_, err := repo.FindPendingByEmailHashes(
		ctx, tenantID, []cryptoDomain.SearchableHash{{Data: "aa", SecretID: secretID}}, now,
	)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLInvitationRepository_CountReferences(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLInvitationRepository(db)
	secretID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	mock.ExpectQuery("WHERE token_secret_id = \\? AND accepted_at IS NULL AND expires_at > \\?").
		WithArgs(secretID[:], now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	count, err := repo.CountReferences(ctx, keysDomain.PurposeSigning, secretID, now)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMySQLInvitationRepository_Update(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMySQLInvitationRepository(db)
	inv := newEncryptedInvitation()

	mock.ExpectExec("UPDATE invitations SET (.+) WHERE id = \\? AND sensitive_ciphertext = \\?").
		WithArgs(
			inv.Sensitive.Ciphertext, inv.Sensitive.SecretID[:], inv.EmailHash.Data,
			inv.EmailHash.SecretID[:], inv.ID[:], "b2xk",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Update(ctx, inv, "b2xk")
	require.NoError(t, err)
	assert.True(t, ok)
}
