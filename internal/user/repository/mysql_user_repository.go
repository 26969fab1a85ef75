package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	userDomain "github.com/allisson/fieldcrypt/internal/user/domain"
)

const mysqlUserColumns = `id, tenant_id, name, password_hash, sensitive_ciphertext, sensitive_secret_id,
	email_hash, email_hash_secret_id, created_at, updated_at`

// MySQLUserRepository handles user persistence for MySQL. UUIDs are stored as BINARY(16).
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQLUserRepository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

// Create inserts a new user.
func (r *MySQLUserRepository) Create(ctx context.Context, user *userDomain.EncryptedUser) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (` + mysqlUserColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID[:],
		user.TenantID[:],
		user.Name,
		user.PasswordHash,
		user.Sensitive.Ciphertext,
		user.Sensitive.SecretID[:],
		user.EmailHash.Data,
		user.EmailHash.SecretID[:],
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return userDomain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// Update rewrites the mutable and encrypted fields when the stored ciphertext is unchanged.
func (r *MySQLUserRepository) Update(
	ctx context.Context,
	user *userDomain.EncryptedUser,
	expectedCiphertext string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users
			  SET name = ?, password_hash = ?, sensitive_ciphertext = ?, sensitive_secret_id = ?,
			      email_hash = ?, email_hash_secret_id = ?, updated_at = ?
			  WHERE id = ? AND sensitive_ciphertext = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		user.Name,
		user.PasswordHash,
		user.Sensitive.Ciphertext,
		user.Sensitive.SecretID[:],
		user.EmailHash.Data,
		user.EmailHash.SecretID[:],
		user.UpdatedAt,
		user.ID[:],
		expectedCiphertext,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return false, userDomain.ErrUserAlreadyExists
		}
		return false, apperrors.Wrap(err, "failed to update user")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected == 1, nil
}

// GetByID retrieves a user by ID.
func (r *MySQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.EncryptedUser, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + mysqlUserColumns + ` FROM users WHERE id = ?`

	user, err := r.scanUser(querier.QueryRowContext(ctx, query, id[:]))
	if err != nil {
		if isNoRows(err) {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by id")
	}
	return user, nil
}

// FindByEmailHashes retrieves the tenant user whose email hash matches any of hashes.
func (r *MySQLUserRepository) FindByEmailHashes(
	ctx context.Context,
	tenantID uuid.UUID,
	hashes []cryptoDomain.SearchableHash,
) (*userDomain.EncryptedUser, error) {
	if len(hashes) == 0 {
		return nil, userDomain.ErrUserNotFound
	}

	pairs, pairArgs := mysqlHashPairs(hashes)
	args := append([]any{tenantID[:]}, pairArgs...)

	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + mysqlUserColumns + ` FROM users
			  WHERE tenant_id = ? AND (email_hash, email_hash_secret_id) IN (` + pairs + `)
			  ORDER BY id
			  LIMIT 1`

	user, err := r.scanUser(querier.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to find user by email hash")
	}
	return user, nil
}

// ListStale returns up to limit user ids after afterID still bound to a non-current secret.
func (r *MySQLUserRepository) ListStale(
	ctx context.Context,
	purpose keysDomain.Purpose,
	currentID, afterID uuid.UUID,
	limit int,
) ([]uuid.UUID, error) {
	column, ok := secretColumn(purpose)
	if !ok {
		return nil, nil
	}

	querier := database.GetTx(ctx, r.db)

	query := fmt.Sprintf(`SELECT id FROM users
			  WHERE %s <> ? AND id > ?
			  ORDER BY id
			  LIMIT ?`, column)

	rows, err := querier.QueryContext(ctx, query, currentID[:], afterID[:], limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale users")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []uuid.UUID
	for rows.Next() {
		var idBytes []byte
		if err := rows.Scan(&idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan user id")
		}
		id, err := uuid.FromBytes(idBytes)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse user id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate stale users")
	}
	return ids, nil
}

// CountReferences counts the users bound to secretID for purpose.
func (r *MySQLUserRepository) CountReferences(
	ctx context.Context,
	purpose keysDomain.Purpose,
	secretID uuid.UUID,
) (int64, error) {
	column, ok := secretColumn(purpose)
	if !ok {
		return 0, nil
	}

	querier := database.GetTx(ctx, r.db)

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM users WHERE %s = ?`, column)
	if err := querier.QueryRowContext(ctx, query, secretID[:]).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count user references")
	}
	return count, nil
}

func (r *MySQLUserRepository) scanUser(row rowScanner) (*userDomain.EncryptedUser, error) {
	var user userDomain.EncryptedUser
	var id, tenantID, sensitiveSecretID, emailHashSecretID []byte

	err := row.Scan(
		&id,
		&tenantID,
		&user.Name,
		&user.PasswordHash,
		&user.Sensitive.Ciphertext,
		&sensitiveSecretID,
		&user.EmailHash.Data,
		&emailHashSecretID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if user.ID, err = uuid.FromBytes(id); err != nil {
		return nil, err
	}
	if user.TenantID, err = uuid.FromBytes(tenantID); err != nil {
		return nil, err
	}
	if user.Sensitive.SecretID, err = uuid.FromBytes(sensitiveSecretID); err != nil {
		return nil, err
	}
	if user.EmailHash.SecretID, err = uuid.FromBytes(emailHashSecretID); err != nil {
		return nil, err
	}
	return &user, nil
}
