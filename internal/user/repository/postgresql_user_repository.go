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

const postgresUserColumns = `id, tenant_id, name, password_hash, sensitive_ciphertext, sensitive_secret_id,
	email_hash, email_hash_secret_id, created_at, updated_at`

// PostgreSQLUserRepository handles user persistence for PostgreSQL.
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQLUserRepository.
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{db: db}
}

// Create inserts a new user.
func (r *PostgreSQLUserRepository) Create(ctx context.Context, user *userDomain.EncryptedUser) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (` + postgresUserColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID,
		user.TenantID,
		user.Name,
		user.PasswordHash,
		user.Sensitive.Ciphertext,
		user.Sensitive.SecretID,
		user.EmailHash.Data,
		user.EmailHash.SecretID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return userDomain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// Update rewrites the mutable and encrypted fields when the stored ciphertext is unchanged.
func (r *PostgreSQLUserRepository) Update(
	ctx context.Context,
	user *userDomain.EncryptedUser,
	expectedCiphertext string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users
			  SET name = $1, password_hash = $2, sensitive_ciphertext = $3, sensitive_secret_id = $4,
			      email_hash = $5, email_hash_secret_id = $6, updated_at = $7
			  WHERE id = $8 AND sensitive_ciphertext = $9`

	result, err := querier.ExecContext(
		ctx,
		query,
		user.Name,
		user.PasswordHash,
		user.Sensitive.Ciphertext,
		user.Sensitive.SecretID,
		user.EmailHash.Data,
		user.EmailHash.SecretID,
		user.UpdatedAt,
		user.ID,
		expectedCiphertext,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
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
func (r *PostgreSQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.EncryptedUser, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresUserColumns + ` FROM users WHERE id = $1`

	user, err := r.scanUser(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by id")
	}
	return user, nil
}

// FindByEmailHashes retrieves the tenant user whose email hash matches any of hashes.
func (r *PostgreSQLUserRepository) FindByEmailHashes(
	ctx context.Context,
	tenantID uuid.UUID,
	hashes []cryptoDomain.SearchableHash,
) (*userDomain.EncryptedUser, error) {
	if len(hashes) == 0 {
		return nil, userDomain.ErrUserNotFound
	}

	pairs, pairArgs := postgresHashPairs(hashes, 2)
	args := append([]any{tenantID}, pairArgs...)

	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresUserColumns + ` FROM users
			  WHERE tenant_id = $1 AND (email_hash, email_hash_secret_id) IN (` + pairs + `)
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
func (r *PostgreSQLUserRepository) ListStale(
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
			  WHERE %s <> $1 AND id > $2
			  ORDER BY id
			  LIMIT $3`, column)

	rows, err := querier.QueryContext(ctx, query, currentID, afterID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale users")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan user id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate stale users")
	}
	return ids, nil
}

// CountReferences counts the users bound to secretID for purpose.
func (r *PostgreSQLUserRepository) CountReferences(
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
	query := fmt.Sprintf(`SELECT COUNT(*) FROM users WHERE %s = $1`, column)
	if err := querier.QueryRowContext(ctx, query, secretID).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count user references")
	}
	return count, nil
}

func (r *PostgreSQLUserRepository) scanUser(row rowScanner) (*userDomain.EncryptedUser, error) {
	var user userDomain.EncryptedUser

	err := row.Scan(
		&user.ID,
		&user.TenantID,
		&user.Name,
		&user.PasswordHash,
		&user.Sensitive.Ciphertext,
		&user.Sensitive.SecretID,
		&user.EmailHash.Data,
		&user.EmailHash.SecretID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
