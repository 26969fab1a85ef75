package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	"github.com/allisson/fieldcrypt/internal/database"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// PostgreSQLStore is the local backend on PostgreSQL. Rows live in the secret_keys table
// with the key material sealed by a KMS keeper.
type PostgreSQLStore struct {
	db        *sql.DB
	txManager database.TxManager
	sealer    sealer
}

// NewPostgreSQLStore creates a PostgreSQLStore.
func NewPostgreSQLStore(
	db *sql.DB,
	txManager database.TxManager,
	keeper cryptoDomain.KMSKeeper,
) *PostgreSQLStore {
	return &PostgreSQLStore{db: db, txManager: txManager, sealer: sealer{keeper: keeper}}
}

const postgresSecretColumns = `id, purpose, sealed_value, note, created_at, retired_at`

// GetOrNull returns the current secret for the purpose.
func (p *PostgreSQLStore) GetOrNull(ctx context.Context, key keysDomain.Purpose) (*keysDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresSecretColumns + ` FROM secret_keys
			  WHERE purpose = $1 AND is_current = TRUE LIMIT 1`

	secret, err := p.scanSecret(ctx, querier.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, storeError("failed to get current secret", err)
	}
	return secret, nil
}

// GetByID returns the secret with the given id.
func (p *PostgreSQLStore) GetByID(ctx context.Context, id uuid.UUID) (*keysDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresSecretColumns + ` FROM secret_keys WHERE id = $1`

	secret, err := p.scanSecret(ctx, querier.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, storeError("failed to get secret by id", err)
	}
	return secret, nil
}

// Put demotes the current secret and inserts the new one in a single transaction.
func (p *PostgreSQLStore) Put(
	ctx context.Context,
	key keysDomain.Purpose,
	value, note string,
) (*keysDomain.Secret, error) {
	secret := newSecret(key, value, note)

	sealed, err := p.sealer.seal(ctx, value)
	if err != nil {
		return nil, storeError("failed to put secret", err)
	}

	err = p.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, p.db)

		demote := `UPDATE secret_keys SET is_current = FALSE WHERE purpose = $1 AND is_current = TRUE`
		if _, err := querier.ExecContext(ctx, demote, key); err != nil {
			return err
		}

		insert := `INSERT INTO secret_keys (id, purpose, sealed_value, note, is_current, created_at)
				   VALUES ($1, $2, $3, $4, TRUE, $5)`
		_, err := querier.ExecContext(ctx, insert, secret.ID, secret.Key, sealed, secret.Note, secret.CreatedAt)
		return err
	})
	if err != nil {
		return nil, storeError("failed to put secret", err)
	}
	return secret, nil
}

// ListActive returns the non-retired secrets of the purpose, newest first.
func (p *PostgreSQLStore) ListActive(
	ctx context.Context,
	key keysDomain.Purpose,
) ([]*keysDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresSecretColumns + ` FROM secret_keys
			  WHERE purpose = $1 AND retired_at IS NULL
			  ORDER BY created_at DESC, id DESC`

	rows, err := querier.QueryContext(ctx, query, key)
	if err != nil {
		return nil, storeError("failed to list secrets", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	secrets := make([]*keysDomain.Secret, 0)
	for rows.Next() {
		secret, err := p.scanSecret(ctx, rows)
		if err != nil {
			return nil, storeError("failed to list secrets", err)
		}
		secrets = append(secrets, secret)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to list secrets", err)
	}
	return secrets, nil
}

// Retire marks a non-current secret as retired.
func (p *PostgreSQLStore) Retire(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE secret_keys SET retired_at = $1
			  WHERE id = $2 AND is_current = FALSE AND retired_at IS NULL`

	if _, err := querier.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return storeError("failed to retire secret", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSecret maps a row to a Secret. A missing row yields (nil, nil).
func (p *PostgreSQLStore) scanSecret(ctx context.Context, row rowScanner) (*keysDomain.Secret, error) {
	var secret keysDomain.Secret
	var sealed []byte
	var retiredAt sql.NullTime

	err := row.Scan(&secret.ID, &secret.Key, &sealed, &secret.Note, &secret.CreatedAt, &retiredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if secret.Value, err = p.sealer.unseal(ctx, sealed); err != nil {
		return nil, err
	}
	if retiredAt.Valid {
		secret.RetiredAt = &retiredAt.Time
	}
	return &secret, nil
}
