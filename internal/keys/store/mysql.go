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

// MySQLStore is the local backend on MySQL. Ids are stored as BINARY(16) and the
// sealed key material as BLOB.
type MySQLStore struct {
	db        *sql.DB
	txManager database.TxManager
	sealer    sealer
}

// NewMySQLStore creates a MySQLStore.
func NewMySQLStore(db *sql.DB, txManager database.TxManager, keeper cryptoDomain.KMSKeeper) *MySQLStore {
	return &MySQLStore{db: db, txManager: txManager, sealer: sealer{keeper: keeper}}
}

const mysqlSecretColumns = `id, purpose, sealed_value, note, created_at, retired_at`

// GetOrNull returns the current secret for the purpose.
func (m *MySQLStore) GetOrNull(ctx context.Context, key keysDomain.Purpose) (*keysDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlSecretColumns + ` FROM secret_keys
			  WHERE purpose = ? AND is_current = TRUE LIMIT 1`

	secret, err := m.scanSecret(ctx, querier.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, storeError("failed to get current secret", err)
	}
	return secret, nil
}

// GetByID returns the secret with the given id.
func (m *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*keysDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, storeError("failed to marshal secret id", err)
	}

	query := `SELECT ` + mysqlSecretColumns + ` FROM secret_keys WHERE id = ?`

	secret, err := m.scanSecret(ctx, querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		return nil, storeError("failed to get secret by id", err)
	}
	return secret, nil
}

// Put demotes the current secret and inserts the new one in a single transaction.
func (m *MySQLStore) Put(
	ctx context.Context,
	key keysDomain.Purpose,
	value, note string,
) (*keysDomain.Secret, error) {
	secret := newSecret(key, value, note)

	sealed, err := m.sealer.seal(ctx, value)
	if err != nil {
		return nil, storeError("failed to put secret", err)
	}

	idBytes, err := secret.ID.MarshalBinary()
	if err != nil {
		return nil, storeError("failed to marshal secret id", err)
	}

	err = m.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, m.db)

		demote := `UPDATE secret_keys SET is_current = FALSE WHERE purpose = ? AND is_current = TRUE`
		if _, err := querier.ExecContext(ctx, demote, key); err != nil {
			return err
		}

		insert := `INSERT INTO secret_keys (id, purpose, sealed_value, note, is_current, created_at)
				   VALUES (?, ?, ?, ?, TRUE, ?)`
		_, err := querier.ExecContext(ctx, insert, idBytes, secret.Key, sealed, secret.Note, secret.CreatedAt)
		return err
	})
	if err != nil {
		return nil, storeError("failed to put secret", err)
	}
	return secret, nil
}

// ListActive returns the non-retired secrets of the purpose, newest first.
func (m *MySQLStore) ListActive(ctx context.Context, key keysDomain.Purpose) ([]*keysDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlSecretColumns + ` FROM secret_keys
			  WHERE purpose = ? AND retired_at IS NULL
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
		secret, err := m.scanSecret(ctx, rows)
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
func (m *MySQLStore) Retire(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return storeError("failed to marshal secret id", err)
	}

	query := `UPDATE secret_keys SET retired_at = ?
			  WHERE id = ? AND is_current = FALSE AND retired_at IS NULL`

	if _, err := querier.ExecContext(ctx, query, time.Now().UTC(), idBytes); err != nil {
		return storeError("failed to retire secret", err)
	}
	return nil
}

func (m *MySQLStore) scanSecret(ctx context.Context, row rowScanner) (*keysDomain.Secret, error) {
	var secret keysDomain.Secret
	var idBytes, sealed []byte
	var retiredAt sql.NullTime

	err := row.Scan(&idBytes, &secret.Key, &sealed, &secret.Note, &secret.CreatedAt, &retiredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if secret.ID, err = uuid.FromBytes(idBytes); err != nil {
		return nil, err
	}
	if secret.Value, err = m.sealer.unseal(ctx, sealed); err != nil {
		return nil, err
	}
	if retiredAt.Valid {
		secret.RetiredAt = &retiredAt.Time
	}
	return &secret, nil
}
