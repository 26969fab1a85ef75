package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/fieldcrypt/internal/database"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// MySQLLeaseRepository keeps rotation leases in the rotation_leases table.
type MySQLLeaseRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// NewMySQLLeaseRepository creates a MySQLLeaseRepository.
func NewMySQLLeaseRepository(db *sql.DB) *MySQLLeaseRepository {
	return &MySQLLeaseRepository{db: db, txManager: database.NewTxManager(db)}
}

// Acquire inserts the lease or takes over an expired one, then reads back the owner.
// MySQL reports no affected rows when an upsert leaves the row unchanged, so ownership
// is decided by the stored holder.
func (m *MySQLLeaseRepository) Acquire(
	ctx context.Context,
	purpose keysDomain.Purpose,
	holder string,
	ttl time.Duration,
) (bool, error) {
	now := time.Now().UTC()
	acquired := false

	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, m.db)

		upsert := `INSERT INTO rotation_leases (purpose, holder, expires_at) VALUES (?, ?, ?)
				   ON DUPLICATE KEY UPDATE
				   holder = IF(expires_at <= ? OR holder = VALUES(holder), VALUES(holder), holder),
				   expires_at = IF(holder = VALUES(holder), VALUES(expires_at), expires_at)`

		if _, err := querier.ExecContext(ctx, upsert, purpose, holder, now.Add(ttl), now); err != nil {
			return err
		}

		var owner string
		query := `SELECT holder FROM rotation_leases WHERE purpose = ?`
		if err := querier.QueryRowContext(ctx, query, purpose).Scan(&owner); err != nil {
			return err
		}

		acquired = owner == holder
		return nil
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Release deletes the lease when holder still owns it.
func (m *MySQLLeaseRepository) Release(ctx context.Context, purpose keysDomain.Purpose, holder string) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM rotation_leases WHERE purpose = ? AND holder = ?`

	_, err := querier.ExecContext(ctx, query, purpose, holder)
	return err
}
