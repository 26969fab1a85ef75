// Package repository implements the rotation lease on the service database.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/fieldcrypt/internal/database"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// PostgreSQLLeaseRepository keeps rotation leases in the rotation_leases table.
type PostgreSQLLeaseRepository struct {
	db *sql.DB
}

// NewPostgreSQLLeaseRepository creates a PostgreSQLLeaseRepository.
func NewPostgreSQLLeaseRepository(db *sql.DB) *PostgreSQLLeaseRepository {
	return &PostgreSQLLeaseRepository{db: db}
}

// Acquire inserts the lease or takes over an expired one. Re-acquiring a lease already
// held by holder extends it.
func (p *PostgreSQLLeaseRepository) Acquire(
	ctx context.Context,
	purpose keysDomain.Purpose,
	holder string,
	ttl time.Duration,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)
	now := time.Now().UTC()

	query := `INSERT INTO rotation_leases (purpose, holder, expires_at) VALUES ($1, $2, $3)
			  ON CONFLICT (purpose) DO UPDATE SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
			  WHERE rotation_leases.expires_at <= $4 OR rotation_leases.holder = EXCLUDED.holder`

	result, err := querier.ExecContext(ctx, query, purpose, holder, now.Add(ttl), now)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Release deletes the lease when holder still owns it.
func (p *PostgreSQLLeaseRepository) Release(ctx context.Context, purpose keysDomain.Purpose, holder string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM rotation_leases WHERE purpose = $1 AND holder = $2`

	_, err := querier.ExecContext(ctx, query, purpose, holder)
	return err
}
