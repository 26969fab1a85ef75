package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/fieldcrypt/internal/database"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

func TestMySQLStore_GetByID(t *testing.T) {
	ctx := context.Background()
	keeper := newTestKeeper(t)
	db, mock := newMockDB(t)
	store := NewMySQLStore(db, database.NewTxManager(db), keeper)

	id := uuid.Must(uuid.NewV7())
	idBytes, err := id.MarshalBinary()
	require.NoError(t, err)
	value := testValue(t, 32)

	mock.ExpectQuery("SELECT (.+) FROM secret_keys WHERE id = \\?").
		WithArgs(idBytes).
		WillReturnRows(sqlmock.NewRows(secretRowColumns).
			AddRow(idBytes, "hashing", sealValue(t, keeper, value), "", time.Now().UTC(), nil))

	secret, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, secret)
	assert.Equal(t, id, secret.ID)
	assert.Equal(t, keysDomain.PurposeHashing, secret.Key)
	assert.Equal(t, value, secret.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_GetOrNull(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	store := NewMySQLStore(db, database.NewTxManager(db), newTestKeeper(t))

	mock.ExpectQuery("SELECT (.+) FROM secret_keys WHERE purpose = \\? AND is_current = TRUE").
		WithArgs("signing").
		WillReturnRows(sqlmock.NewRows(secretRowColumns))

	secret, err := store.GetOrNull(ctx, keysDomain.PurposeSigning)
	require.NoError(t, err)
	assert.Nil(t, secret)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewMySQLStore(db, database.NewTxManager(db), newTestKeeper(t))

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE secret_keys SET is_current = FALSE WHERE purpose = \\?").
			WithArgs("signing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO secret_keys").
			WithArgs(sqlmock.AnyArg(), "signing", sqlmock.AnyArg(), "", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		secret, err := store.Put(ctx, keysDomain.PurposeSigning, testValue(t, 64), "")
		require.NoError(t, err)
		assert.Equal(t, keysDomain.PurposeSigning, secret.Key)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginFailure", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewMySQLStore(db, database.NewTxManager(db), newTestKeeper(t))

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		_, err := store.Put(ctx, keysDomain.PurposeSigning, testValue(t, 64), "")
		assert.ErrorIs(t, err, keysDomain.ErrSecretStore)
	})
}

func TestMySQLStore_ListActiveAndRetire(t *testing.T) {
	ctx := context.Background()
	keeper := newTestKeeper(t)
	db, mock := newMockDB(t)
	store := NewMySQLStore(db, database.NewTxManager(db), keeper)

	id := uuid.Must(uuid.NewV7())
	idBytes, err := id.MarshalBinary()
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM secret_keys WHERE purpose = \\? AND retired_at IS NULL").
		WithArgs("encryption").
		WillReturnRows(sqlmock.NewRows(secretRowColumns).
			AddRow(idBytes, "encryption", sealValue(t, keeper, testValue(t, 32)), "", time.Now().UTC(), nil))
	mock.ExpectExec("UPDATE secret_keys SET retired_at = \\?").
		WithArgs(sqlmock.AnyArg(), idBytes).
		WillReturnResult(sqlmock.NewResult(0, 1))

	secrets, err := store.ListActive(ctx, keysDomain.PurposeEncryption)
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, id, secrets[0].ID)

	require.NoError(t, store.Retire(ctx, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}
