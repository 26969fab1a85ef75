package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localKeyURI(t *testing.T) string {
	t.Helper()
	return "base64key://" + base64.URLEncoding.EncodeToString(randomKey(t, 32))
}

func TestKMSService_OpenKeeper(t *testing.T) {
	ctx := context.Background()
	kmsService := NewKMSService()

	t.Run("Success_SealSecretValue", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, localKeyURI(t))
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, keeper.Close())
		}()

		value := randomKey(t, 64)
		sealed, err := keeper.Encrypt(ctx, value)
		require.NoError(t, err)
		assert.NotEqual(t, value, sealed)

		unsealed, err := keeper.Decrypt(ctx, sealed)
		require.NoError(t, err)
		assert.Equal(t, value, unsealed)
	})

	t.Run("Error_OtherKeeperCannotUnseal", func(t *testing.T) {
		k1, err := kmsService.OpenKeeper(ctx, localKeyURI(t))
		require.NoError(t, err)
		defer func() { _ = k1.Close() }()
		k2, err := kmsService.OpenKeeper(ctx, localKeyURI(t))
		require.NoError(t, err)
		defer func() { _ = k2.Close() }()

		sealed, err := k1.Encrypt(ctx, []byte("secret"))
		require.NoError(t, err)

		_, err = k2.Decrypt(ctx, sealed)
		assert.Error(t, err)
	})

	t.Run("Error_InvalidURI", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, "invalid://uri")
		assert.Nil(t, keeper)
		assert.ErrorContains(t, err, "failed to open KMS keeper")
	})

	t.Run("Error_EmptyURI", func(t *testing.T) {
		_, err := kmsService.OpenKeeper(ctx, "")
		assert.Error(t, err)
	})
}
