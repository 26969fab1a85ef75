package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	"github.com/allisson/fieldcrypt/internal/keys/cache"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
	"github.com/allisson/fieldcrypt/internal/keys/store"
)

func newRegistry(secretStore store.SecretStore) *keysService.Registry {
	logger := slog.Default()
	secretCache := cache.New(0, nil)

	services := make([]keysService.SecretService, 0, len(keysDomain.Purposes))
	for _, p := range keysDomain.Purposes {
		services = append(services, keysService.NewSecretService(p, secretStore, secretCache, keysService.Options{}, logger))
	}
	return keysService.NewRegistry(services...)
}

func TestRunInitKeys(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("creates-missing-keys", func(t *testing.T) {
		secretStore := store.NewMemoryStore()

		var out bytes.Buffer
		err := RunInitKeys(ctx, newRegistry(secretStore), logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "encryption: ")
		require.Contains(t, out.String(), "(created)")

		for _, p := range keysDomain.Purposes {
			secret, err := secretStore.GetOrNull(ctx, p)
			require.NoError(t, err)
			require.NotNil(t, secret)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		secretStore := store.NewMemoryStore()
		require.NoError(t, RunInitKeys(ctx, newRegistry(secretStore), logger, &bytes.Buffer{}, "text"))

		first, err := secretStore.GetOrNull(ctx, keysDomain.PurposeSigning)
		require.NoError(t, err)

		var out bytes.Buffer
		err = RunInitKeys(ctx, newRegistry(secretStore), logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"created": false`)
		require.NotContains(t, out.String(), `"created": true`)
		require.Contains(t, out.String(), first.ID.String())
	})
}
