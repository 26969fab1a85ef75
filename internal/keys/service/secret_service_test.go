package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	"github.com/allisson/fieldcrypt/internal/keys/cache"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	"github.com/allisson/fieldcrypt/internal/keys/store"
	"github.com/allisson/fieldcrypt/internal/keys/store/mocks"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(
	purpose keysDomain.Purpose,
	secretStore store.SecretStore,
	autoCreate bool,
) (SecretService, *cache.SecretCache, *testclock.Clock) {
	// secrets carry wall clock creation times, so the test clock starts from now
	clk := testclock.NewClock(time.Now())
	secretCache := cache.New(15*time.Minute, clk)
	svc := NewSecretService(purpose, secretStore, secretCache, Options{
		AutoCreate: autoCreate,
		LookupTTL:  15 * time.Minute,
		Clock:      clk,
	}, newTestLogger())
	return svc, secretCache, clk
}

func TestSecretService_CurrentSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the first secret on demand", func(t *testing.T) {
		memStore := store.NewMemoryStore()
		svc, _, _ := newTestService(keysDomain.PurposeSigning, memStore, true)

		secret, err := svc.CurrentSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, keysDomain.PurposeSigning, secret.Key)

		raw, err := secret.Bytes()
		require.NoError(t, err)
		assert.Len(t, raw, 64)

		stored, err := memStore.GetOrNull(ctx, keysDomain.PurposeSigning)
		require.NoError(t, err)
		assert.Equal(t, secret.ID, stored.ID)
	})

	t.Run("no current key when auto create is disabled", func(t *testing.T) {
		svc, _, _ := newTestService(keysDomain.PurposeEncryption, store.NewMemoryStore(), false)

		_, err := svc.CurrentSecret(ctx)
		assert.ErrorIs(t, err, keysDomain.ErrNoCurrentKey)
		assert.True(t, apperrors.Is(err, apperrors.ErrUnavailable))
	})

	t.Run("served from cache until expiration", func(t *testing.T) {
		mockStore := &mocks.MockSecretStore{}
		svc, _, clk := newTestService(keysDomain.PurposeHashing, mockStore, true)

		existing := &keysDomain.Secret{ID: uuid.New(), Key: keysDomain.PurposeHashing, Value: "a2V5"}
		mockStore.On("GetOrNull", mock.Anything, keysDomain.PurposeHashing).Return(existing, nil).Twice()

		for i := 0; i < 3; i++ {
			secret, err := svc.CurrentSecret(ctx)
			require.NoError(t, err)
			assert.Equal(t, existing.ID, secret.ID)
		}

		clk.Advance(15 * time.Minute)
		_, err := svc.CurrentSecret(ctx)
		require.NoError(t, err)

		mockStore.AssertExpectations(t)
	})

	t.Run("store failure is surfaced", func(t *testing.T) {
		mockStore := &mocks.MockSecretStore{}
		svc, _, _ := newTestService(keysDomain.PurposeHashing, mockStore, true)

		storeErr := apperrors.Wrap(keysDomain.ErrSecretStore, "connection refused")
		mockStore.On("GetOrNull", mock.Anything, keysDomain.PurposeHashing).Return(nil, storeErr).Once()

		_, err := svc.CurrentSecret(ctx)
		assert.ErrorIs(t, err, keysDomain.ErrSecretStore)
		mockStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent first use creates a single secret", func(t *testing.T) {
		memStore := store.NewMemoryStore()
		svc, _, _ := newTestService(keysDomain.PurposeEncryption, memStore, true)

		var wg sync.WaitGroup
		ids := make([]uuid.UUID, 20)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				secret, err := svc.CurrentSecret(ctx)
				if assert.NoError(t, err) {
					ids[i] = secret.ID
				}
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
		active, err := memStore.ListActive(ctx, keysDomain.PurposeEncryption)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})
}

func TestSecretService_Rotate(t *testing.T) {
	ctx := context.Background()
	memStore := store.NewMemoryStore()
	svc, _, _ := newTestService(keysDomain.PurposeEncryption, memStore, true)

	before, err := svc.CurrentSecret(ctx)
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before.ID, rotated.ID)
	assert.NotEqual(t, before.Value, rotated.Value)

	current, err := svc.CurrentSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated.ID, current.ID)

	// the previous secret stays addressable
	old, err := svc.SecretByID(ctx, before.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Value, old.Value)
}

func TestSecretService_RotateVisibleToSecondCaller(t *testing.T) {
	ctx := context.Background()
	memStore := store.NewMemoryStore()
	secretCache := cache.New(time.Hour, nil)
	opts := Options{AutoCreate: true, LookupTTL: time.Hour}

	// two services sharing the store and cache, as two callers in one process
	writer := NewSecretService(keysDomain.PurposeEncryption, memStore, secretCache, opts, newTestLogger())
	reader := NewSecretService(keysDomain.PurposeEncryption, memStore, secretCache, opts, newTestLogger())

	_, err := reader.CurrentSecret(ctx)
	require.NoError(t, err)

	rotated, err := writer.Rotate(ctx)
	require.NoError(t, err)

	current, err := reader.CurrentSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated.ID, current.ID)
}

func TestSecretService_SecretByID(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		svc, _, _ := newTestService(keysDomain.PurposeEncryption, store.NewMemoryStore(), true)

		_, err := svc.SecretByID(ctx, uuid.New())
		assert.ErrorIs(t, err, keysDomain.ErrSecretKeyNotFound)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("secret of another purpose", func(t *testing.T) {
		memStore := store.NewMemoryStore()
		other, err := memStore.Put(ctx, keysDomain.PurposeHashing, "a2V5", "")
		require.NoError(t, err)

		svc, _, _ := newTestService(keysDomain.PurposeEncryption, memStore, true)
		_, err = svc.SecretByID(ctx, other.ID)
		assert.ErrorIs(t, err, keysDomain.ErrSecretKeyNotFound)
	})

	t.Run("resolved once", func(t *testing.T) {
		mockStore := &mocks.MockSecretStore{}
		svc, _, _ := newTestService(keysDomain.PurposeEncryption, mockStore, true)

		secret := &keysDomain.Secret{ID: uuid.New(), Key: keysDomain.PurposeEncryption, Value: "a2V5"}
		mockStore.On("GetByID", mock.Anything, secret.ID).Return(secret, nil).Once()

		for i := 0; i < 3; i++ {
			found, err := svc.SecretByID(ctx, secret.ID)
			require.NoError(t, err)
			assert.Equal(t, secret.ID, found.ID)
		}
		mockStore.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		mockStore := &mocks.MockSecretStore{}
		svc, _, _ := newTestService(keysDomain.PurposeEncryption, mockStore, true)

		id := uuid.New()
		mockStore.On("GetByID", mock.Anything, id).Return(nil, keysDomain.ErrSecretStore).Once()

		_, err := svc.SecretByID(ctx, id)
		assert.ErrorIs(t, err, keysDomain.ErrSecretStore)
		assert.False(t, errors.Is(err, keysDomain.ErrSecretKeyNotFound))
	})
}

func TestSecretService_LookupSecretsAndRetire(t *testing.T) {
	ctx := context.Background()
	memStore := store.NewMemoryStore()
	svc, _, clk := newTestService(keysDomain.PurposeHashing, memStore, true)

	first, err := svc.CurrentSecret(ctx)
	require.NoError(t, err)

	secrets, err := svc.LookupSecrets(ctx)
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, first.ID, secrets[0].ID)

	second, err := svc.Rotate(ctx)
	require.NoError(t, err)

	secrets, err = svc.LookupSecrets(ctx)
	require.NoError(t, err)
	require.Len(t, secrets, 2)
	assert.Equal(t, second.ID, secrets[0].ID)
	assert.Equal(t, first.ID, secrets[1].ID)

	assert.ErrorIs(t, svc.Retire(ctx, second.ID), keysDomain.ErrCannotRetireCurrent)

	// the successor has not been current for a cache TTL plus lookup TTL yet
	err = svc.Retire(ctx, first.ID)
	assert.ErrorIs(t, err, keysDomain.ErrRetirementPending)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	secrets, err = svc.LookupSecrets(ctx)
	require.NoError(t, err)
	require.Len(t, secrets, 2)

	clk.Advance(30*time.Minute + time.Second)
	require.NoError(t, svc.Retire(ctx, first.ID))

	secrets, err = svc.LookupSecrets(ctx)
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, second.ID, secrets[0].ID)

	// retired secrets still decrypt stragglers
	retired, err := svc.SecretByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, retired.ID)
}

func TestSecretService_RetireAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	memStore := store.NewMemoryStore()
	clk := testclock.NewClock(time.Now())
	opts := Options{AutoCreate: true, LookupTTL: 15 * time.Minute, Clock: clk}

	// a server and a CLI process share the store but not the cache
	server := NewSecretService(keysDomain.PurposeHashing, memStore, cache.New(15*time.Minute, clk), opts, newTestLogger())
	cli := NewSecretService(keysDomain.PurposeHashing, memStore, cache.New(15*time.Minute, clk), opts, newTestLogger())

	h1, err := server.CurrentSecret(ctx)
	require.NoError(t, err)

	_, err = cli.Rotate(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, cli.Retire(ctx, h1.ID), keysDomain.ErrRetirementPending)

	// the server still hashes with its cached secret
	written, err := server.CurrentSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, h1.ID, written.ID)

	clk.Advance(16 * time.Minute)

	lookup, err := server.LookupSecrets(ctx)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(lookup))
	for _, secret := range lookup {
		ids = append(ids, secret.ID)
	}
	assert.Contains(t, ids, written.ID)
}

func TestSecretService_Refresh(t *testing.T) {
	ctx := context.Background()
	memStore := store.NewMemoryStore()
	clk := testclock.NewClock(time.Now())
	opts := Options{AutoCreate: true, LookupTTL: time.Hour, Clock: clk}

	server := NewSecretService(keysDomain.PurposeHashing, memStore, cache.New(time.Hour, clk), opts, newTestLogger())
	cli := NewSecretService(keysDomain.PurposeHashing, memStore, cache.New(time.Hour, clk), opts, newTestLogger())

	first, err := server.CurrentSecret(ctx)
	require.NoError(t, err)
	lookup, err := server.LookupSecrets(ctx)
	require.NoError(t, err)
	require.Len(t, lookup, 1)

	rotated, err := cli.Rotate(ctx)
	require.NoError(t, err)

	// stale until refreshed
	current, err := server.CurrentSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)

	require.NoError(t, server.Refresh(ctx))

	current, err = server.CurrentSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated.ID, current.ID)

	lookup, err = server.LookupSecrets(ctx)
	require.NoError(t, err)
	require.Len(t, lookup, 2)
	assert.Equal(t, rotated.ID, lookup[0].ID)
	assert.Equal(t, first.ID, lookup[1].ID)
}

// pausingStore holds the first-use Put after it committed until released.
type pausingStore struct {
	store.SecretStore
	paused  chan struct{}
	release chan struct{}
}

func (p *pausingStore) Put(ctx context.Context, key keysDomain.Purpose, value, note string) (*keysDomain.Secret, error) {
	secret, err := p.SecretStore.Put(ctx, key, value, note)
	if note == "created on first use" {
		close(p.paused)
		<-p.release
	}
	return secret, err
}

func TestSecretService_FirstUseRacingRotate(t *testing.T) {
	ctx := context.Background()
	paused := &pausingStore{
		SecretStore: store.NewMemoryStore(),
		paused:      make(chan struct{}),
		release:     make(chan struct{}),
	}
	svc, _, _ := newTestService(keysDomain.PurposeEncryption, paused, true)

	type result struct {
		secret *keysDomain.Secret
		err    error
	}
	done := make(chan result, 1)
	go func() {
		secret, err := svc.CurrentSecret(ctx)
		done <- result{secret, err}
	}()
	<-paused.paused

	rotated, err := svc.Rotate(ctx)
	require.NoError(t, err)
	close(paused.release)

	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, rotated.ID, first.secret.ID)

	current, err := svc.CurrentSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated.ID, current.ID)
}

func TestRegistry(t *testing.T) {
	memStore := store.NewMemoryStore()
	secretCache := cache.New(time.Minute, nil)
	enc := NewSecretService(keysDomain.PurposeEncryption, memStore, secretCache, Options{}, newTestLogger())
	hash := NewSecretService(keysDomain.PurposeHashing, memStore, secretCache, Options{}, newTestLogger())

	registry := NewRegistry(hash, enc)

	got, err := registry.Get(keysDomain.PurposeEncryption)
	require.NoError(t, err)
	assert.Same(t, enc, got)

	_, err = registry.Get(keysDomain.PurposeSigning)
	assert.ErrorIs(t, err, keysDomain.ErrInvalidPurpose)

	assert.Equal(t, []keysDomain.Purpose{keysDomain.PurposeEncryption, keysDomain.PurposeHashing}, registry.Purposes())
}
