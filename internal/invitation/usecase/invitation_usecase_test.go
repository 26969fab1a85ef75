package usecase

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	"github.com/allisson/fieldcrypt/internal/keys/cache"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
	"github.com/allisson/fieldcrypt/internal/keys/store"
)

type fixture struct {
	repo       *memoryRepository
	encryption keysService.SecretService
	hashing    keysService.SecretService
	signing    keysService.SecretService
	uc         *invitationUseCase
	collection *InvitationCollection
}

func newFixture(t *testing.T, expiration time.Duration) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	secretStore := store.NewMemoryStore()
	secretCache := cache.New(time.Minute, nil)
	opts := keysService.Options{AutoCreate: true, LookupTTL: time.Minute}

	f := &fixture{
		repo:       newMemoryRepository(),
		encryption: keysService.NewSecretService(keysDomain.PurposeEncryption, secretStore, secretCache, opts, logger),
		hashing:    keysService.NewSecretService(keysDomain.PurposeHashing, secretStore, secretCache, opts, logger),
		signing:    keysService.NewSecretService(keysDomain.PurposeSigning, secretStore, secretCache, opts, logger),
	}

	enc := cryptoService.NewEncryptionService(f.encryption, cryptoService.NewAEADManager(), cryptoDomain.ChaCha20)
	hash := cryptoService.NewHashService(f.hashing)

	f.uc = NewInvitationUseCase(f.repo, inlineTxManager{}, enc, hash, f.signing, expiration).(*invitationUseCase)
	f.collection = NewInvitationCollection(f.repo, inlineTxManager{}, enc, hash)
	return f
}

func validInput() CreateInvitationInput {
	return CreateInvitationInput{
		TenantID:  uuid.Must(uuid.NewV7()),
		Email:     " Bob@Example.com",
		Role:      invitationDomain.RoleMember,
		InvitedBy: "alice",
	}
}

func TestInvitationUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, time.Hour)

		inv, token, err := f.uc.Create(ctx, validInput())
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "bob@example.com", inv.Sensitive.Email)

		signing, err := f.signing.CurrentSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, signing.ID, inv.TokenSecretID)

		stored, err := f.repo.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.NotContains(t, stored.Sensitive.Ciphertext, "bob@example.com")
		assert.Equal(t, signing.ID, stored.TokenSecretID)

		parsed, _, err := jwt.NewParser().ParseUnverified(token, &tokenClaims{})
		require.NoError(t, err)
		assert.Equal(t, signing.ID.String(), parsed.Header["kid"])
		assert.Equal(t, "HS512", parsed.Header["alg"])
		assert.NotContains(t, token, "bob")
	})

	t.Run("Error_AlreadyPending", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		input := validInput()

		_, _, err := f.uc.Create(ctx, input)
		require.NoError(t, err)

		input.Email = "BOB@example.com"
		_, _, err = f.uc.Create(ctx, input)
		assert.ErrorIs(t, err, invitationDomain.ErrInvitationPending)
	})

	t.Run("Error_AlreadyPendingAfterHashingRotation", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		input := validInput()

		_, _, err := f.uc.Create(ctx, input)
		require.NoError(t, err)
		_, err = f.hashing.Rotate(ctx)
		require.NoError(t, err)

		_, _, err = f.uc.Create(ctx, input)
		assert.ErrorIs(t, err, invitationDomain.ErrInvitationPending)
	})

	t.Run("hash from another secret does not match", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		input := validInput()

		first, _, err := f.uc.Create(ctx, input)
		require.NoError(t, err)

		f.repo.mu.Lock()
		row := f.repo.rows[first.ID]
		row.EmailHash.SecretID = uuid.Must(uuid.NewV7())
		f.repo.rows[first.ID] = row
		f.repo.mu.Unlock()

		second, _, err := f.uc.Create(ctx, input)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("Error_InvalidRole", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		input := validInput()
		input.Role = "owner"

		_, _, err := f.uc.Create(ctx, input)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestInvitationUseCase_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		created, token, err := f.uc.Create(ctx, validInput())
		require.NoError(t, err)

		accepted, err := f.uc.Accept(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, created.ID, accepted.ID)
		assert.Equal(t, created.Sensitive, accepted.Sensitive)
		require.NotNil(t, accepted.AcceptedAt)

		_, err = f.uc.Accept(ctx, token)
		assert.ErrorIs(t, err, invitationDomain.ErrInvitationAccepted)
	})

	t.Run("VerifiesAfterSigningRotation", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		_, token, err := f.uc.Create(ctx, validInput())
		require.NoError(t, err)

		_, err = f.signing.Rotate(ctx)
		require.NoError(t, err)
		_, err = f.encryption.Rotate(ctx)
		require.NoError(t, err)

		_, err = f.uc.Accept(ctx, token)
		assert.NoError(t, err)
	})

	t.Run("Error_Expired", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		_, token, err := f.uc.Create(ctx, validInput())
		require.NoError(t, err)

		f.uc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

		_, err = f.uc.Accept(ctx, token)
		assert.ErrorIs(t, err, invitationDomain.ErrInvitationExpired)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("Error_Tampered", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		_, token, err := f.uc.Create(ctx, validInput())
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		parts[2] = strings.Repeat("A", len(parts[2]))

		_, err = f.uc.Accept(ctx, strings.Join(parts, "."))
		assert.ErrorIs(t, err, invitationDomain.ErrInvalidToken)
	})

	t.Run("Error_UnknownSigningSecret", func(t *testing.T) {
		f := newFixture(t, time.Hour)
		other := newFixture(t, time.Hour)

		_, token, err := other.uc.Create(ctx, validInput())
		require.NoError(t, err)

		_, err = f.uc.Accept(ctx, token)
		assert.ErrorIs(t, err, invitationDomain.ErrInvalidToken)
	})
}

func TestInvitationUseCase_ListPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	input := validInput()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		input.Email = email
		_, _, err := f.uc.Create(ctx, input)
		require.NoError(t, err)
	}

	page, err := f.uc.ListPending(ctx, input.TenantID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b@example.com", page[0].Sensitive.Email)
	assert.Equal(t, "c@example.com", page[1].Sensitive.Email)
}

func TestInvitationCollection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	assert.Equal(t, "invitations", f.collection.Name())

	created, token, err := f.uc.Create(ctx, validInput())
	require.NoError(t, err)

	oldEnc, err := f.encryption.CurrentSecret(ctx)
	require.NoError(t, err)
	oldSigning, err := f.signing.CurrentSecret(ctx)
	require.NoError(t, err)

	newEnc, err := f.encryption.Rotate(ctx)
	require.NoError(t, err)
	_, err = f.signing.Rotate(ctx)
	require.NoError(t, err)

	t.Run("ResealMovesToCurrentSecret", func(t *testing.T) {
		stale, err := f.collection.ListStale(ctx, keysDomain.PurposeEncryption, newEnc.ID, uuid.Nil, 10)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{created.ID}, stale)

		require.NoError(t, f.collection.Reseal(ctx, created.ID))

		stored, err := f.repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, newEnc.ID, stored.Sensitive.SecretID)

		count, err := f.collection.CountReferences(ctx, keysDomain.PurposeEncryption, oldEnc.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("PendingTokenPinsSigningSecret", func(t *testing.T) {
		stale, err := f.collection.ListStale(ctx, keysDomain.PurposeSigning, uuid.Nil, uuid.Nil, 10)
		require.NoError(t, err)
		assert.Empty(t, stale)

		count, err := f.collection.CountReferences(ctx, keysDomain.PurposeSigning, oldSigning.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		_, err = f.uc.Accept(ctx, token)
		require.NoError(t, err)

		count, err = f.collection.CountReferences(ctx, keysDomain.PurposeSigning, oldSigning.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
