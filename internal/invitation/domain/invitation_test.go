package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

func TestInvitation_IsPending(t *testing.T) {
	now := time.Now().UTC()
	accepted := now.Add(-time.Minute)

	assert.True(t, (&Invitation{ExpiresAt: now.Add(time.Hour)}).IsPending(now))
	assert.False(t, (&Invitation{ExpiresAt: now}).IsPending(now))
	assert.False(t, (&Invitation{ExpiresAt: now.Add(time.Hour), AcceptedAt: &accepted}).IsPending(now))
}

func TestInvitation_Conversion(t *testing.T) {
	now := time.Now().UTC()
	inv := &Invitation{
		ID:            uuid.Must(uuid.NewV7()),
		TenantID:      uuid.Must(uuid.NewV7()),
		Sensitive:     InvitationClaims{Email: "bob@example.com", Role: RoleMember, InvitedBy: "alice"},
		TokenSecretID: uuid.Must(uuid.NewV7()),
		ExpiresAt:     now.Add(time.Hour),
		CreatedAt:     now,
	}
	sealed := cryptoDomain.Encrypted[InvitationClaims]{SecretID: uuid.Must(uuid.NewV7()), Ciphertext: "c2VhbGVk"}
	hash := cryptoDomain.SearchableHash{Data: "ab", SecretID: uuid.Must(uuid.NewV7())}

	enc := inv.ToEncrypted(sealed, hash)
	assert.Equal(t, inv.ID, enc.ID)
	assert.Equal(t, inv.TokenSecretID, enc.TokenSecretID)
	assert.Equal(t, sealed, enc.Sensitive)
	assert.Equal(t, hash, enc.EmailHash)

	assert.Equal(t, inv, enc.ToSensitive(inv.Sensitive))
}
