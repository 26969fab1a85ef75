package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
)

type hashService struct {
	secrets keysService.SecretService
}

// NewHashService creates a HashService over the hashing secrets.
func NewHashService(secrets keysService.SecretService) HashService {
	return &hashService{secrets: secrets}
}

// HashWith computes the hex HMAC-SHA256 of plaintext keyed by secret. The result depends
// only on the plaintext and the secret value.
func HashWith(secret *keysDomain.Secret, plaintext string) (cryptoDomain.SearchableHash, error) {
	key, err := secret.Bytes()
	if err != nil {
		return cryptoDomain.SearchableHash{}, err
	}
	defer cryptoDomain.Zero(key)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(plaintext))

	return cryptoDomain.SearchableHash{
		Data:     hex.EncodeToString(mac.Sum(nil)),
		SecretID: secret.ID,
	}, nil
}

func (h *hashService) Hash(ctx context.Context, plaintext string) (cryptoDomain.SearchableHash, error) {
	secret, err := h.secrets.CurrentSecret(ctx)
	if err != nil {
		return cryptoDomain.SearchableHash{}, err
	}
	return HashWith(secret, plaintext)
}

func (h *hashService) Candidates(ctx context.Context, plaintext string) ([]cryptoDomain.SearchableHash, error) {
	secrets, err := h.secrets.LookupSecrets(ctx)
	if err != nil {
		return nil, err
	}

	hashes := make([]cryptoDomain.SearchableHash, 0, len(secrets))
	for _, secret := range secrets {
		hash, err := HashWith(secret, plaintext)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

func (h *hashService) RefreshCandidates(ctx context.Context, plaintext string) ([]cryptoDomain.SearchableHash, error) {
	if err := h.secrets.Refresh(ctx); err != nil {
		return nil, err
	}
	return h.Candidates(ctx, plaintext)
}
