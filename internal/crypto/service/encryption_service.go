package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
)

// encryptionService binds an AEAD algorithm to the encryption purpose secrets.
//
// The ciphertext layout is base64(nonce || sealed) and the secret id is the AAD, so a
// ciphertext moved next to another secret id fails authentication.
type encryptionService struct {
	secrets     keysService.SecretService
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
	ciphers     sync.Map
}

// NewEncryptionService creates an EncryptionService over the encryption secrets.
func NewEncryptionService(
	secrets keysService.SecretService,
	aeadManager AEADManager,
	algorithm cryptoDomain.Algorithm,
) EncryptionService {
	return &encryptionService{
		secrets:     secrets,
		aeadManager: aeadManager,
		algorithm:   algorithm,
	}
}

func (e *encryptionService) Seal(ctx context.Context, plaintext []byte) (uuid.UUID, string, error) {
	secret, err := e.secrets.CurrentSecret(ctx)
	if err != nil {
		return uuid.Nil, "", err
	}

	aead, err := e.cipherFor(secret)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}

	ciphertext, nonce, err := aead.Encrypt(plaintext, secret.ID[:])
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}

	return secret.ID, base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

func (e *encryptionService) Open(ctx context.Context, secretID uuid.UUID, ciphertext string) ([]byte, error) {
	secret, err := e.secrets.SecretByID(ctx, secretID)
	if err != nil {
		return nil, err
	}

	aead, err := e.cipherFor(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, cryptoDomain.ErrDecryptionFailed)
	}

	nonceSize := aead.NonceSize()
	plaintext, err := aead.Decrypt(raw[nonceSize:], raw[:nonceSize], secret.ID[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}
	return plaintext, nil
}

// cipherFor returns the AEAD keyed by secret, built once per secret id.
func (e *encryptionService) cipherFor(secret *keysDomain.Secret) (AEAD, error) {
	if v, ok := e.ciphers.Load(secret.ID); ok {
		return v.(AEAD), nil
	}

	key, err := secret.Bytes()
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	aead, err := e.aeadManager.CreateCipher(key, e.algorithm)
	if err != nil {
		return nil, err
	}
	v, _ := e.ciphers.LoadOrStore(secret.ID, aead)
	return v.(AEAD), nil
}
