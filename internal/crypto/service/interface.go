// Package service provides the field-level cryptography: AEAD ciphers, the encryption
// service bound to the current encryption secret and the searchable hash service.
package service

import (
	"context"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)

	// NonceSize returns the nonce length in bytes.
	NonceSize() int
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// EncryptionService seals payloads with the current encryption secret and opens them
// with the secret they name.
type EncryptionService interface {
	// Seal encrypts plaintext and returns the producing secret id with the base64 ciphertext.
	Seal(ctx context.Context, plaintext []byte) (uuid.UUID, string, error)

	// Open decrypts a ciphertext produced by the secret secretID.
	Open(ctx context.Context, secretID uuid.UUID, ciphertext string) ([]byte, error)
}

// HashService derives searchable hashes with the hashing secrets.
type HashService interface {
	// Hash computes the searchable hash of plaintext with the current hashing secret.
	Hash(ctx context.Context, plaintext string) (cryptoDomain.SearchableHash, error)

	// Candidates computes one hash per lookup secret, current first.
	Candidates(ctx context.Context, plaintext string) ([]cryptoDomain.SearchableHash, error)

	// RefreshCandidates reloads the hashing secrets from the store before computing the
	// candidates. Callers use it when a lookup with Candidates found nothing, since this
	// process may not have seen a rotation made elsewhere yet.
	RefreshCandidates(ctx context.Context, plaintext string) ([]cryptoDomain.SearchableHash, error)
}
