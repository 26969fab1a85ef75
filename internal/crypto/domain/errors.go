package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	//
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	//
	// Both algorithms require exactly 32 bytes (256 bits) of key material.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to:
	//   - Wrong decryption key used
	//   - Ciphertext has been tampered with (authentication failure)
	//   - Ciphertext too short to carry a nonce
	//   - Corrupted encrypted data
	//
	// The specific cause is not disclosed.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrEncryption indicates a cipher operation on a single payload failed. It is fatal
	// for that payload (one document), never for the process.
	ErrEncryption = errors.New("encryption error")
)
