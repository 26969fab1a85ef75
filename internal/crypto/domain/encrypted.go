package domain

import (
	"github.com/google/uuid"
)

// Encrypted is the storage representation of a plaintext value of logical type T.
//
// It is self-describing: SecretID names the exact secret that produced Ciphertext, so
// decryption never needs to know which secret is current. Ciphertext is the standard
// base64 encoding of nonce || sealed payload.
type Encrypted[T any] struct {
	SecretID   uuid.UUID
	Ciphertext string
}

// IsZero reports whether the value carries no ciphertext.
func (e Encrypted[T]) IsZero() bool {
	return e.SecretID == uuid.Nil && e.Ciphertext == ""
}

// SearchableHash is a deterministic keyed hash of a plaintext value, used as an
// equality-searchable surrogate for a field whose real value is encrypted.
type SearchableHash struct {
	Data     string
	SecretID uuid.UUID
}

// Equal reports whether both the hash output and the producing secret match.
func (h SearchableHash) Equal(other SearchableHash) bool {
	return h.SecretID == other.SecretID && h.Data == other.Data
}
