// Package domain defines the versioned secret model shared by the secret stores,
// the secret cache and the per-purpose secret services.
package domain

// Purpose is the logical tag identifying what a secret is used for. Each purpose has
// exactly one current secret at any time.
type Purpose string

const (
	// PurposeEncryption keys the AEAD that seals sensitive document payloads.
	PurposeEncryption Purpose = "encryption"
	// PurposeHashing keys the HMAC producing searchable hashes.
	PurposeHashing Purpose = "hashing"
	// PurposeSigning keys the HMAC signing invitation tokens.
	PurposeSigning Purpose = "signing"
)

// Purposes lists every purpose in the order rotations are performed.
var Purposes = []Purpose{PurposeEncryption, PurposeHashing, PurposeSigning}

// KeySize returns the length in bytes of freshly generated key material.
func (p Purpose) KeySize() int {
	if p == PurposeSigning {
		return 64
	}
	return 32
}

// IsValid reports whether p is a known purpose.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeEncryption, PurposeHashing, PurposeSigning:
		return true
	default:
		return false
	}
}

// ParsePurpose converts a raw value to a Purpose.
func ParsePurpose(value string) (Purpose, error) {
	p := Purpose(value)
	if !p.IsValid() {
		return "", ErrInvalidPurpose
	}
	return p, nil
}
