package domain

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// Secret is one immutable version of key material for a purpose.
//
// Value holds the standard base64 encoding of the raw key bytes. A rotation never
// mutates a Secret; it creates a new one. RetiredAt is set once no stored document
// references the secret anymore; retired secrets remain resolvable by ID.
type Secret struct {
	ID        uuid.UUID
	Key       Purpose
	Value     string
	Note      string
	CreatedAt time.Time
	RetiredAt *time.Time
}

// Bytes decodes the key material.
func (s *Secret) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s.Value)
	if err != nil {
		return nil, ErrMalformedSecret
	}
	return b, nil
}

// IsRetired reports whether the secret was retired.
func (s *Secret) IsRetired() bool {
	return s.RetiredAt != nil
}

// CachedSecret pairs a secret with the instant it stops being served from memory.
type CachedSecret struct {
	Secret         *Secret
	ExpirationTime time.Time
}

// IsExpired reports whether the entry is stale at now.
func (c *CachedSecret) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpirationTime)
}
