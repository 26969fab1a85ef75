// Package domain defines the user entity in its plaintext and encrypted forms.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// UserSensitive groups the user fields that are never stored in plaintext.
type UserSensitive struct {
	Email     string   `json:"email"`
	Providers []string `json:"providers"`
}

// User is the plaintext view of a user, only ever held in memory.
type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Name         string
	PasswordHash string
	Sensitive    UserSensitive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EncryptedUser is the stored form of a User. Sensitive carries the sealed UserSensitive
// and EmailHash makes the email searchable by equality.
type EncryptedUser struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Name         string
	PasswordHash string
	Sensitive    cryptoDomain.Encrypted[UserSensitive]
	EmailHash    cryptoDomain.SearchableHash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ToEncrypted pairs the non-sensitive fields of u with its encrypted payload and hash.
func (u *User) ToEncrypted(
	sensitive cryptoDomain.Encrypted[UserSensitive],
	emailHash cryptoDomain.SearchableHash,
) *EncryptedUser {
	return &EncryptedUser{
		ID:           u.ID,
		TenantID:     u.TenantID,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Sensitive:    sensitive,
		EmailHash:    emailHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ToSensitive rebuilds the plaintext User from e and its decrypted payload.
func (e *EncryptedUser) ToSensitive(sensitive UserSensitive) *User {
	return &User{
		ID:           e.ID,
		TenantID:     e.TenantID,
		Name:         e.Name,
		PasswordHash: e.PasswordHash,
		Sensitive:    sensitive,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// HasProvider reports whether provider is already linked.
func (s UserSensitive) HasProvider(provider string) bool {
	for _, p := range s.Providers {
		if p == provider {
			return true
		}
	}
	return false
}

// NormalizeEmail is the canonical form hashed for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
