package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// Secret management error definitions.
var (
	// ErrSecretStore indicates the secret backend failed or is unreachable. It is never
	// masked by a fallback.
	ErrSecretStore = errors.Wrap(errors.ErrUnavailable, "secret store error")

	// ErrNoCurrentKey indicates a purpose has no current secret and one could not be
	// created (KEY_AUTO_CREATE disabled).
	ErrNoCurrentKey = errors.Wrap(errors.ErrUnavailable, "no current key")

	// ErrSecretKeyNotFound indicates a secret referenced by ID does not exist for the
	// purpose. Documents bound to it cannot be decrypted.
	ErrSecretKeyNotFound = errors.Wrap(errors.ErrNotFound, "secret key not found")

	// ErrCannotRetireCurrent indicates an attempt to retire the current secret of a purpose.
	ErrCannotRetireCurrent = errors.Wrap(errors.ErrConflict, "cannot retire current secret")

	// ErrRetirementPending indicates a secret may still be in use as current by another
	// process and cannot be retired yet.
	ErrRetirementPending = errors.Wrap(errors.ErrConflict, "secret retirement pending")

	// ErrInvalidPurpose indicates an unknown purpose tag.
	ErrInvalidPurpose = errors.Wrap(errors.ErrInvalidInput, "invalid purpose")

	// ErrMalformedSecret indicates stored key material could not be decoded.
	ErrMalformedSecret = errors.New("malformed secret value")
)
