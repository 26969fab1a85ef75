package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// User error definitions.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates a user with the same email already exists in the tenant.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")

	// ErrConcurrentUpdate indicates the user changed between read and write.
	ErrConcurrentUpdate = errors.Wrap(errors.ErrConflict, "user was modified concurrently")
)
