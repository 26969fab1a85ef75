package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// Invitation error definitions.
var (
	// ErrInvitationNotFound indicates the invitation does not exist.
	ErrInvitationNotFound = errors.Wrap(errors.ErrNotFound, "invitation not found")

	// ErrInvitationPending indicates the email already has a pending invitation in the tenant.
	ErrInvitationPending = errors.Wrap(errors.ErrConflict, "invitation already pending")

	// ErrInvitationAccepted indicates the invitation was already accepted.
	ErrInvitationAccepted = errors.Wrap(errors.ErrConflict, "invitation already accepted")

	// ErrInvitationExpired indicates the invitation token is past its expiration.
	ErrInvitationExpired = errors.Wrap(errors.ErrUnauthorized, "invitation expired")

	// ErrInvalidToken indicates the token is malformed, forged or signed by an unknown secret.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid invitation token")
)
