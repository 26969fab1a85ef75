package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// Rotation error definitions.
var (
	// ErrRotationInProgress indicates another process holds the rotation lease of the purpose.
	ErrRotationInProgress = errors.Wrap(errors.ErrConflict, "rotation in progress")

	// ErrLeaseLost indicates the rotation lease could not be extended and another process
	// may have taken the rotation over.
	ErrLeaseLost = errors.Wrap(errors.ErrConflict, "rotation lease lost")
)
