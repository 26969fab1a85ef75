package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
)

type initKeysResult struct {
	Purpose  string `json:"purpose"`
	SecretID string `json:"secret_id"`
	Created  bool   `json:"created"`
}

// RunInitKeys makes sure every purpose of registry has a current secret, creating the
// missing ones. It is idempotent and lets KEY_AUTO_CREATE stay disabled in production.
func RunInitKeys(
	ctx context.Context,
	registry *keysService.Registry,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	results := make([]initKeysResult, 0, len(registry.Purposes()))

	for _, purpose := range registry.Purposes() {
		secrets, err := registry.Get(purpose)
		if err != nil {
			return err
		}

		created := false
		secret, err := secrets.CurrentSecret(ctx)
		if errors.Is(err, keysDomain.ErrNoCurrentKey) {
			secret, err = secrets.Rotate(ctx)
			created = true
		}
		if err != nil {
			return fmt.Errorf("failed to initialize %s key: %w", purpose, err)
		}

		logger.Info("key initialized",
			slog.String("purpose", string(purpose)),
			slog.String("secret_id", secret.ID.String()),
			slog.Bool("created", created),
		)
		results = append(results, initKeysResult{
			Purpose:  string(purpose),
			SecretID: secret.ID.String(),
			Created:  created,
		})
	}

	if format == "json" {
		return writeJSON(writer, results)
	}

	for _, r := range results {
		state := "existing"
		if r.Created {
			state = "created"
		}
		_, _ = fmt.Fprintf(writer, "%s: %s (%s)\n", r.Purpose, r.SecretID, state)
	}
	return nil
}
