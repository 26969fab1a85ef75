package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
	"github.com/allisson/fieldcrypt/internal/rotation/http/dto"
	rotationUseCase "github.com/allisson/fieldcrypt/internal/rotation/usecase"
)

// RunRotateKeys rotates the secrets of purpose, or of every purpose when purpose is empty,
// and blocks until each stored document was resealed. The per-purpose outcome is printed
// in text or JSON format.
//
// A rotation already running in this process is reported, not joined. An error is returned
// when a rotation failed or left documents on a previous secret.
func RunRotateKeys(
	ctx context.Context,
	rotation rotationUseCase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	purpose string,
	format string,
) error {
	purposes := keysDomain.Purposes
	if purpose != "" {
		p, err := keysDomain.ParsePurpose(purpose)
		if err != nil {
			return fmt.Errorf("invalid purpose %q (valid options: encryption, hashing, signing): %w", purpose, err)
		}
		purposes = []keysDomain.Purpose{p}
	}

	statuses := make([]*rotationDomain.Status, 0, len(purposes))
	for _, p := range purposes {
		logger.Info("rotating keys", slog.String("purpose", string(p)))

		status, err := rotation.Run(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to rotate %s keys: %w", p, err)
		}
		statuses = append(statuses, status)
	}

	if format == "json" {
		responses := make([]dto.PurposeStatusResponse, 0, len(statuses))
		for _, s := range statuses {
			responses = append(responses, dto.MapStatusToResponse(s))
		}
		if err := writeJSON(writer, responses); err != nil {
			return err
		}
	} else {
		outputRotationText(writer, statuses)
	}

	summary := rotationDomain.Summarize(statuses)
	for _, s := range statuses {
		if s.Error != "" {
			return fmt.Errorf("%s rotation failed: %s", s.Purpose, s.Error)
		}
	}
	if summary.Failed > 0 {
		return fmt.Errorf("rotation left %d document(s) on previous secrets", summary.Failed)
	}

	logger.Info("keys rotated successfully", slog.Int("purposes", len(statuses)))
	return nil
}

func outputRotationText(writer io.Writer, statuses []*rotationDomain.Status) {
	for _, s := range statuses {
		if s.IsOngoing {
			_, _ = fmt.Fprintf(writer, "%s: rotation already in progress (%d resealed so far)\n", s.Purpose, s.Processed)
			continue
		}
		_, _ = fmt.Fprintf(writer, "%s: current secret %s, %d resealed, %d failed, %d retired, %d pending\n",
			s.Purpose,
			s.CurrentSecretID,
			s.Processed,
			s.Failed,
			len(s.EligibleForRetirement),
			len(s.PendingRetirement),
		)
	}
}
