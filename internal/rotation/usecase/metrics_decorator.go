package usecase

import (
	"context"
	"time"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	"github.com/allisson/fieldcrypt/internal/metrics"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// rotationUseCaseWithMetrics decorates RotationUseCase with metrics instrumentation.
type rotationUseCaseWithMetrics struct {
	next    RotationUseCase
	metrics metrics.BusinessMetrics
}

// NewRotationUseCaseWithMetrics wraps a RotationUseCase with metrics recording.
func NewRotationUseCaseWithMetrics(useCase RotationUseCase, m metrics.BusinessMetrics) RotationUseCase {
	return &rotationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Trigger records metrics for rotation triggers.
func (r *rotationUseCaseWithMetrics) Trigger(
	ctx context.Context,
	purpose keysDomain.Purpose,
) (*rotationDomain.Status, error) {
	start := time.Now()
	status, err := r.next.Trigger(ctx, purpose)
	r.record(ctx, "trigger_"+string(purpose), start, err)
	return status, err
}

// TriggerAll records metrics for triggers of every purpose.
func (r *rotationUseCaseWithMetrics) TriggerAll(ctx context.Context) ([]*rotationDomain.Status, error) {
	start := time.Now()
	statuses, err := r.next.TriggerAll(ctx)
	r.record(ctx, "trigger_all", start, err)
	return statuses, err
}

// Run records metrics for synchronous rotations. A rotation that finished with failed
// documents is reported as partial.
func (r *rotationUseCaseWithMetrics) Run(
	ctx context.Context,
	purpose keysDomain.Purpose,
) (*rotationDomain.Status, error) {
	start := time.Now()
	status, err := r.next.Run(ctx, purpose)

	result := "success"
	switch {
	case err != nil || (status != nil && status.Error != ""):
		result = "error"
	case status != nil && status.Failed > 0:
		result = "partial"
	}

	operation := "run_" + string(purpose)
	r.metrics.RecordOperation(ctx, "rotation", operation, result)
	r.metrics.RecordDuration(ctx, "rotation", operation, time.Since(start), result)

	return status, err
}

// Status delegates without recording.
func (r *rotationUseCaseWithMetrics) Status(ctx context.Context) rotationDomain.Summary {
	return r.next.Status(ctx)
}

// Wait delegates without recording.
func (r *rotationUseCaseWithMetrics) Wait() {
	r.next.Wait()
}

func (r *rotationUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "rotation", operation, status)
	r.metrics.RecordDuration(ctx, "rotation", operation, time.Since(start), status)
}
