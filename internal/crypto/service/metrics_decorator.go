package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/fieldcrypt/internal/metrics"
)

// encryptionServiceWithMetrics decorates EncryptionService with metrics instrumentation.
type encryptionServiceWithMetrics struct {
	next    EncryptionService
	metrics metrics.BusinessMetrics
}

// NewEncryptionServiceWithMetrics wraps an EncryptionService with metrics recording.
func NewEncryptionServiceWithMetrics(svc EncryptionService, m metrics.BusinessMetrics) EncryptionService {
	return &encryptionServiceWithMetrics{next: svc, metrics: m}
}

// Seal records metrics for encrypt operations.
func (e *encryptionServiceWithMetrics) Seal(ctx context.Context, plaintext []byte) (uuid.UUID, string, error) {
	start := time.Now()
	secretID, ciphertext, err := e.next.Seal(ctx, plaintext)
	e.record(ctx, "encrypt", start, err)
	return secretID, ciphertext, err
}

// Open records metrics for decrypt operations.
func (e *encryptionServiceWithMetrics) Open(ctx context.Context, secretID uuid.UUID, ciphertext string) ([]byte, error) {
	start := time.Now()
	plaintext, err := e.next.Open(ctx, secretID, ciphertext)
	e.record(ctx, "decrypt", start, err)
	return plaintext, err
}

func (e *encryptionServiceWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	e.metrics.RecordOperation(ctx, "crypto", operation, status)
	e.metrics.RecordDuration(ctx, "crypto", operation, time.Since(start), status)
}
