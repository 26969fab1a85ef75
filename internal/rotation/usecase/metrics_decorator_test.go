package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
	"github.com/allisson/fieldcrypt/internal/rotation/usecase"
	usecaseMocks "github.com/allisson/fieldcrypt/internal/rotation/usecase/mocks"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordDocuments(ctx context.Context, collection, purpose, status string, n int64) {
	m.Called(ctx, collection, purpose, status, n)
}

func expectRecord(ctx context.Context, m *mockBusinessMetrics, operation, status string) {
	m.On("RecordOperation", ctx, "rotation", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "rotation", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestRotationUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("Trigger success", func(t *testing.T) {
		mockNext := &usecaseMocks.MockRotationUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewRotationUseCaseWithMetrics(mockNext, mockMetrics)

		status := &rotationDomain.Status{Purpose: keysDomain.PurposeHashing, IsOngoing: true}
		mockNext.On("Trigger", ctx, keysDomain.PurposeHashing).Return(status, nil).Once()
		expectRecord(ctx, mockMetrics, "trigger_hashing", "success")

		res, err := uc.Trigger(ctx, keysDomain.PurposeHashing)
		assert.NoError(t, err)
		assert.Equal(t, status, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("TriggerAll error", func(t *testing.T) {
		mockNext := &usecaseMocks.MockRotationUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewRotationUseCaseWithMetrics(mockNext, mockMetrics)

		expectedErr := errors.New("error")
		mockNext.On("TriggerAll", ctx).Return(nil, expectedErr).Once()
		expectRecord(ctx, mockMetrics, "trigger_all", "error")

		_, err := uc.TriggerAll(ctx)
		assert.Equal(t, expectedErr, err)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Run partial", func(t *testing.T) {
		mockNext := &usecaseMocks.MockRotationUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewRotationUseCaseWithMetrics(mockNext, mockMetrics)

		status := &rotationDomain.Status{Purpose: keysDomain.PurposeEncryption, Processed: 9, Failed: 1}
		mockNext.On("Run", ctx, keysDomain.PurposeEncryption).Return(status, nil).Once()
		expectRecord(ctx, mockMetrics, "run_encryption", "partial")

		res, err := uc.Run(ctx, keysDomain.PurposeEncryption)
		assert.NoError(t, err)
		assert.Equal(t, status, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Run with store failure", func(t *testing.T) {
		mockNext := &usecaseMocks.MockRotationUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewRotationUseCaseWithMetrics(mockNext, mockMetrics)

		status := &rotationDomain.Status{Purpose: keysDomain.PurposeSigning, Error: "secret store error"}
		mockNext.On("Run", ctx, keysDomain.PurposeSigning).Return(status, nil).Once()
		expectRecord(ctx, mockMetrics, "run_signing", "error")

		_, err := uc.Run(ctx, keysDomain.PurposeSigning)
		assert.NoError(t, err)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Status and Wait delegate", func(t *testing.T) {
		mockNext := &usecaseMocks.MockRotationUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewRotationUseCaseWithMetrics(mockNext, mockMetrics)

		summary := rotationDomain.Summary{IsOngoing: true}
		mockNext.On("Status", ctx).Return(summary).Once()
		mockNext.On("Wait").Return().Once()

		assert.Equal(t, summary, uc.Status(ctx))
		uc.Wait()
		mockNext.AssertExpectations(t)
		mockMetrics.AssertNotCalled(t, "RecordOperation")
	})
}
