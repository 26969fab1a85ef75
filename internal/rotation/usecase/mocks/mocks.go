// Package mocks provides mock implementations of the rotation use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// MockRotationUseCase is a mock implementation of usecase.RotationUseCase.
type MockRotationUseCase struct {
	mock.Mock
}

// Trigger mocks the Trigger method.
func (m *MockRotationUseCase) Trigger(
	ctx context.Context,
	purpose keysDomain.Purpose,
) (*rotationDomain.Status, error) {
	args := m.Called(ctx, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.Status), args.Error(1)
}

// TriggerAll mocks the TriggerAll method.
func (m *MockRotationUseCase) TriggerAll(ctx context.Context) ([]*rotationDomain.Status, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rotationDomain.Status), args.Error(1)
}

// Run mocks the Run method.
func (m *MockRotationUseCase) Run(
	ctx context.Context,
	purpose keysDomain.Purpose,
) (*rotationDomain.Status, error) {
	args := m.Called(ctx, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.Status), args.Error(1)
}

// Status mocks the Status method.
func (m *MockRotationUseCase) Status(ctx context.Context) rotationDomain.Summary {
	args := m.Called(ctx)
	return args.Get(0).(rotationDomain.Summary)
}

// Wait mocks the Wait method.
func (m *MockRotationUseCase) Wait() {
	m.Called()
}
