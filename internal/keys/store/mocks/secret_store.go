// Package mocks provides mock implementations of the secret store for testing.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// MockSecretStore is a mock implementation of store.SecretStore.
type MockSecretStore struct {
	mock.Mock
}

// GetOrNull mocks the GetOrNull method.
func (m *MockSecretStore) GetOrNull(ctx context.Context, key keysDomain.Purpose) (*keysDomain.Secret, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.Secret), args.Error(1)
}

// GetByID mocks the GetByID method.
func (m *MockSecretStore) GetByID(ctx context.Context, id uuid.UUID) (*keysDomain.Secret, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.Secret), args.Error(1)
}

// Put mocks the Put method.
func (m *MockSecretStore) Put(
	ctx context.Context,
	key keysDomain.Purpose,
	value, note string,
) (*keysDomain.Secret, error) {
	args := m.Called(ctx, key, value, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.Secret), args.Error(1)
}

// ListActive mocks the ListActive method.
func (m *MockSecretStore) ListActive(ctx context.Context, key keysDomain.Purpose) ([]*keysDomain.Secret, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keysDomain.Secret), args.Error(1)
}

// Retire mocks the Retire method.
func (m *MockSecretStore) Retire(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
