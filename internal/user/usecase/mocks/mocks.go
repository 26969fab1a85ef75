// Package mocks provides testify mocks for the user use case interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	userDomain "github.com/allisson/fieldcrypt/internal/user/domain"
	"github.com/allisson/fieldcrypt/internal/user/usecase"
)

// MockUserRepository is a mock implementation of usecase.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockUserRepository) Create(ctx context.Context, user *userDomain.EncryptedUser) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// Update mocks the Update method.
func (m *MockUserRepository) Update(
	ctx context.Context,
	user *userDomain.EncryptedUser,
	expectedCiphertext string,
) (bool, error) {
	args := m.Called(ctx, user, expectedCiphertext)
	return args.Bool(0), args.Error(1)
}

// GetByID mocks the GetByID method.
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.EncryptedUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.EncryptedUser), args.Error(1)
}

// FindByEmailHashes mocks the FindByEmailHashes method.
func (m *MockUserRepository) FindByEmailHashes(
	ctx context.Context,
	tenantID uuid.UUID,
	hashes []cryptoDomain.SearchableHash,
) (*userDomain.EncryptedUser, error) {
	args := m.Called(ctx, tenantID, hashes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.EncryptedUser), args.Error(1)
}

// ListStale mocks the ListStale method.
func (m *MockUserRepository) ListStale(
	ctx context.Context,
	purpose keysDomain.Purpose,
	currentID, afterID uuid.UUID,
	limit int,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, purpose, currentID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// CountReferences mocks the CountReferences method.
func (m *MockUserRepository) CountReferences(
	ctx context.Context,
	purpose keysDomain.Purpose,
	secretID uuid.UUID,
) (int64, error) {
	args := m.Called(ctx, purpose, secretID)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserUseCase is a mock implementation of usecase.UserUseCase.
type MockUserUseCase struct {
	mock.Mock
}

// Register mocks the Register method.
func (m *MockUserUseCase) Register(ctx context.Context, input usecase.RegisterUserInput) (*userDomain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

// GetByID mocks the GetByID method.
func (m *MockUserUseCase) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

// GetByEmail mocks the GetByEmail method.
func (m *MockUserUseCase) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*userDomain.User, error) {
	args := m.Called(ctx, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

// LinkProvider mocks the LinkProvider method.
func (m *MockUserUseCase) LinkProvider(ctx context.Context, id uuid.UUID, provider string) (*userDomain.User, error) {
	args := m.Called(ctx, id, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}
