// Package mocks provides testify mocks for the invitation use case.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	"github.com/allisson/fieldcrypt/internal/invitation/usecase"
)

// MockInvitationUseCase is a mock implementation of usecase.InvitationUseCase.
type MockInvitationUseCase struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockInvitationUseCase) Create(
	ctx context.Context,
	input usecase.CreateInvitationInput,
) (*invitationDomain.Invitation, string, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*invitationDomain.Invitation), args.String(1), args.Error(2)
}

// Accept mocks the Accept method.
func (m *MockInvitationUseCase) Accept(ctx context.Context, token string) (*invitationDomain.Invitation, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invitationDomain.Invitation), args.Error(1)
}

// ListPending mocks the ListPending method.
func (m *MockInvitationUseCase) ListPending(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*invitationDomain.Invitation, error) {
	args := m.Called(ctx, tenantID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invitationDomain.Invitation), args.Error(1)
}
