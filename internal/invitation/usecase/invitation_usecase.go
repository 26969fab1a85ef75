package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
	userDomain "github.com/allisson/fieldcrypt/internal/user/domain"
	appValidation "github.com/allisson/fieldcrypt/internal/validation"
)

type invitationUseCase struct {
	repo       InvitationRepository
	txManager  database.TxManager
	crypto     invitationCrypto
	signer     tokenSigner
	expiration time.Duration
	now        func() time.Time
}

// NewInvitationUseCase creates the invitation use case. Tokens are signed with the
// secrets of signingSecrets and expire after expiration.
func NewInvitationUseCase(
	repo InvitationRepository,
	txManager database.TxManager,
	encryption cryptoService.EncryptionService,
	hash cryptoService.HashService,
	signingSecrets keysService.SecretService,
	expiration time.Duration,
) InvitationUseCase {
	return &invitationUseCase{
		repo:       repo,
		txManager:  txManager,
		crypto:     invitationCrypto{encryption: encryption, hash: hash},
		signer:     tokenSigner{secrets: signingSecrets},
		expiration: expiration,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *invitationUseCase) validateCreateInput(input CreateInvitationInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.TenantID, appValidation.NotNilUUID),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.Email,
			validation.Length(5, 255),
		),
		validation.Field(&input.Role,
			validation.Required.Error("role is required"),
			validation.In(invitationDomain.RoleAdmin, invitationDomain.RoleMember, invitationDomain.RoleViewer).
				Error("role must be one of admin, member, viewer"),
		),
		validation.Field(&input.InvitedBy,
			validation.Required.Error("invited_by is required"),
			appValidation.NotBlank,
			validation.Length(1, 255),
		),
	)
	return appValidation.WrapValidationError(err)
}

// Create issues an invitation unless the email already has a pending one in the tenant.
func (uc *invitationUseCase) Create(
	ctx context.Context,
	input CreateInvitationInput,
) (*invitationDomain.Invitation, string, error) {
	input.Email = userDomain.NormalizeEmail(input.Email)
	if err := uc.validateCreateInput(input); err != nil {
		return nil, "", err
	}

	now := uc.now()

	pending, err := uc.findPending(ctx, input.TenantID, input.Email, now)
	if err != nil && !apperrors.Is(err, invitationDomain.ErrInvitationNotFound) {
		return nil, "", err
	}
	if pending != nil {
		return nil, "", invitationDomain.ErrInvitationPending
	}

	inv := &invitationDomain.Invitation{
		ID:       uuid.Must(uuid.NewV7()),
		TenantID: input.TenantID,
		Sensitive: invitationDomain.InvitationClaims{
			Email:     input.Email,
			Role:      input.Role,
			InvitedBy: input.InvitedBy,
		},
		ExpiresAt: now.Add(uc.expiration),
		CreatedAt: now,
	}

	token, secretID, err := uc.signer.sign(ctx, inv)
	if err != nil {
		return nil, "", err
	}
	inv.TokenSecretID = secretID

	stored, err := uc.crypto.seal(ctx, inv)
	if err != nil {
		return nil, "", err
	}
	if err := uc.repo.Create(ctx, stored); err != nil {
		return nil, "", err
	}
	return inv, token, nil
}

// Accept verifies the token signature with the secret it names and marks the
// invitation accepted exactly once.
func (uc *invitationUseCase) Accept(ctx context.Context, token string) (*invitationDomain.Invitation, error) {
	now := uc.now()

	claims, err := uc.signer.verify(ctx, token, now)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, invitationDomain.ErrInvalidToken
	}

	var accepted *invitationDomain.Invitation
	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		stored, err := uc.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if stored.TenantID != claims.TenantID {
			return invitationDomain.ErrInvalidToken
		}

		ok, err := uc.repo.MarkAccepted(ctx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			return invitationDomain.ErrInvitationAccepted
		}

		accepted, err = uc.crypto.open(ctx, stored)
		if err != nil {
			return err
		}
		accepted.AcceptedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// ListPending returns the tenant's pending invitations decrypted.
func (uc *invitationUseCase) ListPending(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*invitationDomain.Invitation, error) {
	stored, err := uc.repo.ListPending(ctx, tenantID, uc.now(), offset, limit)
	if err != nil {
		return nil, err
	}

	invitations := make([]*invitationDomain.Invitation, 0, len(stored))
	for _, s := range stored {
		inv, err := uc.crypto.open(ctx, s)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, nil
}

// findPending looks up a pending invitation by email, retrying with hashing secrets
// reloaded from the store when the cached lookup window found nothing.
func (uc *invitationUseCase) findPending(
	ctx context.Context,
	tenantID uuid.UUID,
	email string,
	now time.Time,
) (*invitationDomain.EncryptedInvitation, error) {
	candidates, err := uc.crypto.hash.Candidates(ctx, email)
	if err != nil {
		return nil, err
	}
	pending, err := uc.repo.FindPendingByEmailHashes(ctx, tenantID, candidates, now)
	if !apperrors.Is(err, invitationDomain.ErrInvitationNotFound) {
		return pending, err
	}

	candidates, err = uc.crypto.hash.RefreshCandidates(ctx, email)
	if err != nil {
		return nil, err
	}
	return uc.repo.FindPendingByEmailHashes(ctx, tenantID, candidates, now)
}
