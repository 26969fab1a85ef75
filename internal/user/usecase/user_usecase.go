package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/allisson/go-pwdhash"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	userDomain "github.com/allisson/fieldcrypt/internal/user/domain"
	appValidation "github.com/allisson/fieldcrypt/internal/validation"
)

// RegisterUserInput contains the input data for user registration.
type RegisterUserInput struct {
	TenantID  uuid.UUID
	Name      string
	Email     string
	Password  string
	Providers []string
}

type userUseCase struct {
	repo           UserRepository
	crypto         userCrypto
	passwordHasher *pwdhash.PasswordHasher
}

// NewUserUseCase creates the user use case.
func NewUserUseCase(
	repo UserRepository,
	encryption cryptoService.EncryptionService,
	hash cryptoService.HashService,
) (UserUseCase, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create password hasher")
	}

	return &userUseCase{
		repo:           repo,
		crypto:         userCrypto{encryption: encryption, hash: hash},
		passwordHasher: hasher,
	}, nil
}

func (uc *userUseCase) validateRegisterUserInput(input RegisterUserInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.TenantID, appValidation.NotNilUUID),
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.Email,
			validation.Length(5, 255).Error("email must be between 5 and 255 characters"),
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appValidation.PasswordStrength{
				MinLength:      8,
				RequireUpper:   true,
				RequireLower:   true,
				RequireNumber:  true,
				RequireSpecial: true,
			},
		),
		validation.Field(&input.Providers, validation.Each(validation.Required, appValidation.NotBlank)),
	)
	return appValidation.WrapValidationError(err)
}

// Register creates a user after checking the email against every lookup hash.
func (uc *userUseCase) Register(ctx context.Context, input RegisterUserInput) (*userDomain.User, error) {
	input.Email = userDomain.NormalizeEmail(input.Email)
	if err := uc.validateRegisterUserInput(input); err != nil {
		return nil, err
	}

	email := input.Email
	existing, err := uc.findByEmail(ctx, input.TenantID, email)
	if err != nil && !apperrors.Is(err, userDomain.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, userDomain.ErrUserAlreadyExists
	}

	passwordHash, err := uc.passwordHasher.Hash([]byte(input.Password))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}

	providers := input.Providers
	if providers == nil {
		providers = []string{}
	}

	now := time.Now().UTC()
	user := &userDomain.User{
		ID:           uuid.Must(uuid.NewV7()),
		TenantID:     input.TenantID,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: passwordHash,
		Sensitive:    userDomain.UserSensitive{Email: email, Providers: providers},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stored, err := uc.crypto.seal(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, stored); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID loads and decrypts a user.
func (uc *userUseCase) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	stored, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.crypto.open(ctx, stored)
}

// GetByEmail finds a user by equality on the email hash, trying every lookup secret so
// users not yet re-keyed by a running rotation are still found.
func (uc *userUseCase) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*userDomain.User, error) {
	stored, err := uc.findByEmail(ctx, tenantID, userDomain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return uc.crypto.open(ctx, stored)
}

// findByEmail looks the email up with the cached lookup window first. On a miss the
// hashing secrets are reloaded from the store and the lookup is retried, so users
// re-keyed by a rotation running in another process are found.
func (uc *userUseCase) findByEmail(
	ctx context.Context,
	tenantID uuid.UUID,
	email string,
) (*userDomain.EncryptedUser, error) {
	candidates, err := uc.crypto.hash.Candidates(ctx, email)
	if err != nil {
		return nil, err
	}
	stored, err := uc.repo.FindByEmailHashes(ctx, tenantID, candidates)
	if !apperrors.Is(err, userDomain.ErrUserNotFound) {
		return stored, err
	}

	candidates, err = uc.crypto.hash.RefreshCandidates(ctx, email)
	if err != nil {
		return nil, err
	}
	return uc.repo.FindByEmailHashes(ctx, tenantID, candidates)
}

// LinkProvider adds an identity provider to the encrypted payload.
func (uc *userUseCase) LinkProvider(ctx context.Context, id uuid.UUID, provider string) (*userDomain.User, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if err := validation.Validate(provider, validation.Required, validation.Length(1, 64)); err != nil {
		return nil, appValidation.WrapValidationError(err)
	}

	stored, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := uc.crypto.open(ctx, stored)
	if err != nil {
		return nil, err
	}
	if user.Sensitive.HasProvider(provider) {
		return user, nil
	}

	user.Sensitive.Providers = append(user.Sensitive.Providers, provider)
	user.UpdatedAt = time.Now().UTC()

	updated, err := uc.crypto.seal(ctx, user)
	if err != nil {
		return nil, err
	}
	ok, err := uc.repo.Update(ctx, updated, stored.Sensitive.Ciphertext)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, userDomain.ErrConcurrentUpdate
	}
	return user, nil
}
