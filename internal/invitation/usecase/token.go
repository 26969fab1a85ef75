package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
)

const tokenIssuer = "fieldcrypt"

// tokenClaims are the JWT claims of an invitation token. The id claim is the invitation id.
type tokenClaims struct {
	jwt.RegisteredClaims
	TenantID uuid.UUID `json:"tenant_id"`
}

// tokenSigner issues HS512 invitation tokens with the current signing secret and
// verifies them with the secret named by the kid header.
type tokenSigner struct {
	secrets keysService.SecretService
}

func (s tokenSigner) sign(ctx context.Context, inv *invitationDomain.Invitation) (string, uuid.UUID, error) {
	secret, err := s.secrets.CurrentSecret(ctx)
	if err != nil {
		return "", uuid.Nil, err
	}

	key, err := secret.Bytes()
	if err != nil {
		return "", uuid.Nil, err
	}
	defer cryptoDomain.Zero(key)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        inv.ID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(inv.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(inv.ExpiresAt),
		},
		TenantID: inv.TenantID,
	})
	token.Header["kid"] = secret.ID.String()

	signed, err := token.SignedString(key)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("failed to sign invitation token: %w", err)
	}
	return signed, secret.ID, nil
}

func (s tokenSigner) verify(ctx context.Context, tokenString string, now time.Time) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			secretID, err := uuid.Parse(kid)
			if err != nil {
				return nil, fmt.Errorf("invalid kid header: %w", err)
			}
			secret, err := s.secrets.SecretByID(ctx, secretID)
			if err != nil {
				return nil, err
			}
			return secret.Bytes()
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	switch {
	case err == nil:
		return claims, nil
	case apperrors.Is(err, apperrors.ErrUnavailable):
		return nil, err
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, invitationDomain.ErrInvitationExpired
	default:
		return nil, fmt.Errorf("%w: %w", invitationDomain.ErrInvalidToken, err)
	}
}
