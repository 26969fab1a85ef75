package usecase

import (
	"context"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	invitationDomain "github.com/allisson/fieldcrypt/internal/invitation/domain"
	userDomain "github.com/allisson/fieldcrypt/internal/user/domain"
)

// invitationCrypto converts between Invitation and EncryptedInvitation with the current
// encryption and hashing secrets.
type invitationCrypto struct {
	encryption cryptoService.EncryptionService
	hash       cryptoService.HashService
}

func (c invitationCrypto) seal(
	ctx context.Context,
	inv *invitationDomain.Invitation,
) (*invitationDomain.EncryptedInvitation, error) {
	inv.Sensitive.Email = userDomain.NormalizeEmail(inv.Sensitive.Email)

	sensitive, err := cryptoService.Encrypt(ctx, c.encryption, inv.Sensitive)
	if err != nil {
		return nil, err
	}

	emailHash, err := c.hash.Hash(ctx, inv.Sensitive.Email)
	if err != nil {
		return nil, err
	}

	return inv.ToEncrypted(sensitive, emailHash), nil
}

func (c invitationCrypto) open(
	ctx context.Context,
	stored *invitationDomain.EncryptedInvitation,
) (*invitationDomain.Invitation, error) {
	claims, err := cryptoService.Decrypt(ctx, c.encryption, stored.Sensitive)
	if err != nil {
		return nil, err
	}
	return stored.ToSensitive(claims), nil
}
