package usecase

import (
	"context"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	userDomain "github.com/allisson/fieldcrypt/internal/user/domain"
)

// userCrypto converts between User and EncryptedUser. Every seal encrypts with the
// current encryption secret and re-hashes with the current hashing secret.
type userCrypto struct {
	encryption cryptoService.EncryptionService
	hash       cryptoService.HashService
}

func (c userCrypto) seal(ctx context.Context, user *userDomain.User) (*userDomain.EncryptedUser, error) {
	user.Sensitive.Email = userDomain.NormalizeEmail(user.Sensitive.Email)

	sensitive, err := cryptoService.Encrypt(ctx, c.encryption, user.Sensitive)
	if err != nil {
		return nil, err
	}

	emailHash, err := c.hash.Hash(ctx, user.Sensitive.Email)
	if err != nil {
		return nil, err
	}

	return user.ToEncrypted(sensitive, emailHash), nil
}

func (c userCrypto) open(ctx context.Context, stored *userDomain.EncryptedUser) (*userDomain.User, error) {
	sensitive, err := cryptoService.Decrypt(ctx, c.encryption, stored.Sensitive)
	if err != nil {
		return nil, err
	}
	return stored.ToSensitive(sensitive), nil
}
