package domain

import "context"

// KMSKeeper is the subset of gocloud.dev *secrets.Keeper used to seal secret values
// before they reach a backend that stores them in the service database.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
