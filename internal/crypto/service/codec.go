package service

import (
	"context"
	"encoding/json"
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// Encrypt marshals value as JSON and seals it with the current encryption secret.
func Encrypt[T any](ctx context.Context, svc EncryptionService, value T) (cryptoDomain.Encrypted[T], error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return cryptoDomain.Encrypted[T]{}, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}
	defer cryptoDomain.Zero(payload)

	secretID, ciphertext, err := svc.Seal(ctx, payload)
	if err != nil {
		return cryptoDomain.Encrypted[T]{}, err
	}
	return cryptoDomain.Encrypted[T]{SecretID: secretID, Ciphertext: ciphertext}, nil
}

// Decrypt opens enc with the secret it names and unmarshals the payload into T.
func Decrypt[T any](ctx context.Context, svc EncryptionService, enc cryptoDomain.Encrypted[T]) (T, error) {
	var value T

	payload, err := svc.Open(ctx, enc.SecretID, enc.Ciphertext)
	if err != nil {
		return value, err
	}
	defer cryptoDomain.Zero(payload)

	if err := json.Unmarshal(payload, &value); err != nil {
		return value, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}
	return value, nil
}
