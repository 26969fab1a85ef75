package domain

// Algorithm represents the cryptographic algorithm used for encryption.
//
// All supported algorithms provide Authenticated Encryption with Associated Data (AEAD),
// ensuring both confidentiality and authenticity of encrypted data.
//
// Algorithm selection guidelines:
//   - Use AESGCM on modern CPUs with AES-NI hardware acceleration
//   - Use ChaCha20 on systems without AES-NI
//   - Both take a 256-bit key
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm
	// (12-byte nonce, 16-byte tag).
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm
	// (12-byte nonce, 16-byte tag, constant-time software implementation).
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the key length in bytes required by every supported algorithm.
const KeySize = 32

// ParseAlgorithm converts a configuration value to an Algorithm.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch alg := Algorithm(value); alg {
	case AESGCM, ChaCha20:
		return alg, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
