package secrets

import "errors"

var (
	// ErrInvalidKey is returned when the sealing key is not KeySize bytes.
	ErrInvalidKey = errors.New("secrets: key must be exactly 32 bytes")

	// ErrEncryptionFailed is returned when sealing a payload fails.
	ErrEncryptionFailed = errors.New("secrets: encryption failed")

	// ErrDecryptionFailed is returned when a payload cannot be opened,
	// covering both tampered ciphertext and a wrong key.
	ErrDecryptionFailed = errors.New("secrets: decryption failed")

	// ErrInvalidCiphertext is returned when the ciphertext is too short to
	// contain a nonce.
	ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext")

	// ErrKeyDerivationFailed is returned when HKDF expansion fails.
	ErrKeyDerivationFailed = errors.New("secrets: key derivation failed")
)
