package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required secret length, 256 bits for AES-256.
	KeySize = 32

	// saltInfo provides domain separation for HKDF so the same secret can
	// be reused by other subsystems without producing the same cipher key.
	saltInfo = "authkit-session-sealer-v1"
)

// Sealer encrypts and decrypts session payloads with AES-256-GCM. The cipher
// key is derived from the configured secret via HKDF, so the raw secret is
// never used directly as key material.
//
// Payloads are encrypted rather than merely signed: the record carries role
// and attribute data that must stay unreadable even if the shared store is
// compromised.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the cipher key from secret and returns a ready Sealer.
// The secret must be exactly KeySize bytes.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) != KeySize {
		return nil, ErrInvalidKey
	}

	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	clearBytes(key)

	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext. The returned ciphertext is nonce + encrypted data
// + tag, self-contained for Open.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext produced by Seal. Any tampering or key mismatch
// yields ErrDecryptionFailed.
func (s *Sealer) Open(ciphertext []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	return plaintext, nil
}

// deriveKey expands the secret into a cipher key using HKDF with SHA-256.
func deriveKey(secret []byte) ([]byte, error) {
	hkdfReader := hkdf.New(sha256.New, secret, nil, []byte(saltInfo))

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	return key, nil
}

// clearBytes zeros a byte slice holding key material once it is no longer
// needed.
func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
