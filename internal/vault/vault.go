// Package vault seals and opens secret strings with AES-256-GCM before they
// touch durable storage.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const (
	keyLength            = 32
	derivationIterations = 100_000
)

// keyDerivationSalt is fixed so the same passphrase always derives the same
// key. The passphrase itself is the secret; the salt only separates this
// application's key space from other PBKDF2 users.
var keyDerivationSalt = []byte("nodeloom.credential-vault.v1")

type Vault struct {
	aead cipher.AEAD
}

var _ domain.SecretCipher = (*Vault)(nil)

// New derives the process-wide key from the configured passphrase. An empty
// passphrase is refused here rather than substituted with a random key;
// a throwaway key would strand every previously sealed secret.
func New(passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, domain.ErrEncryptionKeyMissing
	}

	key := pbkdf2.Key([]byte(passphrase), keyDerivationSalt, derivationIterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random IV. The IV is generated
// inline on every call; it is never cached or reused.
func (v *Vault) Seal(plaintext string) (domain.EncryptedValue, error) {
	iv := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return domain.EncryptedValue{}, fmt.Errorf("generate iv: %w", err)
	}

	sealed := v.aead.Seal(nil, iv, []byte(plaintext), nil)

	tagOffset := len(sealed) - v.aead.Overhead()

	return domain.EncryptedValue{
		Ciphertext: sealed[:tagOffset],
		IV:         iv,
		Tag:        sealed[tagOffset:],
	}, nil
}

// Open decrypts a sealed value. A tag that does not verify means tampering
// or a wrong key and fails with ErrDecryption; callers decide how to surface
// it, never by mapping it to a "not connected" state.
func (v *Vault) Open(value domain.EncryptedValue) (string, error) {
	if len(value.IV) != v.aead.NonceSize() {
		return "", fmt.Errorf("%w: unexpected iv length %d", domain.ErrDecryption, len(value.IV))
	}

	sealed := make([]byte, 0, len(value.Ciphertext)+len(value.Tag))
	sealed = append(sealed, value.Ciphertext...)
	sealed = append(sealed, value.Tag...)

	plaintext, err := v.aead.Open(nil, value.IV, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", domain.ErrDecryption)
	}

	return string(plaintext), nil
}
