package keys

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// KDFParams are the Argon2id cost parameters stored alongside every
// ciphertext, so cost can be raised later without invalidating old entries.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory_kib"`
	Threads uint8  `json:"threads"`
}

// DefaultKDFParams returns the current Argon2id cost settings for new entries.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4}
}

const (
	saltLength = 32
	keyLength  = 32 // ChaCha20-Poly1305 key
)

// deriveKey stretches the password into a symmetric key using the entry's own
// salt and cost parameters.
func deriveKey(password, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, keyLength)
}

// seal encrypts plaintext under a password-derived key with a fresh random
// salt and nonce. Returns ciphertext, salt, nonce.
func seal(plaintext, password []byte, p KDFParams) (ciphertext, salt, nonce []byte, err error) {
	salt = make([]byte, saltLength)
	if _, err = rand.Read(salt); err != nil {
		return nil, nil, nil, fmt.Errorf("generating salt: %w", err)
	}

	aead, err := chacha20poly1305.New(deriveKey(password, salt, p))
	if err != nil {
		return nil, nil, nil, err
	}

	nonce = make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext = aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, salt, nonce, nil
}

// open decrypts a sealed entry. Any tampering or wrong password fails the
// Poly1305 authentication and is reported as ErrDecryptionFailed; garbage is
// never returned.
func open(ciphertext, password, salt, nonce []byte, p KDFParams) ([]byte, error) {
	aead, err := chacha20poly1305.New(deriveKey(password, salt, p))
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// zero overwrites b. Used to drop private key material as soon as a signing
// operation completes.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
