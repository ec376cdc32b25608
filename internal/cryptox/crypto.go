// Package cryptox holds the key derivation and AEAD helpers used for
// password verifiers on the server and for encrypting tokens at rest on the
// client.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
)

// KeySize is the length of keys produced by DeriveKey (AES-256).
const KeySize = 32

// NonceSize is the AES-GCM nonce length.
const NonceSize = 12

var ErrShortCiphertext = errors.New("ciphertext too short")

// DeriveKey stretches a secret with argon2id into a KeySize-byte key.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize)
}

// MakeVerifier returns the SHA-256 digest of a derived key. The server
// stores verifiers, never keys.
func MakeVerifier(key []byte) []byte {
	sum := sha256.Sum256(key)
	return sum[:]
}

// SealJSON marshals v to JSON and encrypts it with AES-GCM. The random nonce
// is prepended to the returned ciphertext.
func SealJSON(v any, key []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenJSON reverses SealJSON, decrypting data and unmarshalling into v.
func OpenJSON(data []byte, key []byte, v any) error {
	if len(data) < NonceSize {
		return ErrShortCiphertext
	}

	aead, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
