package auth

import (
	"crypto/subtle"

	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/cryptox"
)

const saltSize = 16

// NewVerifier derives a salted argon2id verifier for password. Only the salt
// and verifier are stored.
func NewVerifier(password string) (salt, verifier []byte) {
	salt = common.GenerateRandByteArray(saltSize)
	return salt, MakeVerifier(password, salt)
}

func MakeVerifier(password string, salt []byte) []byte {
	key := cryptox.DeriveKey([]byte(password), salt)
	defer common.WipeByteArray(key)
	return cryptox.MakeVerifier(key)
}

// CheckPassword compares in constant time.
func CheckPassword(password string, salt, verifier []byte) bool {
	return subtle.ConstantTimeCompare(MakeVerifier(password, salt), verifier) == 1
}
