package security

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/matthewhartstonge/argon2"
)

// HashToken hashes a secret token with argon2id and returns the encoded hash.
func HashToken(token string) (string, error) {
	argon := argon2.DefaultConfig()

	encoded, err := argon.HashEncoded([]byte(token))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// VerifyToken reports whether token matches an encoded hash produced by HashToken.
func VerifyToken(token, encodedHash string) (bool, error) {
	return argon2.VerifyEncoded([]byte(token), []byte(encodedHash))
}

// Fingerprint returns a stable hex digest of value, used to key values that
// must not be stored in clear such as authorization codes.
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
