// Package password wraps bcrypt hashing and comparison.
package password

import "golang.org/x/crypto/bcrypt"

// GetHash returns the bcrypt hash of a raw password.
func GetHash(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareHash reports whether raw matches the stored bcrypt hash.
func CompareHash(hash, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}
