package utils

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// GenerateID returns a short random row ID such as "prod-3fa85f6457174562".
// An empty prefix yields the bare 16 hex chars.
func GenerateID(prefix string) (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	id := strings.ReplaceAll(u.String(), "-", "")[:16]
	if prefix == "" {
		return id, nil
	}
	return prefix + "-" + id, nil
}

// HashPassword hashes a buyer or admin password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
