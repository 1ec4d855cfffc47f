package services

import (
	"strings"

	"github.com/go-faster/errors"

	"floordesign/utils"
)

var (
	// ErrProductNameConflict is returned when a product with the same name or slug exists.
	ErrProductNameConflict = errors.New("product name already exists")
	// ErrProductNotFound is returned when no product matches.
	ErrProductNotFound = errors.New("product not found")

	// ErrUserNotFound is returned when no account matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when another account already uses the email.
	ErrEmailTaken = errors.New("email already used")
	// ErrInvalidCredentials is returned on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPaletteColorNotFound is returned when no swatch matches.
	ErrPaletteColorNotFound = errors.New("palette color not found")
	// ErrPaletteNameConflict is returned when another swatch has the same name.
	ErrPaletteNameConflict = errors.New("palette color name already exists")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError is bad client input. Message is safe to show to users.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

func now() string {
	return utils.FormatDateTimeForDB(utils.NowParis())
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "1062") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
