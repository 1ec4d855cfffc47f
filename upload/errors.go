package upload

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrDuplicateName is returned before any upload when the product name is taken.
	ErrDuplicateName = errors.New("a product with this name already exists")
	// ErrMixedRoots is matched by MixedRootsError.
	ErrMixedRoots = errors.New("files belong to different top-level folders")
)

// ValidationError is a failed precondition; nothing was sent anywhere.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// MixedRootsError names the two disagreeing top-level folders.
type MixedRootsError struct {
	First string
	Other string
}

func (e *MixedRootsError) Error() string {
	return fmt.Sprintf("files belong to different top-level folders (%q and %q)", e.First, e.Other)
}

func (e *MixedRootsError) Is(target error) bool {
	return target == ErrMixedRoots
}

// UploadTransportError is a failed media upload. It aborts the submission.
type UploadTransportError struct {
	Path string
	Err  error
}

func (e *UploadTransportError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Path, e.Err)
}

func (e *UploadTransportError) Unwrap() error {
	return e.Err
}

// RegistrarRejectionError carries the registrar's message unchanged.
type RegistrarRejectionError struct {
	Message string
}

func (e *RegistrarRejectionError) Error() string {
	return e.Message
}

// ServerError wraps any other collaborator failure.
type ServerError struct {
	Op  string
	Err error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// UserMessage maps a submission error to the text shown to an admin.
func UserMessage(err error) string {
	var (
		validation *ValidationError
		transport  *UploadTransportError
		rejection  *RegistrarRejectionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return validation.Message
	case errors.Is(err, ErrDuplicateName):
		return "Un produit avec ce nom existe déjà"
	case errors.Is(err, ErrMixedRoots):
		return err.Error()
	case errors.As(err, &transport):
		return "Erreur lors de l'upload des images"
	case errors.As(err, &rejection):
		return rejection.Message
	default:
		return "Erreur serveur"
	}
}
