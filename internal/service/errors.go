package service

import (
	"alcyxob/composer/internal/repository"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrCompositionNotFound = errors.New("composition not found")
	ErrValidation          = errors.New("validation failed")
	ErrUnsupportedMedia    = errors.New("unsupported media")
	ErrStorage             = errors.New("storage fault")
)

// UnsupportedMediaReason says why an upload was refused.
type UnsupportedMediaReason string

const (
	ReasonTooLarge     UnsupportedMediaReason = "too_large"
	ReasonTooManyFiles UnsupportedMediaReason = "too_many_files"
	ReasonWrongType    UnsupportedMediaReason = "wrong_type"
)

// UnsupportedMediaError is returned for uploads outside the allowed MIME sets
// or over the size and count limits. It matches ErrUnsupportedMedia.
type UnsupportedMediaError struct {
	Reason UnsupportedMediaReason
	Detail string
}

func (e *UnsupportedMediaError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unsupported media (%s)", e.Reason)
	}
	return fmt.Sprintf("unsupported media (%s): %s", e.Reason, e.Detail)
}

func (e *UnsupportedMediaError) Is(target error) bool {
	return target == ErrUnsupportedMedia
}

// NewUnsupportedMedia builds an UnsupportedMediaError with a formatted detail.
func NewUnsupportedMedia(reason UnsupportedMediaReason, format string, args ...any) error {
	return &UnsupportedMediaError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// parseCompositionID treats a malformed id as a composition that cannot exist.
func parseCompositionID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrCompositionNotFound
	}
	return oid, nil
}

// mapRepoError translates repository errors into the service taxonomy.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrCompositionNotFound
	case errors.Is(err, repository.ErrInvalidContent):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}
