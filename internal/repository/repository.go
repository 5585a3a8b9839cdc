package repository

import (
	"alcyxob/composer/internal/domain"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound       = RepositoryError("not found")
	ErrInvalidContent = RepositoryError("invalid composition content")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// CompositionRepository is the document store boundary for compositions.
// Replace and AppendMediaFiles are single-document atomic writes: readers never
// observe a partially written elements or mediaFiles array.
type CompositionRepository interface {
	// Create stores a new composition and assigns ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, seed *domain.Composition) (*domain.Composition, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Composition, error)
	// List returns every composition, newest first.
	List(ctx context.Context) ([]domain.Composition, error)
	// Replace overwrites the content of a composition. Arrays are replaced, not merged;
	// callers normalize every entry first.
	Replace(ctx context.Context, id primitive.ObjectID, content domain.Content) (*domain.Composition, error)
	// AppendMediaFiles pushes files to the end of the mediaFiles array.
	AppendMediaFiles(ctx context.Context, id primitive.ObjectID, files ...domain.MediaFile) (*domain.Composition, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ValidateContent rejects enum values outside their allowed sets. It is shared
// by every CompositionRepository implementation and runs before any write.
func ValidateContent(content domain.Content) error {
	if !content.CompositionType.Valid() {
		return fmt.Errorf("%w: compositionType %q", ErrInvalidContent, content.CompositionType)
	}
	for _, f := range content.MediaFiles {
		if !f.Type.Valid() {
			return fmt.Errorf("%w: media file type %q", ErrInvalidContent, f.Type)
		}
	}
	for _, el := range content.Elements {
		if !el.Type.Valid() {
			return fmt.Errorf("%w: element type %q", ErrInvalidContent, el.Type)
		}
	}
	return nil
}
