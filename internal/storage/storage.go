package storage

import (
	"alcyxob/composer/internal/domain"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// DefaultPresignedURLExpiry bounds presigned download URLs handed out for /uploads.
const DefaultPresignedURLExpiry = 15 * time.Minute

var (
	ErrObjectNotFound = errors.New("object not found in storage")
	ErrInvalidKey     = errors.New("invalid object key")
)

// ObjectKey locates a stored file: images/<filename> or videos/<filename>.
type ObjectKey struct {
	Type     domain.MediaType
	Filename string
}

func (k ObjectKey) Path() string {
	return path.Join(k.Type.Dir(), k.Filename)
}

// Validate rejects keys that could escape their media subtree.
func (k ObjectKey) Validate() error {
	if !k.Type.Valid() {
		return ErrInvalidKey
	}
	name := k.Filename
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ErrInvalidKey
	}
	return nil
}

// KeyFor returns the key of a media file referenced by a composition.
func KeyFor(f domain.MediaFile) ObjectKey {
	return ObjectKey{Type: f.Type, Filename: f.Filename}
}

// FileStorage defines the operations the service needs from a binary media store.
type FileStorage interface {
	// Save writes the content of r under key. size may be -1 when unknown.
	Save(ctx context.Context, key ObjectKey, r io.Reader, size int64, contentType string) error

	// Delete removes the object. A missing object is not an error.
	Delete(ctx context.Context, key ObjectKey) error

	// List returns the filenames stored for a media type.
	List(ctx context.Context, t domain.MediaType) ([]string, error)

	// Serve writes the object (or a redirect to it) to w. It returns
	// ErrObjectNotFound when nothing is stored under key.
	Serve(w http.ResponseWriter, r *http.Request, key ObjectKey) error
}
