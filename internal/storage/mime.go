package storage

import (
	"alcyxob/composer/internal/domain"
	"errors"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupportedType = errors.New("unsupported content type")

var allowedMIMETypes = map[string]domain.MediaType{
	"image/jpeg":      domain.MediaImage,
	"image/png":       domain.MediaImage,
	"image/gif":       domain.MediaImage,
	"image/webp":      domain.MediaImage,
	"video/mp4":       domain.MediaVideo,
	"video/webm":      domain.MediaVideo,
	"video/quicktime": domain.MediaVideo,
}

// SniffedType is the outcome of content detection on an upload.
type SniffedType struct {
	MIME      string
	MediaType domain.MediaType
}

// DetectContentType sniffs the leading bytes of r and rewinds it. When the
// content is not recognised the declared Content-Type is used instead.
func DetectContentType(r io.ReadSeeker, declared string) (SniffedType, error) {
	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return SniffedType{}, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return SniffedType{}, err
	}

	for candidate, t := range allowedMIMETypes {
		if detected.Is(candidate) {
			return SniffedType{MIME: candidate, MediaType: t}, nil
		}
	}

	if detected.Is("application/octet-stream") {
		if base := baseMediaType(declared); base != "" {
			if t, ok := allowedMIMETypes[base]; ok {
				return SniffedType{MIME: base, MediaType: t}, nil
			}
		}
	}
	return SniffedType{MIME: detected.String()}, ErrUnsupportedType
}

func baseMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(base)
}
