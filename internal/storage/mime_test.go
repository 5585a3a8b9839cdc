package storage

import (
	"alcyxob/composer/internal/domain"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	mp4Header = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}
)

func TestDetectContentType(t *testing.T) {
	t.Run("png by content regardless of declared type", func(t *testing.T) {
		r := bytes.NewReader(pngHeader)
		got, err := DetectContentType(r, "video/mp4")
		require.NoError(t, err)
		assert.Equal(t, "image/png", got.MIME)
		assert.Equal(t, domain.MediaImage, got.MediaType)

		// Reader is rewound for the subsequent copy.
		rest, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, rest)
	})

	t.Run("mp4", func(t *testing.T) {
		got, err := DetectContentType(bytes.NewReader(mp4Header), "")
		require.NoError(t, err)
		assert.Equal(t, "video/mp4", got.MIME)
		assert.Equal(t, domain.MediaVideo, got.MediaType)
	})

	t.Run("unknown binary falls back to declared type", func(t *testing.T) {
		got, err := DetectContentType(bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03}), "video/webm; codecs=vp9")
		require.NoError(t, err)
		assert.Equal(t, "video/webm", got.MIME)
		assert.Equal(t, domain.MediaVideo, got.MediaType)
	})

	t.Run("unknown binary with unsupported declared type", func(t *testing.T) {
		_, err := DetectContentType(bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03}), "application/zip")
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("text is rejected even when declared as image", func(t *testing.T) {
		_, err := DetectContentType(bytes.NewReader([]byte("hello world")), "image/png")
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}
