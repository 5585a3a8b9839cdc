package storage

import (
	"alcyxob/composer/internal/domain"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) (FileStorage, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewLocalStorage(root, time.Hour)
	require.NoError(t, err)
	return s, root
}

func TestLocalStorage_CreatesMediaDirectories(t *testing.T) {
	_, root := newTestLocal(t)
	for _, dir := range []string{"images", "videos"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLocalStorage_SaveListDelete(t *testing.T) {
	s, root := newTestLocal(t)
	ctx := context.Background()
	key := ObjectKey{Type: domain.MediaImage, Filename: "cat-1-abcdef12.png"}

	require.NoError(t, s.Save(ctx, key, strings.NewReader("pixels"), 6, "image/png"))

	data, err := os.ReadFile(filepath.Join(root, "images", "cat-1-abcdef12.png"))
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
	_, err = os.Stat(filepath.Join(root, "images", "cat-1-abcdef12.png.part"))
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")

	names, err := s.List(ctx, domain.MediaImage)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat-1-abcdef12.png"}, names)

	videos, err := s.List(ctx, domain.MediaVideo)
	require.NoError(t, err)
	assert.Empty(t, videos)

	require.NoError(t, s.Delete(ctx, key))
	names, err = s.List(ctx, domain.MediaImage)
	require.NoError(t, err)
	assert.Empty(t, names)

	// Deleting again is not an error.
	require.NoError(t, s.Delete(ctx, key))
}

func TestLocalStorage_ListSkipsPartialFiles(t *testing.T) {
	s, root := newTestLocal(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "videos", "clip.mp4.part"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "videos", "clip.mp4"), []byte("x"), 0o644))

	names, err := s.List(context.Background(), domain.MediaVideo)
	require.NoError(t, err)
	assert.Equal(t, []string{"clip.mp4"}, names)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, _ := newTestLocal(t)
	for _, name := range []string{"../secret", "a/b.png", `..\x`, "", ".."} {
		err := s.Save(context.Background(), ObjectKey{Type: domain.MediaImage, Filename: name}, strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, ErrInvalidKey, name)
	}
	err := s.Save(context.Background(), ObjectKey{Type: "audio", Filename: "a.mp3"}, strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocalStorage_Serve(t *testing.T) {
	s, _ := newTestLocal(t)
	key := ObjectKey{Type: domain.MediaImage, Filename: "a.png"}
	require.NoError(t, s.Save(context.Background(), key, strings.NewReader("pixels"), 6, "image/png"))

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/uploads/images/a.png", nil)
		require.NoError(t, s.Serve(w, r, key))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pixels", w.Body.String())
		assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
		assert.NotEmpty(t, w.Header().Get("Last-Modified"))
		assert.NotEmpty(t, w.Header().Get("ETag"))
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/uploads/images/b.png", nil)
		err := s.Serve(w, r, ObjectKey{Type: domain.MediaImage, Filename: "b.png"})
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("invalid key", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/uploads/images/x", nil)
		err := s.Serve(w, r, ObjectKey{Type: domain.MediaImage, Filename: ".."})
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})
}
