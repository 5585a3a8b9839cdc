package storage

import (
	"alcyxob/composer/internal/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const partSuffix = ".part"

// localStorage keeps files on disk under root/images and root/videos.
type localStorage struct {
	root        string
	cacheMaxAge time.Duration
}

// NewLocalStorage creates the media subtrees under root if they do not exist.
func NewLocalStorage(root string, cacheMaxAge time.Duration) (FileStorage, error) {
	for _, t := range []domain.MediaType{domain.MediaImage, domain.MediaVideo} {
		if err := os.MkdirAll(filepath.Join(root, t.Dir()), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", t.Dir(), err)
		}
	}
	return &localStorage{root: root, cacheMaxAge: cacheMaxAge}, nil
}

func (s *localStorage) path(key ObjectKey) string {
	return filepath.Join(s.root, filepath.FromSlash(key.Path()))
}

// Save streams r into a .part file, syncs it and renames it into place so a
// crashed upload never leaves a truncated file under the final name.
func (s *localStorage) Save(ctx context.Context, key ObjectKey, r io.Reader, size int64, contentType string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	final := s.path(key)
	tmp := final + partSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *localStorage) Delete(ctx context.Context, key ObjectKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *localStorage) List(ctx context.Context, t domain.MediaType) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, t.Dir()))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), partSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Serve writes the file with Last-Modified and range support from http.ServeContent.
func (s *localStorage) Serve(w http.ResponseWriter, r *http.Request, key ObjectKey) error {
	if err := key.Validate(); err != nil {
		return ErrObjectNotFound
	}
	f, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return ErrObjectNotFound
	}

	setCacheHeaders(w, s.cacheMaxAge)
	w.Header().Set("ETag", fmt.Sprintf(`"%x-%x"`, info.ModTime().UnixNano(), info.Size()))
	http.ServeContent(w, r, key.Filename, info.ModTime(), f)
	return nil
}

func setCacheHeaders(w http.ResponseWriter, maxAge time.Duration) {
	if maxAge > 0 {
		w.Header().Set("Cache-Control", cacheControlValue(maxAge))
	}
}

func cacheControlValue(maxAge time.Duration) string {
	return fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
}
