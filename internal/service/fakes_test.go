package service

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/repository"
	"alcyxob/composer/internal/storage"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memRepo is an in-memory repository.CompositionRepository.
type memRepo struct {
	mu          sync.Mutex
	docs        map[primitive.ObjectID]domain.Composition
	clock       time.Time
	appendErr   error
	deleteCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{
		docs:  map[primitive.ObjectID]domain.Composition{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memRepo) Create(_ context.Context, seed *domain.Composition) (*domain.Composition, error) {
	if err := repository.ValidateContent(domain.Content{CompositionType: seed.CompositionType}); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *seed
	c.ID = primitive.NewObjectID()
	c.CreatedAt = r.tick()
	c.UpdatedAt = c.CreatedAt
	r.docs[c.ID] = c
	return &c, nil
}

func (r *memRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Composition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *memRepo) List(_ context.Context) ([]domain.Composition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Composition, 0, len(r.docs))
	for _, c := range r.docs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) Replace(_ context.Context, id primitive.ObjectID, content domain.Content) (*domain.Composition, error) {
	if err := repository.ValidateContent(content); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if content.Title != nil {
		c.Title = *content.Title
	}
	if content.Description != nil {
		c.Description = *content.Description
	}
	c.CompositionType = content.CompositionType
	c.BackgroundColor = content.BackgroundColor
	c.Elements = content.Elements
	c.MediaFiles = content.MediaFiles
	c.UpdatedAt = r.tick()
	r.docs[id] = c
	return &c, nil
}

func (r *memRepo) AppendMediaFiles(_ context.Context, id primitive.ObjectID, files ...domain.MediaFile) (*domain.Composition, error) {
	if r.appendErr != nil {
		return nil, r.appendErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.MediaFiles = append(append([]domain.MediaFile{}, c.MediaFiles...), files...)
	c.UpdatedAt = r.tick()
	r.docs[id] = c
	return &c, nil
}

func (r *memRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	if _, ok := r.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

// memFiles is an in-memory storage.FileStorage.
type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	saveErr error
	failOn  string
}

func newMemFiles() *memFiles {
	return &memFiles{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *memFiles) Save(_ context.Context, key storage.ObjectKey, r io.Reader, _ int64, contentType string) error {
	if f.saveErr != nil && (f.failOn == "" || f.failOn == string(key.Type)) {
		return f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key.Path()] = data
	f.types[key.Path()] = contentType
	return nil
}

func (f *memFiles) Delete(_ context.Context, key storage.ObjectKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key.Path())
	delete(f.objects, key.Path())
	return nil
}

func (f *memFiles) List(_ context.Context, t domain.MediaType) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (f *memFiles) Serve(http.ResponseWriter, *http.Request, storage.ObjectKey) error {
	return storage.ErrObjectNotFound
}

func (f *memFiles) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok
}

func (f *memFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}
