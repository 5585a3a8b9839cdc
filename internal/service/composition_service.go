package service

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/normalize"
	"alcyxob/composer/internal/repository"
	"alcyxob/composer/internal/storage"
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const elementIDPrefix = "element-"

// CreateCompositionInput carries the descriptive fields accepted on create.
type CreateCompositionInput struct {
	Title           string
	Description     string
	CompositionType domain.CompositionType
}

// UpdateCompositionInput is the full desired state sent by the editor on save.
// Elements and MediaFiles are raw records; every entry is normalized before it
// is stored. An empty CompositionType or BackgroundColor keeps the stored value.
type UpdateCompositionInput struct {
	Title           *string
	Description     *string
	CompositionType domain.CompositionType
	BackgroundColor string
	Elements        []normalize.Raw
	MediaFiles      []normalize.Raw
}

type CompositionService interface {
	CreateComposition(ctx context.Context, input CreateCompositionInput) (*domain.Composition, error)
	GetComposition(ctx context.Context, id string) (*domain.Composition, error)
	ListCompositions(ctx context.Context) ([]domain.Composition, error)
	UpdateComposition(ctx context.Context, id string, input UpdateCompositionInput) (*domain.Composition, error)
	DeleteComposition(ctx context.Context, id string) error
}

// compositionService implements the CompositionService interface.
type compositionService struct {
	compositionRepo repository.CompositionRepository
	files           storage.FileStorage
	newID           func() string
	logger          *zap.Logger
}

// NewCompositionService creates a new instance of compositionService.
func NewCompositionService(compositionRepo repository.CompositionRepository, files storage.FileStorage, logger *zap.Logger) CompositionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &compositionService{
		compositionRepo: compositionRepo,
		files:           files,
		newID:           uuid.NewString,
		logger:          logger,
	}
}

// CreateComposition stores an empty composition. Content is only added by
// later update and attach calls.
func (s *compositionService) CreateComposition(ctx context.Context, input CreateCompositionInput) (*domain.Composition, error) {
	compositionType := input.CompositionType
	if compositionType == "" {
		compositionType = domain.CompositionCustom
	}
	if !compositionType.Valid() {
		return nil, validationError("compositionType must be one of custom, pip, piv")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = domain.DefaultTitle
	}

	created, err := s.compositionRepo.Create(ctx, &domain.Composition{
		Title:           title,
		Description:     input.Description,
		CompositionType: compositionType,
		BackgroundColor: domain.DefaultBackgroundColor,
		MediaFiles:      []domain.MediaFile{},
		Elements:        []domain.Element{},
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.logger.Info("composition created", zap.String("compositionId", created.ID.Hex()))
	return created, nil
}

func (s *compositionService) GetComposition(ctx context.Context, id string) (*domain.Composition, error) {
	oid, err := parseCompositionID(id)
	if err != nil {
		return nil, err
	}
	composition, err := s.compositionRepo.GetByID(ctx, oid)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return composition, nil
}

// ListCompositions returns every composition, newest first.
func (s *compositionService) ListCompositions(ctx context.Context) ([]domain.Composition, error) {
	compositions, err := s.compositionRepo.List(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if compositions == nil {
		compositions = []domain.Composition{}
	}
	return compositions, nil
}

// UpdateComposition normalizes the desired state and replaces the stored
// content with it. Arrays are replaced as a whole.
func (s *compositionService) UpdateComposition(ctx context.Context, id string, input UpdateCompositionInput) (*domain.Composition, error) {
	oid, err := parseCompositionID(id)
	if err != nil {
		return nil, err
	}
	existing, err := s.compositionRepo.GetByID(ctx, oid)
	if err != nil {
		return nil, mapRepoError(err)
	}

	compositionType := input.CompositionType
	if compositionType == "" {
		compositionType = existing.CompositionType
	}
	if !compositionType.Valid() {
		return nil, validationError("compositionType %q is not one of custom, pip, piv", compositionType)
	}

	backgroundColor := strings.TrimSpace(input.BackgroundColor)
	if backgroundColor == "" {
		backgroundColor = existing.BackgroundColor
	}

	elements, err := s.normalizeElements(input.Elements)
	if err != nil {
		return nil, err
	}
	mediaFiles, err := normalizeMediaFiles(input.MediaFiles, existing.MediaFiles)
	if err != nil {
		return nil, err
	}

	content := domain.Content{
		Title:           nonBlank(input.Title),
		Description:     input.Description,
		CompositionType: compositionType,
		BackgroundColor: backgroundColor,
		MediaFiles:      mediaFiles,
		Elements:        elements,
	}

	updated, err := s.compositionRepo.Replace(ctx, oid, content)
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.logger.Debug("composition updated",
		zap.String("compositionId", id),
		zap.Int("elements", len(elements)),
		zap.Int("mediaFiles", len(mediaFiles)))
	return updated, nil
}

// DeleteComposition removes the files referenced by the composition and then
// the document itself. A file that is already gone does not stop the delete.
func (s *compositionService) DeleteComposition(ctx context.Context, id string) error {
	oid, err := parseCompositionID(id)
	if err != nil {
		return err
	}
	composition, err := s.compositionRepo.GetByID(ctx, oid)
	if err != nil {
		return mapRepoError(err)
	}

	for _, f := range composition.MediaFiles {
		if f.Filename == "" {
			continue
		}
		if err := s.files.Delete(ctx, storage.KeyFor(f)); err != nil {
			s.logger.Warn("failed to delete media file",
				zap.String("compositionId", id),
				zap.String("filename", f.Filename),
				zap.Error(err))
		}
	}

	if err := s.compositionRepo.Delete(ctx, oid); err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("composition deleted", zap.String("compositionId", id))
	return nil
}

func (s *compositionService) normalizeElements(raws []normalize.Raw) ([]domain.Element, error) {
	elements := make([]domain.Element, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for i, raw := range raws {
		el := normalize.Element(raw)
		if !el.Type.Valid() {
			return nil, validationError("element %d: type %q is not one of text, rect, circle, image", i, el.Type)
		}
		if el.ID == "" {
			el.ID = elementIDPrefix + s.newID()
		}
		if _, dup := seen[el.ID]; dup {
			return nil, validationError("element %d: duplicate id %q", i, el.ID)
		}
		seen[el.ID] = struct{}{}
		elements = append(elements, el)
	}
	return elements, nil
}

// normalizeMediaFiles normalizes the submitted media list. Files only enter a
// composition through an upload, so every entry must name a stored file this
// composition already references; anything else could point the derived URL
// outside /uploads or make a later delete remove another composition's file.
func normalizeMediaFiles(raws []normalize.Raw, attached []domain.MediaFile) ([]domain.MediaFile, error) {
	known := make(map[string]struct{}, len(attached))
	for _, f := range attached {
		known[storage.KeyFor(f).Path()] = struct{}{}
	}

	files := normalize.MediaFiles(raws)
	for i, f := range files {
		if !f.Type.Valid() {
			return nil, validationError("media file %d: type %q is not one of image, video", i, f.Type)
		}
		key := storage.KeyFor(f)
		if err := key.Validate(); err != nil {
			return nil, validationError("media file %d: invalid filename %q", i, f.Filename)
		}
		if _, ok := known[key.Path()]; !ok {
			return nil, validationError("media file %d: %s is not attached to this composition", i, key.Path())
		}
	}
	return files, nil
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
