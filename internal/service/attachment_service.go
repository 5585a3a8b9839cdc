package service

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/normalize"
	"alcyxob/composer/internal/repository"
	"alcyxob/composer/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultMaxFileSize is the per-file upload limit (100MB).
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// Upload describes one file received in a multipart request.
type Upload struct {
	Filename    string // as sent by the client
	Size        int64
	ContentType string // declared by the client
	Content     io.ReadSeeker
}

// AttachInput carries the optional form fields of a single-file attach.
type AttachInput struct {
	RequestedType domain.MediaType
	IsBackground  *bool
}

// BulkUploadInput carries the files of a bulk upload: at most one image and one video.
type BulkUploadInput struct {
	MediaID      string
	Image        *Upload
	Video        *Upload
	IsBackground *bool
}

type AttachmentConfig struct {
	MaxFileSize int64
	Clock       func() time.Time
}

type AttachmentService interface {
	AttachMedia(ctx context.Context, compositionID string, upload *Upload, input AttachInput) (*domain.Composition, error)
	BulkUpload(ctx context.Context, input BulkUploadInput) (*domain.Composition, error)
}

// attachmentService stores uploaded files and appends references to compositions.
type attachmentService struct {
	compositionRepo repository.CompositionRepository
	files           storage.FileStorage
	maxFileSize     int64
	clock           func() time.Time
	logger          *zap.Logger
}

// NewAttachmentService creates a new instance of attachmentService.
func NewAttachmentService(compositionRepo repository.CompositionRepository, files storage.FileStorage, cfg AttachmentConfig, logger *zap.Logger) AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFileSize := cfg.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &attachmentService{
		compositionRepo: compositionRepo,
		files:           files,
		maxFileSize:     maxFileSize,
		clock:           clock,
		logger:          logger,
	}
}

// stagedFile is an uploaded file that passed validation and is ready to store.
type stagedFile struct {
	upload *Upload
	mime   string
	ref    domain.MediaFile
}

// AttachMedia stores one uploaded file and appends it to the composition.
// The type comes from the requested type when given, else from the detected
// content. Default placement is staggered by the number of files already attached.
func (s *attachmentService) AttachMedia(ctx context.Context, compositionID string, upload *Upload, input AttachInput) (*domain.Composition, error) {
	if upload == nil || upload.Content == nil {
		return nil, validationError("no file uploaded")
	}
	if input.RequestedType != "" && !input.RequestedType.Valid() {
		return nil, validationError("fileType %q is not one of image, video", input.RequestedType)
	}

	oid, composition, err := s.load(ctx, compositionID)
	if err != nil {
		return nil, err
	}

	staged, err := s.stage(upload, input.RequestedType)
	if err != nil {
		return nil, err
	}
	existing := len(composition.MediaFiles)
	place(staged, existing, input.IsBackground)

	return s.commit(ctx, oid, []*stagedFile{staged})
}

// BulkUpload stores an image and/or a video and appends both in one write.
func (s *attachmentService) BulkUpload(ctx context.Context, input BulkUploadInput) (*domain.Composition, error) {
	if strings.TrimSpace(input.MediaID) == "" {
		return nil, validationError("mediaId is required")
	}
	if input.Image == nil && input.Video == nil {
		return nil, validationError("no files uploaded")
	}

	oid, composition, err := s.load(ctx, input.MediaID)
	if err != nil {
		return nil, err
	}

	var staged []*stagedFile
	for _, part := range []struct {
		upload *Upload
		kind   domain.MediaType
	}{{input.Image, domain.MediaImage}, {input.Video, domain.MediaVideo}} {
		if part.upload == nil {
			continue
		}
		if part.upload.Content == nil {
			return nil, validationError("%s upload has no content", part.kind)
		}
		f, err := s.stage(part.upload, part.kind)
		if err != nil {
			return nil, err
		}
		place(f, len(composition.MediaFiles)+len(staged), input.IsBackground)
		staged = append(staged, f)
	}

	return s.commit(ctx, oid, staged)
}

func (s *attachmentService) load(ctx context.Context, id string) (primitive.ObjectID, *domain.Composition, error) {
	oid, err := parseCompositionID(id)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	composition, err := s.compositionRepo.GetByID(ctx, oid)
	if err != nil {
		return primitive.NilObjectID, nil, mapRepoError(err)
	}
	return oid, composition, nil
}

// stage checks size and content type and picks the stored filename.
func (s *attachmentService) stage(upload *Upload, want domain.MediaType) (*stagedFile, error) {
	if upload.Size > s.maxFileSize {
		return nil, NewUnsupportedMedia(ReasonTooLarge, "%s exceeds %d bytes", upload.Filename, s.maxFileSize)
	}

	sniffed, err := storage.DetectContentType(upload.Content, upload.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return nil, NewUnsupportedMedia(ReasonWrongType, "%s has type %s", upload.Filename, sniffed.MIME)
		}
		return nil, fmt.Errorf("%w: read upload: %w", ErrStorage, err)
	}

	mediaType := sniffed.MediaType
	if want != "" && want != mediaType {
		return nil, NewUnsupportedMedia(ReasonWrongType, "%s is %s, not %s", upload.Filename, sniffed.MIME, want)
	}

	filename := storage.UniqueFilename(upload.Filename, s.clock())
	return &stagedFile{
		upload: upload,
		mime:   sniffed.MIME,
		ref: domain.MediaFile{
			Type:     mediaType,
			Filename: filename,
			URL:      domain.MediaURL(mediaType, filename),
		},
	}, nil
}

// place applies the default geometry and background policy for the file
// that will sit at position index.
func place(f *stagedFile, index int, isBackground *bool) {
	offset := normalize.MediaOffset(index)
	width, height := normalize.MediaSize(f.ref.Type)
	f.ref.X, f.ref.Y = offset, offset
	f.ref.Width, f.ref.Height = width, height
	f.ref.IsBackground = domain.ResolveBackground(f.ref.Type, isBackground, index)
}

// commit writes the files and appends their references. Files already
// written are removed again when a later step fails.
func (s *attachmentService) commit(ctx context.Context, oid primitive.ObjectID, staged []*stagedFile) (*domain.Composition, error) {
	saved := make([]storage.ObjectKey, 0, len(staged))
	refs := make([]domain.MediaFile, 0, len(staged))

	for _, f := range staged {
		key := storage.KeyFor(f.ref)
		if err := s.files.Save(ctx, key, f.upload.Content, f.upload.Size, f.mime); err != nil {
			s.logger.Error("failed to store upload", zap.String("key", key.Path()), zap.Error(err))
			s.cleanup(ctx, saved)
			return nil, fmt.Errorf("%w: store %s: %w", ErrStorage, key.Path(), err)
		}
		saved = append(saved, key)
		refs = append(refs, f.ref)
	}

	updated, err := s.compositionRepo.AppendMediaFiles(ctx, oid, refs...)
	if err != nil {
		s.cleanup(ctx, saved)
		return nil, mapRepoError(err)
	}

	for _, key := range saved {
		s.logger.Info("media attached",
			zap.String("compositionId", oid.Hex()),
			zap.String("key", key.Path()))
	}
	return updated, nil
}

func (s *attachmentService) cleanup(ctx context.Context, keys []storage.ObjectKey) {
	for _, key := range keys {
		if err := s.files.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("key", key.Path()), zap.Error(err))
		}
	}
}
