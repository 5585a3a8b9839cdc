package api

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/service"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	fieldMedia = "media"
	fieldImage = "image"
	fieldVideo = "video"

	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

// UploadLimits bounds multipart uploads.
type UploadLimits struct {
	MaxFileSize int64
	MaxFiles    int
}

type UploadHandler struct {
	attachmentService service.AttachmentService
	limits            UploadLimits
}

func NewUploadHandler(attachmentService service.AttachmentService, limits UploadLimits) *UploadHandler {
	return &UploadHandler{attachmentService: attachmentService, limits: limits}
}

// AttachMedia godoc
// @Summary Attach one uploaded file to a composition
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Composition ID"
// @Param media formData file true "Image or video"
// @Param fileType formData string false "image or video"
// @Param isBackground formData bool false "Use the image as canvas background"
// @Success 200 {object} domain.Composition
// @Failure 400 {object} gin.H "Validation error or unsupported media"
// @Failure 404 {object} gin.H "Media not found"
// @Router /media/{id}/add-media [post]
func (h *UploadHandler) AttachMedia(c *gin.Context) {
	form, ok := h.parseForm(c, 1, fieldMedia)
	if !ok {
		return
	}
	defer form.RemoveAll()

	isBackground, ok := optionalBool(c, form, "isBackground")
	if !ok {
		return
	}

	upload, closeFn, ok := h.openSingle(c, form, fieldMedia)
	if !ok {
		return
	}
	defer closeFn()

	composition, err := h.attachmentService.AttachMedia(c.Request.Context(), c.Param("id"), upload, service.AttachInput{
		RequestedType: domain.MediaType(strings.ToLower(formValue(form, "fileType"))),
		IsBackground:  isBackground,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, composition)
}

// BulkUpload godoc
// @Summary Upload an image and/or a video into a composition
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param image formData file false "Image"
// @Param video formData file false "Video"
// @Param mediaId formData string true "Composition ID"
// @Param isBackground formData bool false "Use the image as canvas background"
// @Success 200 {object} domain.Composition
// @Failure 400 {object} gin.H "Validation error or unsupported media"
// @Failure 404 {object} gin.H "Media not found"
// @Router /upload [post]
func (h *UploadHandler) BulkUpload(c *gin.Context) {
	form, ok := h.parseForm(c, h.limits.MaxFiles, fieldImage, fieldVideo)
	if !ok {
		return
	}
	defer form.RemoveAll()

	isBackground, ok := optionalBool(c, form, "isBackground")
	if !ok {
		return
	}

	input := service.BulkUploadInput{
		MediaID:      formValue(form, "mediaId"),
		IsBackground: isBackground,
	}
	for _, field := range []string{fieldImage, fieldVideo} {
		if len(form.File[field]) == 0 {
			continue
		}
		upload, closeFn, ok := h.openSingle(c, form, field)
		if !ok {
			return
		}
		defer closeFn()
		if field == fieldImage {
			input.Image = upload
		} else {
			input.Video = upload
		}
	}

	composition, err := h.attachmentService.BulkUpload(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, composition)
}

// parseForm reads the multipart body under the size limit and enforces the
// per-field and total file counts.
func (h *UploadHandler) parseForm(c *gin.Context, maxFiles int, fields ...string) (*multipart.Form, bool) {
	limit := h.limits.MaxFileSize*int64(max(1, maxFiles)) + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondUnsupported(c, service.ReasonTooLarge, fmt.Sprintf("request exceeds %d bytes", limit))
		case errors.Is(err, http.ErrNotMultipart):
			respondValidation(c, "Request must be multipart/form-data")
		default:
			respondValidation(c, "Invalid multipart form: "+err.Error())
		}
		return nil, false
	}
	form := c.Request.MultipartForm

	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f] = true
	}
	total := 0
	for field, headers := range form.File {
		if !allowed[field] {
			form.RemoveAll()
			respondValidation(c, fmt.Sprintf("Unexpected file field %q", field))
			return nil, false
		}
		if len(headers) > 1 {
			form.RemoveAll()
			respondUnsupported(c, service.ReasonTooManyFiles, fmt.Sprintf("field %q accepts one file", field))
			return nil, false
		}
		total += len(headers)
	}
	if total > max(1, maxFiles) {
		form.RemoveAll()
		respondUnsupported(c, service.ReasonTooManyFiles, fmt.Sprintf("at most %d files per request", maxFiles))
		return nil, false
	}
	return form, true
}

// openSingle opens the file sent in field. A missing file yields a nil upload
// so the service can report it.
func (h *UploadHandler) openSingle(c *gin.Context, form *multipart.Form, field string) (*service.Upload, func(), bool) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, func() {}, true
	}
	fh := headers[0]
	if fh.Size > h.limits.MaxFileSize {
		respondUnsupported(c, service.ReasonTooLarge, fmt.Sprintf("%s exceeds %d bytes", fh.Filename, h.limits.MaxFileSize))
		return nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, fmt.Errorf("%w: open upload: %w", service.ErrStorage, err))
		return nil, nil, false
	}
	return &service.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     f,
	}, func() { _ = f.Close() }, true
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func optionalBool(c *gin.Context, form *multipart.Form, key string) (*bool, bool) {
	raw := formValue(form, key)
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		respondValidation(c, fmt.Sprintf("%s must be true or false", key))
		return nil, false
	}
	return &b, true
}
