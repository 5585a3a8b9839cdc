package api

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/normalize"
	"alcyxob/composer/internal/service"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CompositionHandler struct {
	compositionService service.CompositionService
}

func NewCompositionHandler(compositionService service.CompositionService) *CompositionHandler {
	return &CompositionHandler{compositionService: compositionService}
}

// --- DTOs ---

type CreateCompositionRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	CompositionType string `json:"compositionType"`
}

// UpdateCompositionRequest is the full desired state. Elements and media files
// are kept as raw records so the normalizer sees exactly what the client sent.
type UpdateCompositionRequest struct {
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	CompositionType string          `json:"compositionType"`
	BackgroundColor string          `json:"backgroundColor"`
	Elements        []normalize.Raw `json:"elements"`
	MediaFiles      []normalize.Raw `json:"mediaFiles"`
}

// --- Handler Methods ---

// ListCompositions godoc
// @Summary List compositions
// @Description Returns every composition, newest first.
// @Tags Media
// @Produce json
// @Success 200 {array} domain.Composition
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /media [get]
func (h *CompositionHandler) ListCompositions(c *gin.Context) {
	compositions, err := h.compositionService.ListCompositions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, compositions)
}

// GetComposition godoc
// @Summary Get a composition
// @Tags Media
// @Produce json
// @Param id path string true "Composition ID"
// @Success 200 {object} domain.Composition
// @Failure 404 {object} gin.H "Media not found"
// @Router /media/{id} [get]
func (h *CompositionHandler) GetComposition(c *gin.Context) {
	composition, err := h.compositionService.GetComposition(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, composition)
}

// CreateComposition godoc
// @Summary Create a composition
// @Description Only descriptive fields are accepted; content starts empty.
// @Tags Media
// @Accept json
// @Produce json
// @Param composition body CreateCompositionRequest false "Descriptive fields"
// @Success 201 {object} domain.Composition
// @Failure 400 {object} gin.H "Validation error"
// @Router /media [post]
func (h *CompositionHandler) CreateComposition(c *gin.Context) {
	var req CreateCompositionRequest
	// An empty body creates an untitled composition.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondValidation(c, "Invalid request body: "+err.Error())
		return
	}

	composition, err := h.compositionService.CreateComposition(c.Request.Context(), service.CreateCompositionInput{
		Title:           req.Title,
		Description:     req.Description,
		CompositionType: domain.CompositionType(req.CompositionType),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, composition)
}

// UpdateComposition godoc
// @Summary Replace the content of a composition
// @Description Every element and media file is normalized before it is stored.
// @Tags Media
// @Accept json
// @Produce json
// @Param id path string true "Composition ID"
// @Param composition body UpdateCompositionRequest true "Desired state"
// @Success 200 {object} domain.Composition
// @Failure 400 {object} gin.H "Validation error"
// @Failure 404 {object} gin.H "Media not found"
// @Router /media/{id} [put]
func (h *CompositionHandler) UpdateComposition(c *gin.Context) {
	var req UpdateCompositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body: "+err.Error())
		return
	}

	composition, err := h.compositionService.UpdateComposition(c.Request.Context(), c.Param("id"), service.UpdateCompositionInput{
		Title:           req.Title,
		Description:     req.Description,
		CompositionType: domain.CompositionType(req.CompositionType),
		BackgroundColor: req.BackgroundColor,
		Elements:        req.Elements,
		MediaFiles:      req.MediaFiles,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, composition)
}

// DeleteComposition godoc
// @Summary Delete a composition and its uploaded files
// @Tags Media
// @Produce json
// @Param id path string true "Composition ID"
// @Success 200 {object} gin.H "Media deleted successfully"
// @Failure 404 {object} gin.H "Media not found"
// @Router /media/{id} [delete]
func (h *CompositionHandler) DeleteComposition(c *gin.Context) {
	if err := h.compositionService.DeleteComposition(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Media deleted successfully"})
}
