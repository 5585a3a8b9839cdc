// Package editor holds the client-side editing session for one composition:
// local element and media state, selection, viewport, and the save cycle
// against the composition API.
package editor

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/normalize"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotLoaded      = errors.New("editor: no composition loaded")
	ErrSaveInProgress = errors.New("editor: save in progress")
	ErrUnknownElement = errors.New("editor: unknown element")
	ErrUnknownMedia   = errors.New("editor: unknown media file")
	ErrInvalidEdit    = errors.New("editor: invalid edit")
)

// State is the lifecycle position of a session.
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateDirty
	StateSaving
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Placement defaults for newly added overlays.
const (
	newTextX       = 100.0
	newTextY       = 100.0
	newTextContent = "Double click to edit"
	newShapeX      = 150.0
	newShapeY      = 150.0

	zoomFactor = 1.1

	minFontSize  = 12.0
	minDimension = 5.0

	transformFontSize    = 24.0
	transformShapeSize   = 100.0
	transformMediaWidth  = 200.0
	transformMediaHeight = 150.0
)

// SelectionKind tells what a Selection points at.
type SelectionKind int

const (
	SelectNone SelectionKind = iota
	SelectElement
	SelectMedia
)

// Selection is the single selected item, if any.
type Selection struct {
	Kind       SelectionKind
	ElementID  string
	MediaIndex int
}

// Viewport is presentation-only zoom and pan. It is never saved.
type Viewport struct {
	Scale float64
	X     float64
	Y     float64
}

// Transform is the result of a resize/rotate gesture: the node's new position
// and rotation plus the scale factors accumulated during the gesture.
type Transform struct {
	X, Y           float64
	ScaleX, ScaleY float64
	Rotation       float64
}

// Session edits one composition. All methods are safe for concurrent use.
type Session struct {
	api    API
	logger *zap.Logger
	newID  func() string

	mu              sync.Mutex
	state           State
	composition     domain.Composition
	elements        []domain.Element
	mediaFiles      []domain.MediaFile
	backgroundColor string
	compositionType domain.CompositionType
	selection       Selection
	viewport        Viewport
	lastErr         error
}

func NewSession(api API, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		api:      api,
		logger:   logger,
		newID:    uuid.NewString,
		viewport: Viewport{Scale: 1},
	}
}

// --- Lifecycle ---

// Load fetches the composition and replaces all local state with its
// normalized content.
func (s *Session) Load(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.state == StateSaving {
		s.mu.Unlock()
		return ErrSaveInProgress
	}
	s.mu.Unlock()

	composition, err := s.api.GetComposition(ctx, id)
	if err != nil {
		return fmt.Errorf("load composition %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(composition)
	s.selection = Selection{}
	s.viewport = Viewport{Scale: 1}
	s.lastErr = nil
	s.setState(StateLoaded)
	return nil
}

// Save sends the entire local state and, on success, adopts the server's
// returned document. On failure the session moves to StateError and keeps the
// local edits so the save can be retried.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateUnloaded:
		s.mu.Unlock()
		return ErrNotLoaded
	case StateSaving:
		s.mu.Unlock()
		return ErrSaveInProgress
	}
	id := s.composition.ID.Hex()
	req := SaveRequest{
		CompositionType: string(s.compositionType),
		BackgroundColor: s.backgroundColor,
		Elements:        slices.Clone(s.elements),
		MediaFiles:      slices.Clone(s.mediaFiles),
	}
	if s.composition.Title != "" {
		title := s.composition.Title
		req.Title = &title
	}
	s.setState(StateSaving)
	s.mu.Unlock()

	saved, err := s.api.UpdateComposition(ctx, id, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		s.setState(StateError)
		s.logger.Warn("save failed", zap.String("compositionId", id), zap.Error(err))
		return fmt.Errorf("save composition %s: %w", id, err)
	}
	s.apply(saved)
	s.dropStaleSelection()
	s.lastErr = nil
	s.setState(StateLoaded)
	return nil
}

// UploadMedia attaches a file through the API. The media files returned by the
// server replace the local list; other unsaved edits are kept.
func (s *Session) UploadMedia(ctx context.Context, upload MediaUpload) error {
	s.mu.Lock()
	if err := s.editable(); err != nil {
		s.mu.Unlock()
		return err
	}
	id := s.composition.ID.Hex()
	s.mu.Unlock()

	updated, err := s.api.AttachMedia(ctx, id, upload)
	if err != nil {
		return fmt.Errorf("upload %s: %w", upload.Filename, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaFiles = normalizeMedia(updated.MediaFiles)
	s.composition.MediaFiles = slices.Clone(s.mediaFiles)
	s.dropStaleSelection()
	// The upload reached the server, but edits from the failed save are still unsaved.
	s.lastErr = nil
	if s.state == StateError {
		s.setState(StateDirty)
	}
	return nil
}

// --- Elements ---

// AddText appends a text overlay with the default content and selects it.
func (s *Session) AddText() (string, error) {
	return s.addElement(normalize.Raw{
		"type": string(domain.ElementText),
		"text": newTextContent,
		"x":    newTextX,
		"y":    newTextY,
	})
}

// AddShape appends a rect or circle and selects it.
func (s *Session) AddShape(shape domain.ElementType) (string, error) {
	if shape != domain.ElementRect && shape != domain.ElementCircle {
		return "", fmt.Errorf("%w: %q is not a shape", ErrInvalidEdit, shape)
	}
	return s.addElement(normalize.Raw{
		"type": string(shape),
		"x":    newShapeX,
		"y":    newShapeY,
	})
}

func (s *Session) addElement(raw normalize.Raw) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return "", err
	}
	raw["id"] = "element-" + s.newID()
	el := normalize.Element(raw)
	s.elements = append(s.elements, el)
	s.selection = Selection{Kind: SelectElement, ElementID: el.ID}
	s.markDirty()
	return el.ID, nil
}

// MoveElement records the end of a drag.
func (s *Session) MoveElement(id string, x, y float64) error {
	return s.updateElement(id, func(el *domain.Element) error {
		el.X, el.Y = x, y
		return nil
	})
}

// TransformElement records the end of a resize/rotate gesture. Text scales its
// font size by ScaleX; shapes scale width and height independently.
func (s *Session) TransformElement(id string, t Transform) error {
	return s.updateElement(id, func(el *domain.Element) error {
		el.X, el.Y = t.X, t.Y
		el.Rotation = t.Rotation
		if el.Type == domain.ElementText {
			size := math.Max(minFontSize, orDefault(el.FontSize, transformFontSize)*t.ScaleX)
			el.FontSize = &size
			return nil
		}
		width := math.Max(minDimension, orDefault(el.Width, transformShapeSize)*t.ScaleX)
		height := math.Max(minDimension, orDefault(el.Height, transformShapeSize)*t.ScaleY)
		el.Width, el.Height = &width, &height
		return nil
	})
}

// SetText replaces the content of a text element.
func (s *Session) SetText(id, text string) error {
	return s.updateElement(id, func(el *domain.Element) error {
		if el.Type != domain.ElementText {
			return fmt.Errorf("%w: element %s is not text", ErrInvalidEdit, id)
		}
		el.Text = &text
		return nil
	})
}

func (s *Session) updateElement(id string, edit func(*domain.Element) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	idx := s.elementIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	el := s.elements[idx]
	if err := edit(&el); err != nil {
		return err
	}
	s.elements[idx] = normalize.Renormalize(el)
	s.markDirty()
	return nil
}

func (s *Session) DeleteElement(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	return s.deleteElement(id)
}

// --- Media files ---

func (s *Session) MoveMedia(index int, x, y float64) error {
	return s.updateMedia(index, func(f *domain.MediaFile) {
		f.X, f.Y = x, y
	})
}

func (s *Session) TransformMedia(index int, t Transform) error {
	return s.updateMedia(index, func(f *domain.MediaFile) {
		f.X, f.Y = t.X, t.Y
		f.Rotation = t.Rotation
		f.Width = math.Max(minDimension, nonZero(f.Width, transformMediaWidth)*t.ScaleX)
		f.Height = math.Max(minDimension, nonZero(f.Height, transformMediaHeight)*t.ScaleY)
	})
}

func (s *Session) updateMedia(index int, edit func(*domain.MediaFile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.mediaFiles) {
		return fmt.Errorf("%w: index %d", ErrUnknownMedia, index)
	}
	f := s.mediaFiles[index]
	edit(&f)
	s.mediaFiles[index] = normalize.RenormalizeMedia(f, index)
	s.markDirty()
	return nil
}

// RemoveMedia drops the reference locally. The stored file is only removed
// when the whole composition is deleted.
func (s *Session) RemoveMedia(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	return s.removeMedia(index)
}

// DeleteSelected removes whatever is selected. It is a no-op without a selection.
func (s *Session) DeleteSelected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	switch s.selection.Kind {
	case SelectElement:
		return s.deleteElement(s.selection.ElementID)
	case SelectMedia:
		return s.removeMedia(s.selection.MediaIndex)
	}
	return nil
}

// --- Canvas settings ---

func (s *Session) SetBackgroundColor(color string) error {
	color = strings.TrimSpace(color)
	if color == "" {
		return fmt.Errorf("%w: background color is empty", ErrInvalidEdit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.backgroundColor = color
	s.markDirty()
	return nil
}

func (s *Session) SetCompositionType(t domain.CompositionType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown composition type %q", ErrInvalidEdit, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.compositionType = t
	s.markDirty()
	return nil
}

// --- Selection ---

// SelectElement selects an overlay. Selection never dirties the session.
func (s *Session) SelectElement(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elementIndex(id) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	s.selection = Selection{Kind: SelectElement, ElementID: id}
	return nil
}

func (s *Session) SelectMedia(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.mediaFiles) {
		return fmt.Errorf("%w: index %d", ErrUnknownMedia, index)
	}
	s.selection = Selection{Kind: SelectMedia, MediaIndex: index}
	return nil
}

// ClearSelection is what a click on the empty canvas does.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.selection = Selection{}
	s.mu.Unlock()
}

// --- Viewport ---

// Zoom applies one wheel step anchored at the pointer, so the canvas point
// under the pointer stays put. A positive deltaY zooms out.
func (s *Session) Zoom(pointerX, pointerY, deltaY float64) Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.viewport
	anchorX := (pointerX - old.X) / old.Scale
	anchorY := (pointerY - old.Y) / old.Scale

	scale := old.Scale * zoomFactor
	if deltaY > 0 {
		scale = old.Scale / zoomFactor
	}
	s.viewport = Viewport{
		Scale: scale,
		X:     pointerX - anchorX*scale,
		Y:     pointerY - anchorY*scale,
	}
	return s.viewport
}

func (s *Session) ResetZoom() {
	s.mu.Lock()
	s.viewport = Viewport{Scale: 1}
	s.mu.Unlock()
}

// --- Accessors ---

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the last failed save.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) CompositionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnloaded {
		return ""
	}
	return s.composition.ID.Hex()
}

func (s *Session) Elements() []domain.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.elements)
}

func (s *Session) MediaFiles() []domain.MediaFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.mediaFiles)
}

// Background returns the media file drawn behind everything else.
func (s *Session) Background() (domain.MediaFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := domain.BackgroundIndex(s.mediaFiles)
	if idx < 0 {
		return domain.MediaFile{}, false
	}
	return s.mediaFiles[idx], true
}

func (s *Session) BackgroundColor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backgroundColor
}

func (s *Session) CompositionType() domain.CompositionType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compositionType
}

func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func (s *Session) Viewport() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// --- internals, called with mu held ---

func (s *Session) editable() error {
	switch s.state {
	case StateUnloaded:
		return ErrNotLoaded
	case StateSaving:
		return ErrSaveInProgress
	}
	return nil
}

func (s *Session) markDirty() {
	s.setState(StateDirty)
}

func (s *Session) setState(next State) {
	if s.state != next {
		s.logger.Debug("editor state",
			zap.String("from", s.state.String()),
			zap.String("to", next.String()))
	}
	s.state = next
}

func (s *Session) apply(c *domain.Composition) {
	s.composition = *c
	s.elements = make([]domain.Element, 0, len(c.Elements))
	for _, el := range c.Elements {
		s.elements = append(s.elements, normalize.Renormalize(el))
	}
	s.mediaFiles = normalizeMedia(c.MediaFiles)
	s.backgroundColor = c.BackgroundColor
	if s.backgroundColor == "" {
		s.backgroundColor = domain.DefaultBackgroundColor
	}
	s.compositionType = c.CompositionType
	if !s.compositionType.Valid() {
		s.compositionType = domain.CompositionCustom
	}
}

func (s *Session) deleteElement(id string) error {
	idx := s.elementIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	s.elements = slices.Delete(s.elements, idx, idx+1)
	if s.selection.Kind == SelectElement && s.selection.ElementID == id {
		s.selection = Selection{}
	}
	s.markDirty()
	return nil
}

func (s *Session) removeMedia(index int) error {
	if index < 0 || index >= len(s.mediaFiles) {
		return fmt.Errorf("%w: index %d", ErrUnknownMedia, index)
	}
	s.mediaFiles = slices.Delete(s.mediaFiles, index, index+1)
	if s.selection.Kind == SelectMedia {
		switch {
		case s.selection.MediaIndex == index:
			s.selection = Selection{}
		case s.selection.MediaIndex > index:
			s.selection.MediaIndex--
		}
	}
	s.markDirty()
	return nil
}

func (s *Session) elementIndex(id string) int {
	return slices.IndexFunc(s.elements, func(el domain.Element) bool { return el.ID == id })
}

func (s *Session) dropStaleSelection() {
	switch s.selection.Kind {
	case SelectElement:
		if s.elementIndex(s.selection.ElementID) < 0 {
			s.selection = Selection{}
		}
	case SelectMedia:
		if s.selection.MediaIndex >= len(s.mediaFiles) {
			s.selection = Selection{}
		}
	}
}

func normalizeMedia(files []domain.MediaFile) []domain.MediaFile {
	out := make([]domain.MediaFile, 0, len(files))
	for i, f := range files {
		out = append(out, normalize.RenormalizeMedia(f, i))
	}
	return out
}

// orDefault treats a missing or zero value as unset, as the gesture math does.
func orDefault(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return nonZero(*v, fallback)
}

func nonZero(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
