package service

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/normalize"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestCompositionService(repo *memRepo, files *memFiles) *compositionService {
	svc := NewCompositionService(repo, files, nil).(*compositionService)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
	return svc
}

func TestCreateComposition_InitializesEmptyContent(t *testing.T) {
	svc := newTestCompositionService(newMemRepo(), newMemFiles())

	created, err := svc.CreateComposition(context.Background(), CreateCompositionInput{Title: "Demo"})
	require.NoError(t, err)
	assert.Equal(t, "Demo", created.Title)
	assert.Equal(t, domain.CompositionCustom, created.CompositionType)
	assert.Equal(t, "#ffffff", created.BackgroundColor)
	assert.NotNil(t, created.Elements)
	assert.Empty(t, created.Elements)
	assert.NotNil(t, created.MediaFiles)
	assert.Empty(t, created.MediaFiles)
}

func TestCreateComposition_DefaultTitleAndTypeValidation(t *testing.T) {
	svc := newTestCompositionService(newMemRepo(), newMemFiles())

	created, err := svc.CreateComposition(context.Background(), CreateCompositionInput{CompositionType: domain.CompositionPiV})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTitle, created.Title)
	assert.Equal(t, domain.CompositionPiV, created.CompositionType)

	_, err = svc.CreateComposition(context.Background(), CreateCompositionInput{CompositionType: "collage"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetComposition_NotFound(t *testing.T) {
	svc := newTestCompositionService(newMemRepo(), newMemFiles())

	_, err := svc.GetComposition(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrCompositionNotFound)

	_, err = svc.GetComposition(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, ErrCompositionNotFound)
}

func TestListCompositions_NewestFirst(t *testing.T) {
	svc := newTestCompositionService(newMemRepo(), newMemFiles())
	ctx := context.Background()

	_, err := svc.CreateComposition(ctx, CreateCompositionInput{Title: "first"})
	require.NoError(t, err)
	_, err = svc.CreateComposition(ctx, CreateCompositionInput{Title: "second"})
	require.NoError(t, err)

	list, err := svc.ListCompositions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)
}

func TestUpdateComposition_NormalizesTextElement(t *testing.T) {
	svc := newTestCompositionService(newMemRepo(), newMemFiles())
	ctx := context.Background()
	created, err := svc.CreateComposition(ctx, CreateCompositionInput{Title: "Demo"})
	require.NoError(t, err)

	updated, err := svc.UpdateComposition(ctx, created.ID.Hex(), UpdateCompositionInput{
		Elements: []normalize.Raw{{"type": "text", "text": "hi"}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Elements, 1)

	el := updated.Elements[0]
	assert.Equal(t, "element-id1", el.ID)
	assert.Equal(t, 24.0, *el.FontSize)
	assert.Equal(t, "Arial", *el.FontFamily)
	assert.Equal(t, "#ffffff", *el.Fill)
	assert.Equal(t, 1.0, el.Opacity)
	assert.Equal(t, 0.0, el.X)
	assert.Equal(t, 0.0, el.Y)
	assert.Equal(t, "hi", *el.Text)

	// Unset type and color keep the stored values.
	assert.Equal(t, domain.CompositionCustom, updated.CompositionType)
	assert.Equal(t, "#ffffff", updated.BackgroundColor)
	assert.Equal(t, "Demo", updated.Title)
}

func TestUpdateComposition_RectStringCoercion(t *testing.T) {
	svc := newTestCompositionService(newMemRepo(), newMemFiles())
	ctx := context.Background()
	created, err := svc.CreateComposition(ctx, CreateCompositionInput{Title: "Demo"})
	require.NoError(t, err)

	updated, err := svc.UpdateComposition(ctx, created.ID.Hex(), UpdateCompositionInput{
		CompositionType: domain.CompositionPiP,
		BackgroundColor: "#000000",
		Elements:        []normalize.Raw{{"id": "r1", "type": "rect", "x": "10", "width": "bad"}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Elements, 1)
	assert.Equal(t, 10.0, updated.Elements[0].X)
	assert.Equal(t, 100.0, *updated.Elements[0].Width)
	assert.Equal(t, domain.CompositionPiP, updated.CompositionType)
	assert.Equal(t, "#000000", updated.BackgroundColor)
}

func attachStored(t *testing.T, repo *memRepo, id primitive.ObjectID, files ...domain.MediaFile) {
	t.Helper()
	_, err := repo.AppendMediaFiles(context.Background(), id, files...)
	require.NoError(t, err)
}

func TestUpdateComposition_ReplacesArraysAndTitle(t *testing.T) {
	repo := newMemRepo()
	svc := newTestCompositionService(repo, newMemFiles())
	ctx := context.Background()
	created, err := svc.CreateComposition(ctx, CreateCompositionInput{Title: "Demo"})
	require.NoError(t, err)
	attachStored(t, repo, created.ID,
		domain.MediaFile{Type: domain.MediaImage, Filename: "a.png"},
		domain.MediaFile{Type: domain.MediaVideo, Filename: "v.mp4"})

	title := "  Renamed "
	_, err = svc.UpdateComposition(ctx, created.ID.Hex(), UpdateCompositionInput{
		Title: &title,
		Elements: []normalize.Raw{
			{"id": "a", "type": "circle"},
			{"id": "b", "type": "rect"},
		},
		MediaFiles: []normalize.Raw{
			{"type": "video", "filename": "v.mp4", "isBackground": true},
			{"type": "image", "filename": "a.png"},
		},
	})
	require.NoError(t, err)

	blank := "   "
	updated, err := svc.UpdateComposition(ctx, created.ID.Hex(), UpdateCompositionInput{
		Title:    &blank,
		Elements: []normalize.Raw{{"id": "b", "type": "rect"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	require.Len(t, updated.Elements, 1)
	assert.Equal(t, "b", updated.Elements[0].ID)
	assert.Empty(t, updated.MediaFiles)
}

func TestUpdateComposition_MediaFilesNormalized(t *testing.T) {
	repo := newMemRepo()
	svc := newTestCompositionService(repo, newMemFiles())
	ctx := context.Background()
	created, err := svc.CreateComposition(ctx, CreateCompositionInput{})
	require.NoError(t, err)
	attachStored(t, repo, created.ID,
		domain.MediaFile{Type: domain.MediaImage, Filename: "a.png"},
		domain.MediaFile{Type: domain.MediaVideo, Filename: "v.mp4"})

	updated, err := svc.UpdateComposition(ctx, created.ID.Hex(), UpdateCompositionInput{
		MediaFiles: []normalize.Raw{
			{"type": "image", "filename": "a.png", "isBackground": true},
			{"type": "video", "filename": "v.mp4", "isBackground": true, "x": "12"},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.MediaFiles, 2)
	assert.True(t, updated.MediaFiles[0].IsBackground)
	assert.Equal(t, "/uploads/images/a.png", updated.MediaFiles[0].URL)
	assert.False(t, updated.MediaFiles[1].IsBackground)
	assert.Equal(t, 12.0, updated.MediaFiles[1].X)
	assert.Equal(t, 80.0, updated.MediaFiles[1].Y)
	assert.Equal(t, 400.0, updated.MediaFiles[1].Width)
}

func TestUpdateComposition_ValidationErrors(t *testing.T) {
	svc := newTestCompositionService(newMemRepo(), newMemFiles())
	ctx := context.Background()
	created, err := svc.CreateComposition(ctx, CreateCompositionInput{})
	require.NoError(t, err)
	id := created.ID.Hex()

	tests := []struct {
		name  string
		input UpdateCompositionInput
	}{
		{"unknown composition type", UpdateCompositionInput{CompositionType: "grid"}},
		{"unknown element type", UpdateCompositionInput{Elements: []normalize.Raw{{"type": "triangle"}}}},
		{"missing element type", UpdateCompositionInput{Elements: []normalize.Raw{{"x": 1}}}},
		{"duplicate element ids", UpdateCompositionInput{Elements: []normalize.Raw{
			{"id": "x", "type": "rect"}, {"id": "x", "type": "text"},
		}}},
		{"unknown media type", UpdateCompositionInput{MediaFiles: []normalize.Raw{{"type": "audio", "filename": "a.mp3"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateComposition(ctx, id, tt.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUpdateComposition_RejectsForeignMediaFilenames(t *testing.T) {
	repo := newMemRepo()
	files := newMemFiles()
	svc := newTestCompositionService(repo, files)
	ctx := context.Background()

	owner, err := svc.CreateComposition(ctx, CreateCompositionInput{Title: "Owner"})
	require.NoError(t, err)
	files.objects["images/shared.png"] = []byte("x")
	attachStored(t, repo, owner.ID, domain.MediaFile{Type: domain.MediaImage, Filename: "shared.png"})

	other, err := svc.CreateComposition(ctx, CreateCompositionInput{Title: "Other"})
	require.NoError(t, err)
	attachStored(t, repo, other.ID, domain.MediaFile{Type: domain.MediaImage, Filename: "mine.png"})

	tests := []struct {
		name string
		raw  normalize.Raw
	}{
		{"parent traversal", normalize.Raw{"type": "image", "filename": "../../api/health"}},
		{"nested path", normalize.Raw{"type": "image", "filename": "sub/a.png"}},
		{"backslash", normalize.Raw{"type": "image", "filename": `..\\a.png`}},
		{"empty filename", normalize.Raw{"type": "image"}},
		{"another composition's file", normalize.Raw{"type": "image", "filename": "shared.png"}},
		{"own file under the other kind", normalize.Raw{"type": "video", "filename": "mine.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateComposition(ctx, other.ID.Hex(), UpdateCompositionInput{
				MediaFiles: []normalize.Raw{tt.raw},
			})
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	stored, err := svc.GetComposition(ctx, other.ID.Hex())
	require.NoError(t, err)
	require.Len(t, stored.MediaFiles, 1)
	assert.Equal(t, "mine.png", stored.MediaFiles[0].Filename)

	require.NoError(t, svc.DeleteComposition(ctx, other.ID.Hex()))
	assert.True(t, files.has("images/shared.png"), "deleting one composition leaves another's files alone")
}

func TestUpdateComposition_NotFound(t *testing.T) {
	svc := newTestCompositionService(newMemRepo(), newMemFiles())
	_, err := svc.UpdateComposition(context.Background(), primitive.NewObjectID().Hex(), UpdateCompositionInput{})
	assert.ErrorIs(t, err, ErrCompositionNotFound)
}

func TestDeleteComposition_RemovesFilesThenDocument(t *testing.T) {
	repo := newMemRepo()
	files := newMemFiles()
	svc := newTestCompositionService(repo, files)
	ctx := context.Background()

	created, err := svc.CreateComposition(ctx, CreateCompositionInput{Title: "Demo"})
	require.NoError(t, err)
	files.objects["images/a.png"] = []byte("x")
	_, err = repo.AppendMediaFiles(ctx, created.ID,
		domain.MediaFile{Type: domain.MediaImage, Filename: "a.png"},
		domain.MediaFile{Type: domain.MediaVideo, Filename: "gone.mp4"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteComposition(ctx, created.ID.Hex()))
	assert.False(t, files.has("images/a.png"))
	assert.ElementsMatch(t, []string{"images/a.png", "videos/gone.mp4"}, files.deleted)

	_, err = svc.GetComposition(ctx, created.ID.Hex())
	assert.ErrorIs(t, err, ErrCompositionNotFound)
}

func TestDeleteComposition_NotFound(t *testing.T) {
	repo := newMemRepo()
	svc := newTestCompositionService(repo, newMemFiles())

	err := svc.DeleteComposition(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrCompositionNotFound)
	assert.Zero(t, repo.deleteCalls)
}
