package domain

import "path"

// MediaType distinguishes uploaded images from videos.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

func (t MediaType) Valid() bool {
	return t == MediaImage || t == MediaVideo
}

// Dir returns the storage subtree for the media type ("images" or "videos").
func (t MediaType) Dir() string {
	if t == MediaVideo {
		return "videos"
	}
	return "images"
}

// UploadsPrefix is the public path under which stored files are served.
const UploadsPrefix = "/uploads"

// MediaURL derives the public retrieval path of an uploaded file.
func MediaURL(t MediaType, filename string) string {
	return path.Join(UploadsPrefix, t.Dir(), filename)
}

// MediaFile references an uploaded image or video together with its placement.
type MediaFile struct {
	Type         MediaType `bson:"type" json:"type"`
	Filename     string    `bson:"filename" json:"filename"`
	URL          string    `bson:"url" json:"url"`
	X            float64   `bson:"x" json:"x"`
	Y            float64   `bson:"y" json:"y"`
	Width        float64   `bson:"width" json:"width"`
	Height       float64   `bson:"height" json:"height"`
	Rotation     float64   `bson:"rotation" json:"rotation"`
	IsBackground bool      `bson:"isBackground" json:"isBackground"`
}

// BackgroundIndex returns the index of the media file rendered as the canvas
// background: the first image flagged as background. It returns -1 when none is.
func BackgroundIndex(files []MediaFile) int {
	for i, f := range files {
		if f.Type == MediaImage && f.IsBackground {
			return i
		}
	}
	return -1
}

// ResolveBackground decides the background flag for a media file about to be
// appended after existing files. Videos are never background. An explicit
// request wins for images; without one, an image becomes background only when
// it is the first media file of the composition.
func ResolveBackground(t MediaType, requested *bool, existing int) bool {
	if t != MediaImage {
		return false
	}
	if requested != nil {
		return *requested
	}
	return existing == 0
}
