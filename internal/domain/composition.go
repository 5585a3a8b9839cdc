package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompositionType describes the intended layout of a composition.
type CompositionType string

const (
	CompositionCustom CompositionType = "custom"
	CompositionPiP    CompositionType = "pip" // picture-in-picture
	CompositionPiV    CompositionType = "piv" // picture-in-video
)

const (
	DefaultTitle           = "My Composition"
	DefaultBackgroundColor = "#ffffff"
)

// Valid reports whether t is one of the known composition types.
func (t CompositionType) Valid() bool {
	switch t {
	case CompositionCustom, CompositionPiP, CompositionPiV:
		return true
	}
	return false
}

// Composition is the persisted unit: one editable media layout.
type Composition struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	CompositionType CompositionType    `bson:"compositionType" json:"compositionType"`
	BackgroundColor string             `bson:"backgroundColor" json:"backgroundColor"`
	MediaFiles      []MediaFile        `bson:"mediaFiles" json:"mediaFiles"` // insertion order matters for background selection
	Elements        []Element          `bson:"elements" json:"elements"`     // z-order: later renders above earlier
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Content is the replaceable part of a composition, written as a whole on
// update. A nil Title or Description leaves the stored value unchanged.
type Content struct {
	Title           *string
	Description     *string
	CompositionType CompositionType
	BackgroundColor string
	MediaFiles      []MediaFile
	Elements        []Element
}
