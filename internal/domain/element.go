package domain

// ElementType is the variant tag of an overlay element.
type ElementType string

const (
	ElementText   ElementType = "text"
	ElementRect   ElementType = "rect"
	ElementCircle ElementType = "circle"
	ElementImage  ElementType = "image"
)

func (t ElementType) Valid() bool {
	switch t {
	case ElementText, ElementRect, ElementCircle, ElementImage:
		return true
	}
	return false
}

// Point is a 2-D offset.
type Point struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
}

// Element is a positioned overlay on the canvas. The common fields are always
// set; variant-specific fields are nil when the variant does not carry them.
type Element struct {
	ID        string      `bson:"id" json:"id"`
	Type      ElementType `bson:"type" json:"type"`
	X         float64     `bson:"x" json:"x"`
	Y         float64     `bson:"y" json:"y"`
	Opacity   float64     `bson:"opacity" json:"opacity"`
	Draggable bool        `bson:"draggable" json:"draggable"`
	Rotation  float64     `bson:"rotation" json:"rotation"`

	Text         *string  `bson:"text,omitempty" json:"text,omitempty"`
	Width        *float64 `bson:"width,omitempty" json:"width,omitempty"`
	Height       *float64 `bson:"height,omitempty" json:"height,omitempty"`
	FontSize     *float64 `bson:"fontSize,omitempty" json:"fontSize,omitempty"`
	FontFamily   *string  `bson:"fontFamily,omitempty" json:"fontFamily,omitempty"`
	Fill         *string  `bson:"fill,omitempty" json:"fill,omitempty"`
	Stroke       *string  `bson:"stroke,omitempty" json:"stroke,omitempty"`
	StrokeWidth  *float64 `bson:"strokeWidth,omitempty" json:"strokeWidth,omitempty"`
	ShadowColor  *string  `bson:"shadowColor,omitempty" json:"shadowColor,omitempty"`
	ShadowBlur   *float64 `bson:"shadowBlur,omitempty" json:"shadowBlur,omitempty"`
	ShadowOffset *Point   `bson:"shadowOffset,omitempty" json:"shadowOffset,omitempty"`
	ScaleX       *float64 `bson:"scaleX,omitempty" json:"scaleX,omitempty"`
	ScaleY       *float64 `bson:"scaleY,omitempty" json:"scaleY,omitempty"`
}
