// Package normalize turns partially specified, possibly stringly-typed overlay
// and media records into fully defaulted ones. It never fails: any value that
// cannot be read resolves to the field's default.
//
// The tables in this file are the only place element and media defaults are
// defined. Both the API and the editor session normalize through this package.
package normalize

import "alcyxob/composer/internal/domain"

// Raw is a record as it arrives from JSON: missing keys, strings where numbers
// are expected, and nulls are all possible.
type Raw map[string]any

type fieldDefaults map[string]any

var baseElementDefaults = fieldDefaults{
	"x":         0.0,
	"y":         0.0,
	"opacity":   1.0,
	"draggable": true,
	"rotation":  0.0,
}

var variantDefaults = map[domain.ElementType]fieldDefaults{
	domain.ElementText: {
		"fontSize":     24.0,
		"fontFamily":   "Arial",
		"fill":         "#ffffff",
		"stroke":       "#000000",
		"strokeWidth":  1.0,
		"shadowBlur":   5.0,
		"shadowOffset": map[string]any{"x": 2.0, "y": 2.0},
	},
	domain.ElementRect: {
		"width":       100.0,
		"height":      100.0,
		"fill":        "#ff5722",
		"stroke":      "#000000",
		"strokeWidth": 2.0,
	},
}

// numericFields are coerced to finite numbers whenever present.
var numericFields = []string{
	"x", "y", "width", "height", "fontSize", "strokeWidth",
	"shadowBlur", "opacity", "rotation", "scaleX", "scaleY",
}

// numericFallbacks apply to numeric fields that no variant table defines.
// Anything absent here and from the tables falls back to 0.
var numericFallbacks = fieldDefaults{
	"scaleX": 1.0,
	"scaleY": 1.0,
}

const shadowOffsetFallback = 2.0

// Media file defaults. Position is staggered per insertion index so successive
// uploads do not stack exactly.
const (
	MediaOffsetBase = 50.0
	MediaOffsetStep = 30.0

	imageWidth  = 200.0
	imageHeight = 150.0
	videoWidth  = 400.0
	videoHeight = 300.0
)

// MediaOffset is the default x and y of the media file at index.
func MediaOffset(index int) float64 {
	return MediaOffsetBase + float64(index)*MediaOffsetStep
}

// MediaSize is the default width and height for a media type.
func MediaSize(t domain.MediaType) (float64, float64) {
	if t == domain.MediaVideo {
		return videoWidth, videoHeight
	}
	return imageWidth, imageHeight
}

func elementFallback(t domain.ElementType, field string) float64 {
	if v, ok := variantDefaults[t][field].(float64); ok {
		return v
	}
	if v, ok := baseElementDefaults[field].(float64); ok {
		return v
	}
	if v, ok := numericFallbacks[field].(float64); ok {
		return v
	}
	return 0
}
