package normalize

import (
	"math"

	"alcyxob/composer/internal/domain"
)

// Element merges raw over the variant and base defaults and coerces every
// numeric field. Explicit values win over variant defaults, which win over
// base defaults. Nulls count as missing.
func Element(raw Raw) domain.Element {
	typeName, _ := toString(raw["type"])
	elementType := domain.ElementType(typeName)

	merged := make(Raw, len(raw)+len(baseElementDefaults))
	for k, v := range baseElementDefaults {
		merged[k] = v
	}
	for k, v := range variantDefaults[elementType] {
		merged[k] = v
	}
	for k, v := range raw {
		if v != nil {
			merged[k] = v
		}
	}

	for _, field := range numericFields {
		if v, ok := merged[field]; ok {
			merged[field] = numberOr(v, elementFallback(elementType, field))
		}
	}

	el := domain.Element{
		Type:      elementType,
		X:         merged["x"].(float64),
		Y:         merged["y"].(float64),
		Opacity:   clamp01(merged["opacity"].(float64)),
		Rotation:  merged["rotation"].(float64),
		Draggable: true,
	}
	el.ID, _ = toString(merged["id"])
	if b, ok := toBool(merged["draggable"]); ok {
		el.Draggable = b
	}

	el.Width = optionalNumber(merged, "width")
	el.Height = optionalNumber(merged, "height")
	el.FontSize = optionalNumber(merged, "fontSize")
	el.StrokeWidth = optionalNumber(merged, "strokeWidth")
	el.ShadowBlur = optionalNumber(merged, "shadowBlur")
	el.ScaleX = optionalNumber(merged, "scaleX")
	el.ScaleY = optionalNumber(merged, "scaleY")

	el.Text = optionalString(merged, "text")
	el.FontFamily = optionalString(merged, "fontFamily")
	el.Fill = optionalString(merged, "fill")
	el.Stroke = optionalString(merged, "stroke")
	el.ShadowColor = optionalString(merged, "shadowColor")

	if v, ok := merged["shadowOffset"]; ok {
		offset := domain.Point{X: shadowOffsetFallback, Y: shadowOffsetFallback}
		if m, ok := toMap(v); ok {
			offset.X = numberOr(m["x"], shadowOffsetFallback)
			offset.Y = numberOr(m["y"], shadowOffsetFallback)
		}
		el.ShadowOffset = &offset
	}

	return el
}

// Elements normalizes every entry, preserving order.
func Elements(raws []Raw) []domain.Element {
	out := make([]domain.Element, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Element(raw))
	}
	return out
}

// ElementToRaw converts a typed element back to its record form.
func ElementToRaw(el domain.Element) Raw {
	raw := Raw{
		"id":        el.ID,
		"type":      string(el.Type),
		"x":         el.X,
		"y":         el.Y,
		"opacity":   el.Opacity,
		"draggable": el.Draggable,
		"rotation":  el.Rotation,
	}
	putNumber(raw, "width", el.Width)
	putNumber(raw, "height", el.Height)
	putNumber(raw, "fontSize", el.FontSize)
	putNumber(raw, "strokeWidth", el.StrokeWidth)
	putNumber(raw, "shadowBlur", el.ShadowBlur)
	putNumber(raw, "scaleX", el.ScaleX)
	putNumber(raw, "scaleY", el.ScaleY)
	putString(raw, "text", el.Text)
	putString(raw, "fontFamily", el.FontFamily)
	putString(raw, "fill", el.Fill)
	putString(raw, "stroke", el.Stroke)
	putString(raw, "shadowColor", el.ShadowColor)
	if el.ShadowOffset != nil {
		raw["shadowOffset"] = map[string]any{"x": el.ShadowOffset.X, "y": el.ShadowOffset.Y}
	}
	return raw
}

// Renormalize runs an already typed element through the normalizer again,
// typically after an edit changed one of its fields.
func Renormalize(el domain.Element) domain.Element {
	return Element(ElementToRaw(el))
}

func optionalNumber(merged Raw, field string) *float64 {
	if v, ok := merged[field].(float64); ok {
		return floatPtr(v)
	}
	return nil
}

func optionalString(merged Raw, field string) *string {
	v, ok := merged[field]
	if !ok {
		return nil
	}
	if s, ok := toString(v); ok {
		return stringPtr(s)
	}
	if s, ok := variantDefaults[domain.ElementType(mustString(merged["type"]))][field].(string); ok {
		return stringPtr(s)
	}
	return nil
}

func mustString(v any) string {
	s, _ := toString(v)
	return s
}

func putNumber(raw Raw, field string, v *float64) {
	if v != nil {
		raw[field] = *v
	}
}

func putString(raw Raw, field string, v *string) {
	if v != nil {
		raw[field] = *v
	}
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
