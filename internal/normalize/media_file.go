package normalize

import "alcyxob/composer/internal/domain"

// MediaFile normalizes a media file record at position index of its
// composition. Flat x/y/width/height win; the legacy nested position and size
// objects are read when a flat field is missing or unreadable, and the
// index-staggered defaults apply last. Videos are never background. The URL is
// always derived from type and filename.
func MediaFile(raw Raw, index int) domain.MediaFile {
	typeName, _ := toString(raw["type"])
	mediaType := domain.MediaType(typeName)
	width, height := MediaSize(mediaType)
	position, _ := toMap(raw["position"])
	size, _ := toMap(raw["size"])

	file := domain.MediaFile{
		Type:     mediaType,
		X:        firstNumber(MediaOffset(index), raw["x"], position["x"]),
		Y:        firstNumber(MediaOffset(index), raw["y"], position["y"]),
		Width:    firstNumber(width, raw["width"], size["width"]),
		Height:   firstNumber(height, raw["height"], size["height"]),
		Rotation: numberOr(raw["rotation"], 0),
	}
	file.Filename, _ = toString(raw["filename"])
	if file.Filename != "" {
		file.URL = domain.MediaURL(mediaType, file.Filename)
	} else {
		file.URL, _ = toString(raw["url"])
	}
	if b, ok := toBool(raw["isBackground"]); ok {
		file.IsBackground = b && mediaType == domain.MediaImage
	}
	return file
}

// MediaFiles normalizes every entry, preserving order.
func MediaFiles(raws []Raw) []domain.MediaFile {
	out := make([]domain.MediaFile, 0, len(raws))
	for i, raw := range raws {
		out = append(out, MediaFile(raw, i))
	}
	return out
}

// MediaFileToRaw converts a typed media file back to its record form.
func MediaFileToRaw(f domain.MediaFile) Raw {
	return Raw{
		"type":         string(f.Type),
		"filename":     f.Filename,
		"url":          f.URL,
		"x":            f.X,
		"y":            f.Y,
		"width":        f.Width,
		"height":       f.Height,
		"rotation":     f.Rotation,
		"isBackground": f.IsBackground,
	}
}

// RenormalizeMedia runs a typed media file at index through the normalizer again.
func RenormalizeMedia(f domain.MediaFile, index int) domain.MediaFile {
	return MediaFile(MediaFileToRaw(f), index)
}

func firstNumber(fallback float64, candidates ...any) float64 {
	for _, c := range candidates {
		if f, ok := toNumber(c); ok {
			return f
		}
	}
	return fallback
}
