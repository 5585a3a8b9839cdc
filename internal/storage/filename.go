package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxBaseLength = 64

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// UniqueFilename builds <base>-<unixMillis>-<random8><.ext> from a client-supplied
// name. Only [a-zA-Z0-9_-] survive in the base and extension.
func UniqueFilename(original string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "file"
	}
	if len(base) > maxBaseLength {
		base = base[:maxBaseLength]
	}

	ext = strings.ToLower(unsafeFilenameChars.ReplaceAllString(strings.TrimPrefix(ext, "."), ""))
	if ext != "" {
		ext = "." + ext
	}

	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s%s", base, now.UnixMilli(), random, ext)
}
