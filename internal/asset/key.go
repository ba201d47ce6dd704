package asset

import (
	"strings"

	"github.com/google/uuid"

	"github.com/assetvault/service/internal/media"
)

const keyNamespace = "uploads"

// NewObjectKey returns a fresh storage key of the form
// uploads/<32 hex chars>.<ext>. ext is the target format when known; the
// filename suffix and then "bin" are the fallbacks. The filename never
// contributes to uniqueness.
func NewObjectKey(filename string, ext string) string {
	suffix := strings.TrimPrefix(strings.ToLower(ext), ".")
	if suffix == "" {
		suffix = media.Extension(filename)
	}
	if suffix == "" {
		suffix = string(media.Binary)
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return keyNamespace + "/" + token + "." + suffix
}
