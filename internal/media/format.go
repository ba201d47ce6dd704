// Package media knows the small set of image formats the service treats as
// canonical, and how to recognise them from a filename or from content.
package media

import (
	"mime"
	"path"
	"strings"

	"github.com/h2non/filetype"
)

// Format is a canonical image format code.
type Format string

const (
	PNG  Format = "png"
	JPG  Format = "jpg"
	WEBP Format = "webp"

	// Binary is persisted for anything that is not a canonical image.
	Binary Format = "bin"
)

const octetStream = "application/octet-stream"

// Normalize case-folds s, folds "jpeg" into "jpg" and reports whether the
// result is one of the canonical formats.
func Normalize(s string) (Format, bool) {
	f := strings.ToLower(strings.TrimSpace(s))
	if f == "jpeg" {
		f = "jpg"
	}
	switch Format(f) {
	case PNG, JPG, WEBP:
		return Format(f), true
	}
	return "", false
}

// Resolve determines the canonical format of an asset. The filename
// extension wins; content sniffing is only a fallback and never overrides
// a recognised extension.
func Resolve(filename string, data []byte) (Format, bool) {
	if ext := Extension(filename); ext != "" {
		if f, ok := Normalize(ext); ok {
			return f, true
		}
	}
	if len(data) == 0 {
		return "", false
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", false
	}
	switch kind.MIME.Value {
	case "image/jpeg":
		return JPG, true
	case "image/png":
		return PNG, true
	case "image/webp":
		return WEBP, true
	}
	return "", false
}

// OrBinary returns f, or Binary when f is empty.
func (f Format) OrBinary() Format {
	if f == "" {
		return Binary
	}
	return f
}

// MIME returns the content type of a canonical format, or "" otherwise.
func (f Format) MIME() string {
	switch f {
	case PNG:
		return "image/png"
	case JPG:
		return "image/jpeg"
	case WEBP:
		return "image/webp"
	}
	return ""
}

// Extension returns the lowercased suffix after the last dot of filename,
// without the dot. Dotfiles and names without a dot have no extension.
func Extension(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// ContentType picks the upload content type: the output format first, then
// a guess from the filename, then a generic binary type.
func ContentType(f Format, filename string) string {
	if ct := f.MIME(); ct != "" {
		return ct
	}
	if ext := Extension(filename); ext != "" {
		if ct := mime.TypeByExtension("." + ext); ct != "" {
			return ct
		}
	}
	return octetStream
}
