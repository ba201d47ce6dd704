package media

import (
	"bytes"
	"image"

	// Decoders for image.DecodeConfig. WEBP is not in the standard library.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Dimensions reads the pixel size from the image header without decoding
// the pixel data. ok is false when data is not a recognized image.
func Dimensions(data []byte) (width, height int, ok bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
