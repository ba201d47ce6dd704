// Package optimizer is the boundary to the external image optimization
// capability (compress, resize, convert).
package optimizer

import (
	"context"
	"log/slog"

	"github.com/assetvault/service/internal/media"
)

// Options select the optional transformations. Nil dimensions mean "not
// requested"; an empty Format means no conversion.
type Options struct {
	Width  *int
	Height *int
	Format media.Format
}

// Result is the outcome of Optimize. Width, Height and Format are only set
// when the service reported them; Format stays empty unless a conversion ran.
type Result struct {
	Data   []byte
	Width  *int
	Height *int
	Format media.Format
	// Transformed is false when Data is the unmodified input.
	Transformed bool
}

// Optimizer transforms image bytes. Input that the service cannot decode as
// an image is not an error: implementations return it unchanged.
type Optimizer interface {
	Optimize(ctx context.Context, data []byte, opts Options) (Result, error)
}

// Passthrough is the Optimizer used when no optimization credentials are
// configured. It returns the input untouched and reports nothing.
type Passthrough struct{}

func (Passthrough) Optimize(_ context.Context, data []byte, _ Options) (Result, error) {
	return passthrough(data), nil
}

// New picks the Tinify client when an API key is configured and
// Passthrough otherwise.
func New(cfg TinifyConfig, log *slog.Logger) Optimizer {
	if cfg.APIKey == "" {
		log.Info("optimizer disabled, uploads pass through unchanged")
		return Passthrough{}
	}
	log.Info("optimizer enabled", "endpoint", cfg.endpoint())
	return NewTinify(cfg, log)
}

func passthrough(data []byte) Result {
	return Result{Data: data}
}

// resizeMethod applies the resize policy: both dimensions fit the image
// inside the box, a single dimension scales proportionally.
func resizeMethod(width, height *int) (method string, ok bool) {
	switch {
	case width != nil && height != nil:
		return "fit", true
	case width != nil || height != nil:
		return "scale", true
	default:
		return "", false
	}
}
