package sourceafis

import (
	"context"
	"image"

	"github.com/high-horse/sourceafis/templates"
)

// Extractor turns a grayscale fingerprint image scanned at dpi into a template
// normalized to 500 dpi.
type Extractor interface {
	Extract(ctx context.Context, img *image.Gray, dpi int) (*templates.Template, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, img *image.Gray, dpi int) (*templates.Template, error)

func (f ExtractorFunc) Extract(ctx context.Context, img *image.Gray, dpi int) (*templates.Template, error) {
	return f(ctx, img, dpi)
}
