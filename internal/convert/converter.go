// Package convert turns uploaded PDF bytes into analyzable document content.
// Two pipelines exist: plain text extraction and a markdown+images conversion
// that preserves structure and extracts embedded figures.
package convert

import (
	"fmt"

	"github.com/hyperjump/ronbun/internal/config"
	"github.com/hyperjump/ronbun/internal/models"
)

// Conversion is the output of a converter: the document body, extracted
// images, and structural metadata (page count, block-type counts).
type Conversion struct {
	Text     string
	Images   []models.ImageRecord
	Metadata map[string]interface{}
}

// Converter converts raw PDF bytes into a Conversion.
type Converter interface {
	Convert(content []byte) (*Conversion, error)
}

// NewConverter returns the converter for the configured variant.
func NewConverter(cfg *config.ConvertConfig) (Converter, error) {
	switch cfg.Variant {
	case "text":
		return &TextConverter{}, nil
	case "markdown":
		return &MarkdownConverter{
			MaxImages:   cfg.MaxImages,
			MinImageDim: cfg.MinImageDim,
		}, nil
	default:
		return nil, fmt.Errorf("unknown convert variant %q", cfg.Variant)
	}
}
