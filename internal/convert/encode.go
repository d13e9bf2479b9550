package convert

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	// Registered for image.DecodeConfig dimension checks on extracted figures.
	_ "image/jpeg"
	_ "image/png"

	"github.com/hyperjump/ronbun/internal/models"
)

// EncodeImage wraps raw image file bytes into a transport-safe record:
// base64 payload, page number, placeholder {0,0} position, empty caption,
// and an img-N reference matching the markdown placeholder. Images smaller
// than minDim on either side are dropped (decoration, rules, spacers);
// formats the stdlib cannot size (e.g. TIFF) skip the check and are kept.
func EncodeImage(data []byte, pageNr, index, minDim int) (models.ImageRecord, bool) {
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if cfg.Width < minDim || cfg.Height < minDim {
			return models.ImageRecord{}, false
		}
	}
	return models.ImageRecord{
		EncodedImage: base64.StdEncoding.EncodeToString(data),
		PageNumber:   pageNr,
		Position:     models.Position{X: 0, Y: 0},
		Caption:      "",
		Reference:    fmt.Sprintf("img-%d", index),
	}, true
}
