package convert

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextConverter extracts plain page text, concatenated in page order.
// It carries no images; metadata is limited to page and character counts.
type TextConverter struct{}

// Convert implements Converter.
func (c *TextConverter) Convert(content []byte) (*Conversion, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		buf.WriteString(text)
		if i < numPages-1 {
			buf.WriteByte('\n')
		}
	}

	text := buf.String()
	return &Conversion{
		Text: text,
		Metadata: map[string]interface{}{
			"variant":    "text",
			"pages":      numPages,
			"characters": len(text),
		},
	}, nil
}
