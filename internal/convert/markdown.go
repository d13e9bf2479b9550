package convert

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hyperjump/ronbun/internal/models"
)

// sectionRe matches numbered section headings like "3 Method" or "4.2 Results".
var sectionRe = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+[A-Z]`)

const maxHeadingLen = 80

// MarkdownConverter renders pages as markdown: a title heading from the first
// line, section headings from numbered lines, figure placeholders per
// extracted image. Images are encoded for transport with placeholder
// positions and empty captions (the PDF carries no usable coordinates for
// them at this layer).
type MarkdownConverter struct {
	MaxImages   int
	MinImageDim int
}

// Convert implements Converter.
func (c *MarkdownConverter) Convert(content []byte) (*Conversion, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	var md strings.Builder
	blocks := map[string]int{}
	var images []models.ImageRecord
	sawTitle := false

	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		for _, line := range pageLines(ctx, pageNr) {
			switch {
			case !sawTitle && len(line) <= maxHeadingLen:
				fmt.Fprintf(&md, "# %s\n\n", line)
				blocks["heading"]++
				sawTitle = true
			case isSectionHeading(line):
				fmt.Fprintf(&md, "## %s\n\n", line)
				blocks["heading"]++
			default:
				md.WriteString(line)
				md.WriteString("\n\n")
				blocks["paragraph"]++
			}
		}

		for _, rec := range c.pageImages(ctx, pageNr, len(images)) {
			fmt.Fprintf(&md, "![figure](#%s)\n\n", rec.Reference)
			blocks["figure"]++
			images = append(images, rec)
			if c.MaxImages > 0 && len(images) >= c.MaxImages {
				break
			}
		}
	}

	text := strings.TrimSpace(md.String())
	return &Conversion{
		Text:   text,
		Images: images,
		Metadata: map[string]interface{}{
			"variant":    "markdown",
			"pages":      ctx.PageCount,
			"characters": len(text),
			"images":     len(images),
			"blocks":     blocks,
		},
	}, nil
}

// pageLines extracts the layout lines of one page. Pages whose content
// stream cannot be read yield no lines rather than failing the conversion.
func pageLines(ctx *model.Context, pageNr int) []string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return nil
	}
	return streamLines(data)
}

// pageImages extracts and encodes the images of one page. Extraction is
// best-effort: a page that fails yields no images.
func (c *MarkdownConverter) pageImages(ctx *model.Context, pageNr, seen int) []models.ImageRecord {
	if c.MaxImages > 0 && seen >= c.MaxImages {
		return nil
	}
	if len(pdfcpu.ImageObjNrs(ctx, pageNr)) == 0 {
		return nil
	}
	imgs, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
	if err != nil {
		return nil
	}
	var records []models.ImageRecord
	for _, img := range imgs {
		data, err := io.ReadAll(img)
		if err != nil || len(data) == 0 {
			continue
		}
		rec, ok := EncodeImage(data, pageNr, seen+len(records)+1, c.MinImageDim)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func isSectionHeading(line string) bool {
	return len(line) <= maxHeadingLen && sectionRe.MatchString(line)
}
