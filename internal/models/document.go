// Package models defines core data structures for processed documents,
// extracted images, and analysis results.
package models

import "time"

// Position is the location of an image on its page.
// Converted documents carry placeholder positions ({0,0}) unless the
// source format supplies real coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImageRecord is an image extracted from a document, encoded for transport.
// Produced once during upload and read-only thereafter.
type ImageRecord struct {
	EncodedImage string   `json:"encoded_image"`
	PageNumber   int      `json:"page_number"`
	Position     Position `json:"position"`
	Caption      string   `json:"caption"`
	Reference    string   `json:"reference"`
}

// ProcessedDocument is the converted form of an uploaded paper, keyed by an
// opaque identifier issued at upload time. Analyses maps pass number (1-3)
// to a completed analysis; it is written only through the store, for pass
// numbers not yet present, and must be read through the store as well once
// the document is shared.
type ProcessedDocument struct {
	ID        string                  `json:"id"`
	Content   string                  `json:"content"`
	Images    []ImageRecord           `json:"images"`
	Metadata  map[string]interface{}  `json:"metadata"`
	Analyses  map[int]*AnalysisResult `json:"analyses,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// Age returns the wall-clock time since the document was created.
func (d *ProcessedDocument) Age(now time.Time) time.Duration {
	return now.Sub(d.CreatedAt)
}

// AnalyzedPasses returns the pass numbers with a completed analysis, in
// order. Callers holding only a shared document must go through the store's
// AnalyzedPasses instead, which takes the store lock.
func (d *ProcessedDocument) AnalyzedPasses() []int {
	var passes []int
	for p := 1; p <= 3; p++ {
		if _, ok := d.Analyses[p]; ok {
			passes = append(passes, p)
		}
	}
	return passes
}
