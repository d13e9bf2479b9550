// Package store defines the in-memory document store for converted papers
// and their per-pass analysis cache.
package store

import (
	"time"

	"github.com/hyperjump/ronbun/internal/models"
)

// Store holds processed documents keyed by their opaque identifier.
// Implementations are process-local; nothing survives a restart.
type Store interface {
	// Put inserts or replaces the entry for doc.ID.
	Put(doc *models.ProcessedDocument)
	// Get returns the stored document. Absence is not an error; callers
	// must treat ok == false as "not found".
	Get(id string) (*models.ProcessedDocument, bool)
	// Delete removes the entry for id, reporting whether it existed.
	Delete(id string) bool
	// DeleteBySource removes the entry whose metadata source_path matches,
	// reporting whether one existed. Used by the auto-ingest watcher.
	DeleteBySource(path string) bool
	// EvictStale removes every entry older than maxAge and returns the
	// number evicted. Called opportunistically before analyze-path lookups,
	// not on a background timer, so eviction can lag when idle.
	EvictStale(maxAge time.Duration) int
	// SetAnalysis records the analysis for a pass. The first write wins:
	// when the pass already holds a result, or the document is gone, the
	// call is a no-op and returns false.
	SetAnalysis(id string, pass int, result *models.AnalysisResult) bool
	// GetAnalysis returns the cached analysis for a (document, pass) pair.
	GetAnalysis(id string, pass int) (*models.AnalysisResult, bool)
	// AnalyzedPasses returns the pass numbers with a completed analysis for
	// id, in order. Readers must use this rather than iterating the document's
	// Analyses map, which the store mutates under its own lock.
	AnalyzedPasses(id string) ([]int, bool)
	// Count returns the number of live documents.
	Count() int
}
