package store

import (
	"sync"
	"time"

	"github.com/hyperjump/ronbun/internal/models"
)

// MemoryStore is the in-memory Store implementation. A single RWMutex guards
// the map; all operations are short-lived so contention is not a concern at
// this scale.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*models.ProcessedDocument
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*models.ProcessedDocument),
		now:  time.Now,
	}
}

// Put inserts or replaces the entry for doc.ID. A zero CreatedAt is stamped
// with the current time so eviction always has a reference point.
func (s *MemoryStore) Put(doc *models.ProcessedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now()
	}
	if doc.Analyses == nil {
		doc.Analyses = make(map[int]*models.AnalysisResult)
	}
	s.docs[doc.ID] = doc
}

// Get returns the stored document, or ok == false when absent.
func (s *MemoryStore) Get(id string) (*models.ProcessedDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// Delete removes the entry for id.
func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	return true
}

// DeleteBySource removes the document whose metadata source_path matches path.
func (s *MemoryStore) DeleteBySource(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, doc := range s.docs {
		if src, ok := doc.Metadata["source_path"].(string); ok && src == path {
			delete(s.docs, id)
			return true
		}
	}
	return false
}

// EvictStale removes every document older than maxAge.
func (s *MemoryStore) EvictStale(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	evicted := 0
	for id, doc := range s.docs {
		if doc.Age(now) > maxAge {
			delete(s.docs, id)
			evicted++
		}
	}
	return evicted
}

// SetAnalysis records the result for a pass not yet present. First write wins:
// concurrent analyze requests for the same unanalyzed pass both compute, and
// the first to land here becomes the cached value.
func (s *MemoryStore) SetAnalysis(id string, pass int, result *models.AnalysisResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return false
	}
	if _, exists := doc.Analyses[pass]; exists {
		return false
	}
	doc.Analyses[pass] = result
	return true
}

// GetAnalysis returns the cached analysis for a (document, pass) pair.
func (s *MemoryStore) GetAnalysis(id string, pass int) (*models.AnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	result, ok := doc.Analyses[pass]
	return result, ok
}

// AnalyzedPasses returns the completed pass numbers for id. The read lock
// makes this safe against a concurrent SetAnalysis on the same document.
func (s *MemoryStore) AnalyzedPasses(id string) ([]int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	return doc.AnalyzedPasses(), true
}

// Count returns the number of live documents.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
