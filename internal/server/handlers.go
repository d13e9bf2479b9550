package server

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/analysis"
	"github.com/hyperjump/ronbun/internal/models"
)

func (s *Server) handleUploadPaper(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.config.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		s.respondError(w, http.StatusBadRequest, "only PDF uploads are supported")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}

	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int("bytes", len(content)))

	conv, err := s.converter.Convert(content)
	if err != nil {
		s.logger.Error("conversion failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, "failed to process PDF: "+err.Error())
		return
	}

	doc := &models.ProcessedDocument{
		ID:       uuid.New().String(),
		Content:  conv.Text,
		Images:   conv.Images,
		Metadata: conv.Metadata,
	}
	s.store.Put(doc)

	s.respondJSON(w, http.StatusCreated, models.UploadResponse{
		DocumentID: doc.ID,
		Metadata:   doc.Metadata,
		Message:    "Document processed successfully",
	})
}

func (s *Server) handleAnalyzePaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	passNum, err := strconv.Atoi(chi.URLParam(r, "pass"))
	pass := analysis.Pass(passNum)
	if err != nil || !pass.Valid() {
		s.respondError(w, http.StatusBadRequest, "pass number must be 1, 2, or 3")
		return
	}

	if evicted := s.store.EvictStale(s.config.Store.MaxDocumentAge()); evicted > 0 {
		s.logger.Debug("evicted stale documents", zap.Int("count", evicted))
	}

	doc, ok := s.store.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}

	if cached, ok := s.store.GetAnalysis(id, passNum); ok {
		s.respondJSON(w, http.StatusOK, models.AnalyzeResponse{
			Analysis: cached,
			Metadata: doc.Metadata,
			Images:   doc.Images,
			Cached:   true,
		})
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), doc.Content, pass, paperContext(doc))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// First write wins; a concurrent request for the same pass may have
	// landed first, but each caller still returns its own result.
	s.store.SetAnalysis(id, passNum, result)

	s.respondJSON(w, http.StatusOK, models.AnalyzeResponse{
		Analysis: result,
		Metadata: doc.Metadata,
		Images:   doc.Images,
		Cached:   false,
	})
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, ok := s.store.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	// The analyses map is read through the store so a concurrent analyze
	// request writing it cannot race this handler.
	passes, _ := s.store.AnalyzedPasses(id)
	s.respondJSON(w, http.StatusOK, models.DocumentInfo{
		DocumentID:     doc.ID,
		Metadata:       doc.Metadata,
		ImageCount:     len(doc.Images),
		AnalyzedPasses: passes,
		CreatedAt:      doc.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.Delete(id) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.logger.Debug("document deleted", zap.String("id", id))
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": s.store.Count(),
		"config": map[string]interface{}{
			"model":                  s.config.LLM.Model,
			"convert_variant":        s.config.Convert.Variant,
			"max_document_age_hours": s.config.Store.MaxDocumentAgeHours,
		},
	})
}

// paperContext pulls the structure hint for the prompt out of conversion
// metadata. Page counts may arrive as int (in-process) or float64 (decoded
// JSON); both are handled.
func paperContext(doc *models.ProcessedDocument) *analysis.PaperContext {
	pc := &analysis.PaperContext{ImageCount: len(doc.Images)}
	switch v := doc.Metadata["pages"].(type) {
	case int:
		pc.Pages = v
	case float64:
		pc.Pages = int(v)
	}
	return pc
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"detail": message})
}
