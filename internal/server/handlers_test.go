package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/analysis"
	"github.com/hyperjump/ronbun/internal/config"
	"github.com/hyperjump/ronbun/internal/convert"
	"github.com/hyperjump/ronbun/internal/models"
	"github.com/hyperjump/ronbun/internal/store"
)

type stubConverter struct {
	conv *convert.Conversion
	err  error
}

func (c *stubConverter) Convert([]byte) (*convert.Conversion, error) {
	return c.conv, c.err
}

type stubAnalyzer struct {
	result *models.AnalysisResult
	calls  int
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ string, pass analysis.Pass, _ *analysis.PaperContext) (*models.AnalysisResult, error) {
	if !pass.Valid() {
		return nil, fmt.Errorf("no template for pass %d", pass)
	}
	a.calls++
	return a.result, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func newTestServer(conv *stubConverter, az *stubAnalyzer) (*Server, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewServer(st, conv, az, testConfig(), zap.NewNop()), st
}

// withURLParams attaches chi URL params to a test request.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func multipartPDF(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("%PDF-1.4 fake body")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func TestHandleUploadPaper(t *testing.T) {
	conv := &stubConverter{conv: &convert.Conversion{
		Text:     "# Title\n\nbody",
		Metadata: map[string]interface{}{"pages": 2, "variant": "markdown"},
	}}
	srv, st := newTestServer(conv, &stubAnalyzer{})

	body, contentType := multipartPDF(t, "paper.pdf")
	r := httptest.NewRequest(http.MethodPost, "/api/v1/papers", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.handleUploadPaper(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp models.UploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.DocumentID == "" {
		t.Error("missing document_id")
	}
	if resp.Message != "Document processed successfully" {
		t.Errorf("message = %q", resp.Message)
	}
	if _, ok := st.Get(resp.DocumentID); !ok {
		t.Error("document not stored")
	}
}

func TestHandleUploadPaper_RejectsNonPDF(t *testing.T) {
	srv, _ := newTestServer(&stubConverter{}, &stubAnalyzer{})
	body, contentType := multipartPDF(t, "paper.docx")
	r := httptest.NewRequest(http.MethodPost, "/api/v1/papers", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.handleUploadPaper(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleUploadPaper_ConversionFailure(t *testing.T) {
	conv := &stubConverter{err: errors.New("read pdf: malformed xref table")}
	srv, _ := newTestServer(conv, &stubAnalyzer{})
	body, contentType := multipartPDF(t, "broken.pdf")
	r := httptest.NewRequest(http.MethodPost, "/api/v1/papers", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.handleUploadPaper(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp["detail"] == "" {
		t.Error("expected detail message")
	}
}

func analyzeRequest(id, pass string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/papers/"+id+"/analyze/"+pass, nil)
	return withURLParams(r, map[string]string{"id": id, "pass": pass})
}

func TestHandleAnalyzePaper_CachesPerPass(t *testing.T) {
	az := &stubAnalyzer{result: models.NewAnalysisData(map[string]interface{}{"conclusions": "good"})}
	srv, st := newTestServer(&stubConverter{}, az)
	st.Put(&models.ProcessedDocument{ID: "doc1", Content: "text", Metadata: map[string]interface{}{"pages": 3}})

	w := httptest.NewRecorder()
	srv.handleAnalyzePaper(w, analyzeRequest("doc1", "1"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var first models.AnalyzeResponse
	if err := json.NewDecoder(w.Body).Decode(&first); err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first analysis should not be cached")
	}

	w = httptest.NewRecorder()
	srv.handleAnalyzePaper(w, analyzeRequest("doc1", "1"))
	var second models.AnalyzeResponse
	if err := json.NewDecoder(w.Body).Decode(&second); err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second analysis should be cached")
	}
	if az.calls != 1 {
		t.Errorf("analyzer called %d times, want 1", az.calls)
	}

	a, b := first.Analysis.Data["conclusions"], second.Analysis.Data["conclusions"]
	if a != b {
		t.Errorf("payloads differ: %v vs %v", a, b)
	}

	// A different pass is computed fresh.
	w = httptest.NewRecorder()
	srv.handleAnalyzePaper(w, analyzeRequest("doc1", "2"))
	var third models.AnalyzeResponse
	_ = json.NewDecoder(w.Body).Decode(&third)
	if third.Cached || az.calls != 2 {
		t.Errorf("cached = %v, calls = %d", third.Cached, az.calls)
	}
}

func TestHandleAnalyzePaper_NotFound(t *testing.T) {
	srv, _ := newTestServer(&stubConverter{}, &stubAnalyzer{})
	w := httptest.NewRecorder()
	srv.handleAnalyzePaper(w, analyzeRequest("ghost", "1"))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleAnalyzePaper_EvictsBeforeLookup(t *testing.T) {
	az := &stubAnalyzer{result: models.NewAnalysisData(nil)}
	srv, st := newTestServer(&stubConverter{}, az)
	st.Put(&models.ProcessedDocument{
		ID:        "old",
		Content:   "text",
		CreatedAt: time.Now().Add(-25 * time.Hour),
	})

	w := httptest.NewRecorder()
	srv.handleAnalyzePaper(w, analyzeRequest("old", "1"))
	if w.Code != http.StatusNotFound {
		t.Errorf("stale document should be evicted and 404, got %d", w.Code)
	}
	if az.calls != 0 {
		t.Error("analyzer must not run for an evicted document")
	}
}

func TestHandleAnalyzePaper_InvalidPass(t *testing.T) {
	srv, st := newTestServer(&stubConverter{}, &stubAnalyzer{})
	st.Put(&models.ProcessedDocument{ID: "doc1", Content: "text"})

	for _, pass := range []string{"0", "4", "nine"} {
		w := httptest.NewRecorder()
		srv.handleAnalyzePaper(w, analyzeRequest("doc1", pass))
		if w.Code != http.StatusBadRequest {
			t.Errorf("pass %s: status = %d", pass, w.Code)
		}
	}
}

func TestHandleAnalyzePaper_InBandErrorStillOK(t *testing.T) {
	az := &stubAnalyzer{result: models.NewAnalysisError(models.ErrParseFailed, "invalid character 'n'", "not json")}
	srv, st := newTestServer(&stubConverter{}, az)
	st.Put(&models.ProcessedDocument{ID: "doc1", Content: "text"})

	w := httptest.NewRecorder()
	srv.handleAnalyzePaper(w, analyzeRequest("doc1", "3"))
	if w.Code != http.StatusOK {
		t.Fatalf("in-band analysis errors respond 200, got %d", w.Code)
	}
	var resp models.AnalyzeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Analysis.Failed() || resp.Analysis.Err.RawContent != "not json" {
		t.Errorf("analysis = %+v", resp.Analysis)
	}
}

func TestHandleGetPaper(t *testing.T) {
	srv, st := newTestServer(&stubConverter{}, &stubAnalyzer{})
	st.Put(&models.ProcessedDocument{
		ID:       "doc1",
		Content:  "text",
		Images:   []models.ImageRecord{{Reference: "img-1"}},
		Metadata: map[string]interface{}{"pages": 7},
	})
	st.SetAnalysis("doc1", 2, models.NewAnalysisData(nil))

	r := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/papers/doc1", nil), map[string]string{"id": "doc1"})
	w := httptest.NewRecorder()
	srv.handleGetPaper(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var info models.DocumentInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.ImageCount != 1 || len(info.AnalyzedPasses) != 1 || info.AnalyzedPasses[0] != 2 {
		t.Errorf("info = %+v", info)
	}
}

func TestHandleDeletePaper(t *testing.T) {
	srv, st := newTestServer(&stubConverter{}, &stubAnalyzer{})
	st.Put(&models.ProcessedDocument{ID: "doc1"})

	r := withURLParams(httptest.NewRequest(http.MethodDelete, "/api/v1/papers/doc1", nil), map[string]string{"id": "doc1"})
	w := httptest.NewRecorder()
	srv.handleDeletePaper(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.handleDeletePaper(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, st := newTestServer(&stubConverter{}, &stubAnalyzer{})
	st.Put(&models.ProcessedDocument{ID: "a"})
	st.Put(&models.ProcessedDocument{ID: "b"})

	w := httptest.NewRecorder()
	srv.handleStatus(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["documents"].(float64) != 2 {
		t.Errorf("documents = %v", resp["documents"])
	}
}
