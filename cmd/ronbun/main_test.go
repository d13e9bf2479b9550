package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/ronbun/internal/convert"
	"github.com/hyperjump/ronbun/internal/store"
)

type fakeConverter struct {
	conv *convert.Conversion
	err  error
}

func (c *fakeConverter) Convert([]byte) (*convert.Conversion, error) {
	return c.conv, c.err
}

func TestIngestPaper(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}

	st := store.NewMemoryStore()
	conv := &fakeConverter{conv: &convert.Conversion{
		Text:     "body",
		Metadata: map[string]interface{}{"pages": 1},
	}}

	id, err := ingestPaper(st, conv, path)
	if err != nil {
		t.Fatal(err)
	}
	doc, ok := st.Get(id)
	if !ok {
		t.Fatal("document not stored")
	}
	if doc.Metadata["source_path"] != path {
		t.Errorf("source_path = %v", doc.Metadata["source_path"])
	}

	// Re-ingesting the same path replaces the earlier document.
	id2, err := ingestPaper(st, conv, path)
	if err != nil {
		t.Fatal(err)
	}
	if id2 == id {
		t.Error("expected a fresh document id")
	}
	if _, ok := st.Get(id); ok {
		t.Error("old document should be replaced")
	}
	if st.Count() != 1 {
		t.Errorf("Count() = %d", st.Count())
	}
}

func TestIngestPaper_ConversionError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(path, []byte("junk"), 0644); err != nil {
		t.Fatal(err)
	}

	st := store.NewMemoryStore()
	conv := &fakeConverter{err: errors.New("read pdf: bad header")}
	if _, err := ingestPaper(st, conv, path); err == nil {
		t.Fatal("expected error")
	}
	if st.Count() != 0 {
		t.Error("nothing should be stored on failure")
	}
}
