package models

// UploadResponse is returned after a successful paper upload.
type UploadResponse struct {
	DocumentID string                 `json:"document_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	Message    string                 `json:"message"`
}

// AnalyzeResponse is returned for an analyze request. Cached reports whether
// the analysis was served from the per-pass cache rather than computed.
type AnalyzeResponse struct {
	Analysis *AnalysisResult        `json:"analysis"`
	Metadata map[string]interface{} `json:"metadata"`
	Images   []ImageRecord          `json:"images"`
	Cached   bool                   `json:"cached"`
}

// DocumentInfo summarizes a stored document without its full content.
type DocumentInfo struct {
	DocumentID     string                 `json:"document_id"`
	Metadata       map[string]interface{} `json:"metadata"`
	ImageCount     int                    `json:"image_count"`
	AnalyzedPasses []int                  `json:"analyzed_passes"`
	CreatedAt      string                 `json:"created_at"`
}
