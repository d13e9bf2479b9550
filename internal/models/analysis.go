package models

import "encoding/json"

// Error messages for the failure variants of an analysis result.
// These are part of the wire contract: clients match on the error string.
const (
	ErrParseFailed      = "Failed to parse JSON response"
	ErrSchemaValidation = "Response schema validation failed"
	ErrAnalysisFailed   = "Analysis failed"
)

// AnalysisError describes a failed analysis. Message is one of the Err*
// constants; RawContent carries the sanitized model reply when one was
// received (parse and schema failures only).
type AnalysisError struct {
	Message    string `json:"error"`
	Details    string `json:"details"`
	RawContent string `json:"raw_content,omitempty"`
}

// AnalysisResult is the outcome of one analysis pass: either a structured
// mapping matching the pass schema, or an error record. Immutable once
// stored under its pass number.
type AnalysisResult struct {
	Data map[string]interface{}
	Err  *AnalysisError
}

// NewAnalysisData returns a successful result.
func NewAnalysisData(data map[string]interface{}) *AnalysisResult {
	return &AnalysisResult{Data: data}
}

// NewAnalysisError returns a failed result. rawContent may be empty.
func NewAnalysisError(message, details, rawContent string) *AnalysisResult {
	return &AnalysisResult{Err: &AnalysisError{
		Message:    message,
		Details:    details,
		RawContent: rawContent,
	}}
}

// Failed reports whether the result is an error record.
func (r *AnalysisResult) Failed() bool {
	return r.Err != nil
}

// MarshalJSON renders the pass data directly on success, or the
// {error, details, raw_content?} record on failure.
func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(r.Err)
	}
	return json.Marshal(r.Data)
}

// UnmarshalJSON inverts MarshalJSON: an object whose "error" key holds one
// of the known error messages is decoded as a failure, anything else as data.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if msg, ok := m["error"].(string); ok {
		switch msg {
		case ErrParseFailed, ErrSchemaValidation, ErrAnalysisFailed:
			var e AnalysisError
			if err := json.Unmarshal(data, &e); err != nil {
				return err
			}
			r.Err = &e
			r.Data = nil
			return nil
		}
	}
	r.Data = m
	r.Err = nil
	return nil
}
