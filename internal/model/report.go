package model

// ExtractionResult is produced once per extraction call and is read-only to callers
type ExtractionResult struct {
	Candidates []DeadlineCandidate `json:"candidates"`
	Stats      Stats               `json:"stats"`
}

// Stats aggregates one extraction call
type Stats struct {
	TotalDatesFound    int `json:"total_dates_found"`    // Every date-like string, accepted or not
	CandidatesEmitted  int `json:"candidates_emitted"`   // Candidates after deduplication
	LowConfidenceCount int `json:"low_confidence_count"` // Candidates below LowConfidenceThreshold
}

// Report is the document-level output written by the CLI and returned by the API
type Report struct {
	Source      string           `json:"source"`
	Pages       int              `json:"pages"`
	DefaultYear int              `json:"default_year"`
	Extraction  ExtractionResult `json:"extraction"`
	Cached      bool             `json:"cached,omitempty"`
}
