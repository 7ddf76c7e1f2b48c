package server

import "github.com/ppiankov/panicbutton/internal/model"

// ExtractRequest is the request body for POST /api/v1/extract.
type ExtractRequest struct {
	Text        string `json:"text" validate:"required"`
	DefaultYear int    `json:"default_year" validate:"omitempty,min=1900,max=2100"`
	Pages       int    `json:"pages" validate:"omitempty,min=1"`
	Source      string `json:"source" validate:"max=512"`
}

// ExportRequest is the request body for POST /api/v1/export/ics and /api/v1/export/csv.
type ExportRequest struct {
	Candidates    []model.DeadlineCandidate `json:"candidates" validate:"required"`
	MinConfidence *int                      `json:"min_confidence" validate:"omitempty,min=0,max=100"`
	Query         string                    `json:"query"`
	Sort          string                    `json:"sort" validate:"omitempty,oneof=date-asc date-desc confidence-desc"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
