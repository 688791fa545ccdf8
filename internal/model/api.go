package model

import "time"

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the standard envelope for list endpoints.
type ListResponse struct {
	Data  any          `json:"data"`
	Total int          `json:"total"`
	Limit int          `json:"limit"`
	Meta  ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeDuplicate     = "DUPLICATE_INCIDENT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// CreateReportRequest is the request body for POST /v1/reports.
type CreateReportRequest struct {
	UserID       string `json:"user_id"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	DateObserved string `json:"date_observed,omitempty"`
}

// UpdateStatusRequest is the request body for POST /v1/incidents/{id}/status.
type UpdateStatusRequest struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// SetContactRequest is the request body for PUT /v1/contacts/{user_id}.
type SetContactRequest struct {
	Email string `json:"email"`
}

// ClassifyRequest is the request body for POST /v1/classify.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   string `json:"store"`
	Uptime  int64  `json:"uptime_seconds"`
}
