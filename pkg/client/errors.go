package client

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError codes.
// Use errors.Is() to check.
var (
	ErrNotPDF             = errors.New("not a pdf")
	ErrEmptyRequest       = errors.New("empty request")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrEmptyDocument      = errors.New("empty document")
	ErrQueueFull          = errors.New("indexing queue full")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrProviderError      = errors.New("upstream provider error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

var codeSentinels = map[string]error{
	"not_pdf":                   ErrNotPDF,
	"empty_request":             ErrEmptyRequest,
	"validation_failed":         ErrInvalidRequest,
	"bad_request":               ErrInvalidRequest,
	"not_found":                 ErrNotFound,
	"empty_document":            ErrEmptyDocument,
	"queue_full":                ErrQueueFull,
	"unauthorized":              ErrUnauthorized,
	"embedding_provider_error":  ErrProviderError,
	"completion_provider_error": ErrProviderError,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("docchat: http %d", e.StatusCode)
	}
	return fmt.Sprintf("docchat: %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Is matches the sentinel for the error code.
func (e *APIError) Is(target error) bool {
	if s, ok := codeSentinels[e.Code]; ok && s == target {
		return true
	}
	return target == ErrServiceUnavailable && e.StatusCode == 503
}
