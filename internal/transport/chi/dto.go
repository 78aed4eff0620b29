package chi

import (
	"github.com/kailas-cloud/docchat/internal/domain/chunk"
	"github.com/kailas-cloud/docchat/internal/domain/retrieval"
)

// ErrorCode is the machine-readable error kind in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest              ErrorCode = "bad_request"
	ErrorCodeValidationFailed        ErrorCode = "validation_failed"
	ErrorCodeEmptyRequest            ErrorCode = "empty_request"
	ErrorCodeNotPDF                  ErrorCode = "not_pdf"
	ErrorCodeNotFound                ErrorCode = "not_found"
	ErrorCodeEmptyDocument           ErrorCode = "empty_document"
	ErrorCodeQueueFull               ErrorCode = "queue_full"
	ErrorCodeEmbeddingProviderError  ErrorCode = "embedding_provider_error"
	ErrorCodeCompletionProviderError ErrorCode = "completion_provider_error"
	ErrorCodeUnauthorized            ErrorCode = "unauthorized"
	ErrorCodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ChatMessage is one conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat/chat-completions.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// ChatResponse carries the assistant reply.
type ChatResponse struct {
	Response string             `json:"response"`
	Sources  []retrieval.Source `json:"sources,omitempty"`
}

// FileStatus reports one processed upload.
type FileStatus struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
}

// UploadResponse is the body of POST /upload/.
type UploadResponse struct {
	Message        string       `json:"message"`
	ProcessedFiles []FileStatus `json:"processed_files"`
}

// TextResponse is the body of GET /upload/text/{filename}.
type TextResponse struct {
	Filename string      `json:"filename"`
	Text     string      `json:"text"`
	Stats    chunk.Stats `json:"stats"`
	Status   string      `json:"status"`
	Chunks   []string    `json:"chunks,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
