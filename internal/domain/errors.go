package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed client request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmptyRequest signals a chat request without messages.
	ErrEmptyRequest = errors.New("chat request has no messages")
	// ErrNotPDF signals an upload with a non-PDF filename.
	ErrNotPDF = errors.New("only PDF files are supported")
	// ErrEmptyDocument signals a PDF without extractable text.
	ErrEmptyDocument = errors.New("no text could be extracted")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a chat completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
	// ErrQueueFull signals that the background indexing queue cannot accept work.
	ErrQueueFull = errors.New("indexing queue is full")
	// ErrQueueClosed signals submission after shutdown began.
	ErrQueueClosed = errors.New("indexing queue is closed")
)

// NotPDFError names the rejected file and unwraps to ErrNotPDF.
type NotPDFError struct {
	Filename string
}

func (e *NotPDFError) Error() string {
	return fmt.Sprintf("file %s is not a PDF. %s", e.Filename, ErrNotPDF.Error())
}

func (e *NotPDFError) Unwrap() error { return ErrNotPDF }

// NewNotPDF creates a rejection error for filename.
func NewNotPDF(filename string) error {
	return &NotPDFError{Filename: filename}
}
