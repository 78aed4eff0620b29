package ingest

import "github.com/kailas-cloud/docchat/internal/domain/chunk"

// Status is the processing outcome of one uploaded file.
type Status string

// File status values.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// PendingMessage is reported for files whose embeddings are still being written.
const PendingMessage = "processing, embeddings pending"

// FileResult is the outcome of processing one file.
type FileResult struct {
	filename string
	status   Status
	taskID   string
	err      error
}

// Scheduled creates a success result for a file whose indexing task was queued.
func Scheduled(filename, taskID string) FileResult {
	return FileResult{filename: filename, status: StatusSuccess, taskID: taskID}
}

// Failed creates an error result.
func Failed(filename string, err error) FileResult {
	return FileResult{filename: filename, status: StatusError, err: err}
}

// Filename returns the processed file name.
func (r FileResult) Filename() string { return r.filename }

// Status returns the processing outcome.
func (r FileResult) Status() Status { return r.status }

// TaskID returns the background indexing task identifier.
func (r FileResult) TaskID() string { return r.taskID }

// Err returns the error, if any.
func (r FileResult) Err() error { return r.err }

// Document is the cleaned text of a stored file.
type Document struct {
	Filename string
	Text     string
	Stats    chunk.Stats
	Chunks   []string
}
