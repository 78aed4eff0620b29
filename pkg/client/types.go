package client

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Source identifies a chunk that grounded a reply.
type Source struct {
	PDFName        string  `json:"pdf_name"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Reply is the assistant answer.
type Reply struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources,omitempty"`
}

// FileStatus reports one uploaded file.
type FileStatus struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
}

// OK reports whether the file was accepted for indexing.
func (f FileStatus) OK() bool { return f.Status == "success" }

// Stats summarizes extracted text.
type Stats struct {
	TotalChars      int `json:"total_chars"`
	TotalWords      int `json:"total_words"`
	TotalParagraphs int `json:"total_paragraphs"`
}

// Document is the extracted text of an uploaded PDF.
type Document struct {
	Filename string   `json:"filename"`
	Text     string   `json:"text"`
	Stats    Stats    `json:"stats"`
	Status   string   `json:"status"`
	Chunks   []string `json:"chunks,omitempty"`
}

// Health is the service health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type chatRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type uploadResponse struct {
	Message        string       `json:"message"`
	ProcessedFiles []FileStatus `json:"processed_files"`
}
