package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/chat"
	domingest "github.com/kailas-cloud/docchat/internal/domain/ingest"
	"github.com/kailas-cloud/docchat/internal/logger"
	healthuc "github.com/kailas-cloud/docchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docchat/internal/usecase/ingest"
)

const (
	uploadField          = "files"
	uploadMemory         = 32 << 20
	uploadSuccessMessage = "Files processed successfully"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	chat           ChatService
	ingest         IngestService
	health         HealthService
	exposeSources  bool
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// Option configures a Server.
type Option func(*Server)

// WithExposeSources includes retrieval sources in chat responses.
func WithExposeSources(v bool) Option {
	return func(s *Server) { s.exposeSources = v }
}

// WithMaxUploadBytes caps the multipart body size. Zero means unlimited.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) { s.maxUploadBytes = n }
}

// NewServer creates an HTTP API server.
func NewServer(chatSvc ChatService, ingestSvc IngestService, health HealthService, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		chat:   chatSvc,
		ingest: ingestSvc,
		health: health,
		logger: log,
	}
	for _, o := range opts {
		o(s)
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotPDF, http.StatusBadRequest, ErrorCodeNotPDF),
		sentinelHandler(domain.ErrEmptyRequest, http.StatusBadRequest, ErrorCodeEmptyRequest),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrEmptyDocument, http.StatusUnprocessableEntity, ErrorCodeEmptyDocument),
		sentinelHandler(domain.ErrQueueFull, http.StatusServiceUnavailable, ErrorCodeQueueFull),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, ErrorCodeCompletionProviderError),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r gochi.Router) {
	r.Post("/chat/chat-completions", s.ChatCompletions)
	r.Post("/upload/", s.Upload)
	r.Get("/upload/text/{filename}", s.GetText)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
}

// ChatCompletions handles POST /chat/chat-completions.
func (s *Server) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := chatRequestFromBody(&body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	reply, err := s.chat.Complete(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := ChatResponse{Response: reply.Text()}
	if s.exposeSources {
		resp.Sources = reply.Sources()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Upload handles POST /upload/ with multipart field "files".
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "No files provided")
		return
	}

	files, closeAll, err := openParts(headers)
	defer closeAll()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	results, err := s.ingest.Upload(r.Context(), files)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := UploadResponse{
		Message:        uploadSuccessMessage,
		ProcessedFiles: make([]FileStatus, len(results)),
	}
	for i, res := range results {
		resp.ProcessedFiles[i] = fileStatusFromResult(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetText handles GET /upload/text/{filename}.
func (s *Server) GetText(w http.ResponseWriter, r *http.Request) {
	var filename string
	err := runtime.BindStyledParameterWithOptions("simple", "filename", gochi.URLParam(r, "filename"), &filename,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, fmt.Sprintf("Invalid filename: %s", err))
		return
	}

	var includeChunks bool
	if err := runtime.BindQueryParameter("form", true, false, "include_chunks", r.URL.Query(), &includeChunks); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, fmt.Sprintf("Invalid include_chunks: %s", err))
		return
	}

	doc, err := s.ingest.Text(r.Context(), filename, includeChunks)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TextResponse{
		Filename: doc.Filename,
		Text:     doc.Text,
		Stats:    doc.Stats,
		Status:   string(domingest.StatusSuccess),
		Chunks:   doc.Chunks,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func chatRequestFromBody(body *ChatRequest) (chat.Request, error) {
	msgs := make([]chat.Message, 0, len(body.Messages))
	for i, m := range body.Messages {
		msg, err := chat.NewMessage(chat.Role(m.Role), m.Content)
		if err != nil {
			return chat.Request{}, fmt.Errorf("messages[%d]: %w", i, err)
		}
		msgs = append(msgs, msg)
	}
	req, err := chat.NewRequest(msgs, body.MaxTokens, body.Temperature)
	if err != nil {
		return chat.Request{}, fmt.Errorf("chat request: %w", err)
	}
	return req, nil
}

// openParts opens every uploaded part. closeAll is safe to call on error.
func openParts(headers []*multipart.FileHeader) ([]ingestuc.File, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	files := make([]ingestuc.File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		closers = append(closers, f)
		files = append(files, ingestuc.File{Name: h.Filename, Content: f})
	}
	return files, closeAll, nil
}

func fileStatusFromResult(r domingest.FileResult) FileStatus {
	fs := FileStatus{Filename: r.Filename(), Status: string(r.Status()), TaskID: r.TaskID()}
	if err := r.Err(); err != nil {
		fs.Error = err.Error()
	} else {
		fs.Message = domingest.PendingMessage
	}
	return fs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, clientMessage(err))
		return true
	}
}

// clientMessage keeps the rejected filename for non-PDF errors and the full chain otherwise.
func clientMessage(err error) string {
	var npe *domain.NotPDFError
	if errors.As(err, &npe) {
		return npe.Error()
	}
	return err.Error()
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, err.Error())
}
