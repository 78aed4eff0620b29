// Package gemini adapts the Google Gemini API to the chat completion contract.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/chat"
	"github.com/kailas-cloud/docchat/internal/metrics"
)

const provider = "gemini"

// Config holds Gemini connection settings.
type Config struct {
	APIKey  string
	BaseURL string // override for tests and proxies
	Model   string
	Logger  *zap.Logger
}

// Completer generates chat completions with a fixed Gemini model.
type Completer struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewCompleter creates a Gemini API client.
func NewCompleter(ctx context.Context, cfg *Config) (*Completer, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{client: client, model: cfg.Model, logger: logger}, nil
}

// Complete maps the conversation onto Gemini contents. System messages are
// concatenated into the system instruction in order; assistant turns become
// the "model" role.
func (c *Completer) Complete(ctx context.Context, messages []chat.Message, maxTokens int, temperature float64) (string, error) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range messages {
		switch m.Role() {
		case chat.RoleSystem:
			system = append(system, m.Content())
		case chat.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content(), genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content(), genai.RoleUser))
		}
	}

	temp := float32(temperature)
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens), //nolint:gosec // bounded by request validation
		Temperature:     &temp,
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(provider, c.model, "error").Inc()
		return "", fmt.Errorf("gemini generate: %v: %w", err, domain.ErrCompletionProviderError)
	}
	if len(resp.Candidates) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(provider, c.model, "error").Inc()
		return "", fmt.Errorf("gemini returned no candidates: %w", domain.ErrCompletionProviderError)
	}
	// An empty candidate is a valid, empty answer.
	text := resp.Text()

	metrics.CompletionRequestsTotal.WithLabelValues(provider, c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(provider, c.model).Observe(duration.Seconds())
	if u := resp.UsageMetadata; u != nil {
		metrics.CompletionTokensTotal.WithLabelValues(provider, c.model, "prompt").Add(float64(u.PromptTokenCount))
		metrics.CompletionTokensTotal.WithLabelValues(provider, c.model, "completion").Add(float64(u.CandidatesTokenCount))
	}

	c.logger.Debug("gemini completion",
		zap.String("model", c.model),
		zap.Int("contents", len(contents)),
		zap.Duration("duration", duration),
	)
	return text, nil
}

// HealthCheck fetches the configured model's metadata.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.model, nil); err != nil {
		return fmt.Errorf("get model %s: %w", c.model, err)
	}
	return nil
}
