package chat

import (
	"fmt"

	"github.com/kailas-cloud/docchat/internal/domain"
)

// Request defaults.
const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// Request is a chat completion request: a chronological conversation whose
// last message is the active query.
type Request struct {
	messages    []Message
	maxTokens   int
	temperature float64
}

// NewRequest validates generation parameters and creates a Request.
// nil maxTokens/temperature take the defaults. An empty message list is
// accepted here and rejected by ActiveQuery.
func NewRequest(messages []Message, maxTokens *int, temperature *float64) (Request, error) {
	r := Request{
		messages:    append([]Message(nil), messages...),
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	if maxTokens != nil {
		if *maxTokens <= 0 {
			return Request{}, fmt.Errorf("%w: max_tokens must be positive, got %d", domain.ErrInvalidRequest, *maxTokens)
		}
		r.maxTokens = *maxTokens
	}
	if temperature != nil {
		if *temperature < 0 || *temperature > 2 {
			return Request{}, fmt.Errorf("%w: temperature must be within [0, 2], got %g", domain.ErrInvalidRequest, *temperature)
		}
		r.temperature = *temperature
	}
	return r, nil
}

// Messages returns the full conversation.
func (r Request) Messages() []Message { return r.messages }

// MaxTokens returns the completion length limit.
func (r Request) MaxTokens() int { return r.maxTokens }

// Temperature returns the sampling temperature.
func (r Request) Temperature() float64 { return r.temperature }

// ActiveQuery returns the content of the last message, whatever its role.
func (r Request) ActiveQuery() (string, error) {
	if len(r.messages) == 0 {
		return "", domain.ErrEmptyRequest
	}
	return r.messages[len(r.messages)-1].content, nil
}

// History returns the last n messages in their original order.
func (r Request) History(n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(r.messages) <= n {
		return r.messages
	}
	return r.messages[len(r.messages)-n:]
}
