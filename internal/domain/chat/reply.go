package chat

import "github.com/kailas-cloud/docchat/internal/domain/retrieval"

// Outcome classifies how a reply was produced.
type Outcome string

// Reply outcomes.
const (
	// OutcomeGrounded means at least one retrieved chunk passed the relevance threshold.
	OutcomeGrounded Outcome = "grounded"
	// OutcomeGeneral means no chunk qualified and the general prompt was used.
	OutcomeGeneral Outcome = "general"
	// OutcomeDegraded means a dependency failed and the fallback text was returned.
	OutcomeDegraded Outcome = "degraded"
)

// FallbackText is returned to the user when the pipeline fails after validation.
const FallbackText = "I encountered an error while processing your request. " +
	"Please try again or rephrase your question."

// Reply is the result of a chat completion.
type Reply struct {
	text    string
	outcome Outcome
	sources []retrieval.Source
	cause   error
}

// Answered creates a successful reply.
func Answered(text string, outcome Outcome, sources []retrieval.Source) Reply {
	return Reply{text: text, outcome: outcome, sources: sources}
}

// Degraded creates a fallback reply that remembers its cause for logging.
func Degraded(cause error) Reply {
	return Reply{text: FallbackText, outcome: OutcomeDegraded, cause: cause}
}

// Text returns the text shown to the user.
func (r Reply) Text() string { return r.text }

// Outcome returns the reply classification.
func (r Reply) Outcome() Outcome { return r.outcome }

// Sources returns the chunks that grounded the reply.
func (r Reply) Sources() []retrieval.Source { return r.sources }

// Cause returns the failure behind a degraded reply.
func (r Reply) Cause() error { return r.cause }
