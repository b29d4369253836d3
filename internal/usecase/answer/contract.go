package answer

import (
	"context"

	"github.com/clausebank/precedentd/internal/prompt"
)

// TokenStream yields language-model output one fragment at a time.
// Recv returns io.EOF on the explicit end-of-stream signal.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// Generator is the streaming text-completion collaborator.
type Generator interface {
	StreamChat(ctx context.Context, systemPrompt, userPrompt string) (TokenStream, error)
}

// Prompts resolves term-specific prompt templates with a guaranteed default.
type Prompts interface {
	For(term string) prompt.Template
}

// Sink consumes the ordered event stream. Emit blocks until the consumer
// accepts the event; an error means the consumer is gone and no further
// events may be emitted.
type Sink interface {
	Emit(ev Event) error
}
