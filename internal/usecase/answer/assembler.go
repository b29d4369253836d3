// Package answer turns a gated evidence set into an ordered event stream:
// meta, then answer tokens, then exactly one terminal event, on every path
// including language-model failure.
package answer

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/clausebank/precedentd/internal/domain"
	"github.com/clausebank/precedentd/internal/metrics"
	"github.com/clausebank/precedentd/internal/repository/audit"
)

// Request carries one answer run's inputs.
type Request struct {
	Evidence domain.EvidenceSet
	// Term selects the prompt template; empty uses the default.
	Term string
	// Criteria is the human-readable search description for the prompt.
	Criteria string
	// Structured picks the presence-gated negative answer wording.
	Structured bool
}

// state is the assembler's position in the per-request machine:
// Gathering -> Gated(pass|fail) -> Answering -> Terminal.
type state int

const (
	stateGathering state = iota
	stateGatedPass
	stateGatedFail
	stateAnswering
	stateTerminal
)

// Config holds the assembler tunables.
type Config struct {
	LLMEnabled bool
	Model      string
}

// Assembler drives the answer state machine.
type Assembler struct {
	llm     Generator
	prompts Prompts
	cfg     Config
	logger  *zap.Logger
}

// New creates an assembler. llm may be nil when the model path is disabled.
func New(llm Generator, prompts Prompts, cfg Config, logger *zap.Logger) *Assembler {
	return &Assembler{llm: llm, prompts: prompts, cfg: cfg, logger: logger}
}

// Model returns the configured model identifier, empty when disabled.
func (a *Assembler) Model() string {
	if !a.cfg.LLMEnabled {
		return ""
	}
	return a.cfg.Model
}

// Run executes the state machine against the sink. It returns an error only
// when the consumer disappeared (ctx cancelled or sink failure); in that
// case no further events, terminal included, are emitted. On every other
// path exactly one done event is emitted.
func (a *Assembler) Run(ctx context.Context, req Request, sink Sink) error {
	r := &run{a: a, req: req, sink: sink}

	st := stateGathering
	for st != stateTerminal {
		var err error
		switch st {
		case stateGathering:
			st, err = r.gather(ctx)
		case stateGatedFail:
			st, err = r.answerNegative(ctx)
		case stateGatedPass:
			st = stateAnswering
		case stateAnswering:
			st, err = r.answer(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// run is one request's mutable progress.
type run struct {
	a         *Assembler
	req       Request
	sink      Sink
	tokens    int
	citations []string
}

// emit forwards one event, honoring cancellation first.
func (r *run) emit(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.Type == TypeToken {
		r.tokens++
	}
	return r.sink.Emit(ev)
}

// gather emits the meta event and resolves the gate outcome.
func (r *run) gather(ctx context.Context) (state, error) {
	ev := r.req.Evidence
	err := r.emit(ctx, Event{Type: TypeMeta, Meta: &Meta{
		EvidenceFound:   ev.Sufficient,
		Scope:           audit.GlobalScope,
		SearchedTenants: ev.Tenants,
		Model:           r.a.Model(),
	}})
	if err != nil {
		return stateTerminal, err
	}
	if !ev.Sufficient {
		return stateGatedFail, nil
	}
	return stateGatedPass, nil
}

// answerNegative streams the synthetic negative answer and terminates.
// The language model is never invoked without evidence.
func (r *run) answerNegative(ctx context.Context) (state, error) {
	msg := noEvidenceAnswer
	if r.req.Structured {
		msg = noMatchAnswer
	}
	if err := r.streamWords(ctx, msg); err != nil {
		return stateTerminal, err
	}
	return r.finish(ctx)
}

// answer streams the evidence-backed answer, via the language model when
// enabled and falling back to the deterministic template on any failure.
func (r *run) answer(ctx context.Context) (state, error) {
	r.citations = r.req.Evidence.CitationIDs(maxCitations)

	if r.a.cfg.LLMEnabled && r.a.llm != nil {
		done, err := r.streamModel(ctx)
		if err != nil {
			return stateTerminal, err
		}
		if done {
			return r.finish(ctx)
		}
		// Model path failed; the error event is already out. Fall back.
		metrics.LLMFallbacksTotal.Inc()
	}

	text, citations := TemplateAnswer(r.req.Evidence)
	r.citations = citations
	if err := r.streamWords(ctx, text); err != nil {
		return stateTerminal, err
	}
	return r.finish(ctx)
}

// streamModel pulls model tokens one at a time. Returns done=true when the
// stream completed cleanly, done=false after emitting an error event when
// the model failed and the template should take over. A non-nil error means
// the consumer is gone.
func (r *run) streamModel(ctx context.Context) (bool, error) {
	tmpl := r.a.prompts.For(r.req.Term)
	user := tmpl.FillUser(r.req.Criteria, formatContext(r.req.Evidence))

	stream, err := r.a.llm.StreamChat(ctx, tmpl.System, user)
	if err != nil {
		return false, r.modelError(ctx, err)
	}
	defer stream.Close()

	for {
		tok, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return false, r.modelError(ctx, err)
		}
		if tok == "" {
			continue
		}
		if err := r.emit(ctx, Event{Type: TypeToken, Token: tok}); err != nil {
			return false, err
		}
		metrics.LLMTokensTotal.Inc()
	}
}

// modelError reports a model failure to the caller as an informational
// event. Cancellation is not a model failure: it propagates so the run
// stops without a fallback.
func (r *run) modelError(ctx context.Context, cause error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	metrics.LLMStreamErrorsTotal.Inc()
	r.a.logger.Warn("language model stream failed, falling back to template", zap.Error(cause))
	return r.emit(ctx, Event{Type: TypeError, Message: "LLM error: " + cause.Error()})
}

// streamWords emits a deterministic answer word by word.
func (r *run) streamWords(ctx context.Context, text string) error {
	for _, w := range strings.Fields(text) {
		if err := r.emit(ctx, Event{Type: TypeToken, Token: w + " "}); err != nil {
			return err
		}
	}
	return nil
}

// finish emits the single terminal event.
func (r *run) finish(ctx context.Context) (state, error) {
	if r.citations == nil {
		r.citations = []string{}
	}
	err := r.emit(ctx, Event{Type: TypeDone, Done: &Done{
		Citations:     r.citations,
		EvidenceFound: r.req.Evidence.Sufficient,
		TokenCount:    r.tokens,
	}})
	return stateTerminal, err
}
