package answer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/clausebank/precedentd/internal/domain"
	"github.com/clausebank/precedentd/internal/prompt"
)

// --- Mocks ---

type captureSink struct {
	events  []Event
	failAt  int // emit index that fails, -1 never
	emitted int
}

func newCaptureSink() *captureSink {
	return &captureSink{failAt: -1}
}

func (s *captureSink) Emit(ev Event) error {
	if s.failAt >= 0 && s.emitted == s.failAt {
		return errors.New("consumer gone")
	}
	s.emitted++
	s.events = append(s.events, ev)
	return nil
}

type scriptedStream struct {
	tokens []string
	err    error // returned after tokens run out; io.EOF for clean end
	closed bool
}

func (s *scriptedStream) Recv() (string, error) {
	if len(s.tokens) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return tok, nil
}

func (s *scriptedStream) Close() { s.closed = true }

type mockGenerator struct {
	stream   *scriptedStream
	err      error
	called   bool
	lastUser string
}

func (g *mockGenerator) StreamChat(_ context.Context, _, user string) (TokenStream, error) {
	g.called = true
	g.lastUser = user
	if g.err != nil {
		return nil, g.err
	}
	return g.stream, nil
}

func sufficientEvidence() domain.EvidenceSet {
	return domain.EvidenceSet{
		Results: []domain.RetrievalResult{
			{
				Cluster: domain.ClauseCluster{
					ID:           "7a4638ab-0000-0000-0000-000000000001",
					TenantID:     "Bank_A",
					TextContent:  "This Agreement is governed by English law.",
					CodifiedData: domain.CodifiedData{"Governing Law": {"Jurisdiction": "English Law"}},
				},
				Score: 0.88,
			},
		},
		Threshold:  0.62,
		Tenants:    []string{"Bank_A", "Bank_B", "Bank_C"},
		Sufficient: true,
	}
}

func insufficientEvidence() domain.EvidenceSet {
	return domain.EvidenceSet{
		Threshold: 0.62,
		Tenants:   []string{"Bank_A", "Bank_B", "Bank_C"},
	}
}

func newTestAssembler(gen Generator, llmEnabled bool) *Assembler {
	return New(gen, prompt.MustNewRegistry(), Config{
		LLMEnabled: llmEnabled,
		Model:      "llama3.2:latest",
	}, zap.NewNop())
}

// checkStreamShape asserts the contract: meta first, exactly one done last,
// error events (if any) before done.
func checkStreamShape(t *testing.T, events []Event) {
	t.Helper()
	if len(events) < 2 {
		t.Fatalf("expected at least meta and done, got %d events", len(events))
	}
	if events[0].Type != TypeMeta {
		t.Errorf("first event: expected meta, got %s", events[0].Type)
	}
	if events[len(events)-1].Type != TypeDone {
		t.Errorf("last event: expected done, got %s", events[len(events)-1].Type)
	}
	doneCount := 0
	for _, ev := range events {
		if ev.Type == TypeDone {
			doneCount++
		}
	}
	if doneCount != 1 {
		t.Errorf("expected exactly one done event, got %d", doneCount)
	}
}

func tokenText(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == TypeToken {
			b.WriteString(ev.Token)
		}
	}
	return b.String()
}

// --- Tests ---

func TestRun_TemplateAnswerWhenLLMDisabled(t *testing.T) {
	sink := newCaptureSink()
	asm := newTestAssembler(nil, false)

	err := asm.Run(context.Background(), Request{Evidence: sufficientEvidence()}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkStreamShape(t, sink.events)

	meta := sink.events[0].Meta
	if meta == nil || !meta.EvidenceFound {
		t.Fatal("meta should report evidence found")
	}
	if meta.Model != "" {
		t.Errorf("meta model should be empty when disabled, got %q", meta.Model)
	}

	text := tokenText(sink.events)
	if !strings.Contains(text, "Based on historical cluster decisions") {
		t.Errorf("expected the template answer, got: %s", text)
	}

	done := sink.events[len(sink.events)-1].Done
	if done == nil || !done.EvidenceFound {
		t.Fatal("done should report evidence found")
	}
	if len(done.Citations) != 1 {
		t.Errorf("expected 1 citation, got %v", done.Citations)
	}
	if done.TokenCount == 0 {
		t.Error("done should carry the token count")
	}
}

func TestRun_NoEvidence_FreeText(t *testing.T) {
	gen := &mockGenerator{stream: &scriptedStream{tokens: []string{"never"}}}
	sink := newCaptureSink()
	asm := newTestAssembler(gen, true)

	err := asm.Run(context.Background(), Request{Evidence: insufficientEvidence()}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkStreamShape(t, sink.events)

	if gen.called {
		t.Error("the model must never be invoked without evidence")
	}
	if !strings.Contains(tokenText(sink.events), "cannot answer from precedent") {
		t.Errorf("expected the no-evidence answer, got: %s", tokenText(sink.events))
	}

	done := sink.events[len(sink.events)-1].Done
	if done.EvidenceFound {
		t.Error("done should report no evidence")
	}
	if done.Citations == nil || len(done.Citations) != 0 {
		t.Errorf("citations should be empty, not nil: %v", done.Citations)
	}
}

func TestRun_NoEvidence_StructuredWording(t *testing.T) {
	sink := newCaptureSink()
	asm := newTestAssembler(nil, false)

	err := asm.Run(context.Background(), Request{
		Evidence:   insufficientEvidence(),
		Structured: true,
	}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(tokenText(sink.events), "No matching precedents found") {
		t.Errorf("expected the no-match answer, got: %s", tokenText(sink.events))
	}
}

func TestRun_ModelStreamHappyPath(t *testing.T) {
	stream := &scriptedStream{tokens: []string{"The ", "clusters ", "show..."}}
	gen := &mockGenerator{stream: stream}
	sink := newCaptureSink()
	asm := newTestAssembler(gen, true)

	err := asm.Run(context.Background(), Request{
		Evidence: sufficientEvidence(),
		Term:     "Governing Law",
		Criteria: "Term: Governing Law",
	}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkStreamShape(t, sink.events)

	if !gen.called {
		t.Fatal("expected the model to be invoked")
	}
	if !stream.closed {
		t.Error("the model stream must be closed")
	}
	if got := tokenText(sink.events); got != "The clusters show..." {
		t.Errorf("unexpected answer text: %q", got)
	}
	if !strings.Contains(gen.lastUser, "Term: Governing Law") {
		t.Error("criteria should be substituted into the user prompt")
	}
	if !strings.Contains(gen.lastUser, "Bank_A") {
		t.Error("evidence context should be substituted into the user prompt")
	}

	meta := sink.events[0].Meta
	if meta.Model != "llama3.2:latest" {
		t.Errorf("meta should name the model, got %q", meta.Model)
	}
}

func TestRun_MidStreamFailureFallsBackToTemplate(t *testing.T) {
	stream := &scriptedStream{
		tokens: []string{"Partial ", "answer "},
		err:    errors.New("connection reset"),
	}
	gen := &mockGenerator{stream: stream}
	sink := newCaptureSink()
	asm := newTestAssembler(gen, true)

	err := asm.Run(context.Background(), Request{Evidence: sufficientEvidence()}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkStreamShape(t, sink.events)

	var sawError bool
	for _, ev := range sink.events {
		if ev.Type == TypeError {
			sawError = true
			if !strings.Contains(ev.Message, "LLM error") {
				t.Errorf("unexpected error message: %s", ev.Message)
			}
		}
	}
	if !sawError {
		t.Error("expected an error event before the fallback")
	}

	text := tokenText(sink.events)
	if !strings.Contains(text, "Partial answer") {
		t.Error("model tokens emitted before the failure must be preserved")
	}
	if !strings.Contains(text, "Based on historical cluster decisions") {
		t.Error("expected the template fallback after the failure")
	}
}

func TestRun_ConnectFailureFallsBackToTemplate(t *testing.T) {
	gen := &mockGenerator{err: errors.New("dial tcp: connection refused")}
	sink := newCaptureSink()
	asm := newTestAssembler(gen, true)

	err := asm.Run(context.Background(), Request{Evidence: sufficientEvidence()}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkStreamShape(t, sink.events)

	if !strings.Contains(tokenText(sink.events), "Based on historical cluster decisions") {
		t.Error("expected the template fallback")
	}
}

func TestRun_SinkFailureStopsWithoutTerminal(t *testing.T) {
	sink := newCaptureSink()
	sink.failAt = 2 // meta, one token, then gone
	asm := newTestAssembler(nil, false)

	err := asm.Run(context.Background(), Request{Evidence: sufficientEvidence()}, sink)
	if err == nil {
		t.Fatal("expected an error when the consumer disappears")
	}
	for _, ev := range sink.events {
		if ev.Type == TypeDone {
			t.Error("no terminal event may follow a dead consumer")
		}
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := newCaptureSink()
	asm := newTestAssembler(nil, false)

	err := asm.Run(ctx, Request{Evidence: sufficientEvidence()}, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("no events should be emitted after cancellation, got %d", len(sink.events))
	}
}
