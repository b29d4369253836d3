package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/clausebank/precedentd/internal/usecase/answer"
)

// sseSink writes assembler events as server-sent events, flushing after
// each one so tokens reach the client as they arrive. Emit fails once the
// client context is done, which stops the assembler promptly.
type sseSink struct {
	ctx     context.Context
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSESink prepares the response for event streaming. Returns an error
// when the underlying writer cannot flush.
func newSSESink(ctx context.Context, w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseSink{ctx: ctx, w: w, flusher: flusher}, nil
}

// Emit writes one event frame.
func (s *sseSink) Emit(ev answer.Event) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	var payload any
	switch ev.Type {
	case answer.TypeMeta:
		payload = ev.Meta
	case answer.TypeToken:
		payload = map[string]string{"token": ev.Token}
	case answer.TypeError:
		payload = map[string]string{"message": ev.Message}
	case answer.TypeDone:
		payload = ev.Done
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Type, err)
	}
	s.flusher.Flush()
	return nil
}
