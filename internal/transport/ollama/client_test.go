package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clausebank/precedentd/internal/domain"
)

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:        baseURL,
		Model:          "llama3.2:latest",
		Temperature:    0.1,
		MaxTokens:      64,
		ConnectTimeout: time.Second,
		ReadTimeout:    5 * time.Second,
	}
}

// sseChunk writes one OpenAI-compatible streaming chunk.
func sseChunk(w http.ResponseWriter, content string) {
	fmt.Fprintf(w,
		"data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestStreamChat_TokensAndEOF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		sseChunk(w, "Hello")
		sseChunk(w, " world")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), zap.NewNop())
	stream, err := c.StreamChat(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	defer stream.Close()

	var got string
	for {
		tok, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		got += tok
	}
	if got != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", got)
	}
}

func TestStreamChat_ConnectFailure(t *testing.T) {
	c := NewClient(testConfig("http://127.0.0.1:1"), zap.NewNop())

	_, err := c.StreamChat(context.Background(), "system", "user")
	if !errors.Is(err, domain.ErrLLMUnavailable) {
		t.Errorf("expected ErrLLMUnavailable, got %v", err)
	}
}

func TestHealthCheck_ModelLoaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"llama3.2:latest","object":"model"}]}`)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), zap.NewNop())
	st := c.HealthCheck(context.Background())

	if !st.Reachable {
		t.Error("expected reachable")
	}
	if !st.ModelLoaded {
		t.Error("expected model loaded")
	}
	if st.Model != "llama3.2:latest" {
		t.Errorf("unexpected model: %s", st.Model)
	}
}

func TestHealthCheck_ModelMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"mistral:7b","object":"model"}]}`)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), zap.NewNop())
	st := c.HealthCheck(context.Background())

	if !st.Reachable {
		t.Error("expected reachable")
	}
	if st.ModelLoaded {
		t.Error("model should not be reported as loaded")
	}
}

func TestHealthCheck_Unreachable(t *testing.T) {
	c := NewClient(testConfig("http://127.0.0.1:1"), zap.NewNop())
	st := c.HealthCheck(context.Background())

	if st.Reachable {
		t.Error("expected unreachable")
	}
	if st.Error == "" {
		t.Error("expected an error message")
	}
}

func TestModelMatches(t *testing.T) {
	cases := []struct {
		listed, configured string
		want               bool
	}{
		{"llama3.2:latest", "llama3.2:latest", true},
		{"llama3.2", "llama3.2:latest", true},
		{"llama3.2:latest", "llama3.2", true},
		{"mistral:7b", "llama3.2:latest", false},
	}
	for _, c := range cases {
		if got := modelMatches(c.listed, c.configured); got != c.want {
			t.Errorf("modelMatches(%q, %q): got %v, want %v", c.listed, c.configured, got, c.want)
		}
	}
}
