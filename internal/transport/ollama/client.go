// Package ollama talks to a local language model server through its
// OpenAI-compatible API. Generation is slow, so the read timeout is
// materially longer than the connect timeout; a hung upstream can never
// block a request past that bound.
package ollama

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/clausebank/precedentd/internal/domain"
)

// Config holds the language model client settings.
type Config struct {
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Client streams chat completions from the model server.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewClient creates a language model client.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 5 * time.Second
	}
	read := cfg.ReadTimeout
	if read <= connect {
		read = 10 * connect
	}

	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{
		Timeout: read,
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: connect}).DialContext,
			ResponseHeaderTimeout: read,
		},
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// StreamChat opens a streaming chat completion. Fragments arrive through
// the returned stream one token at a time, terminated by io.EOF.
func (c *Client) StreamChat(ctx context.Context, systemPrompt, userPrompt string) (*Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	return &Stream{inner: stream}, nil
}

// Status reports reachability and whether the configured model is loaded.
// Diagnostics only, never on the request hot path.
type Status struct {
	Reachable   bool
	ModelLoaded bool
	Model       string
	Error       string
}

// HealthCheck queries the model list.
func (c *Client) HealthCheck(ctx context.Context) Status {
	st := Status{Model: c.model}

	models, err := c.client.ListModels(ctx)
	if err != nil {
		c.logger.Warn("language model health check failed", zap.Error(err))
		st.Error = err.Error()
		return st
	}

	st.Reachable = true
	for _, m := range models.Models {
		if modelMatches(m.ID, c.model) {
			st.ModelLoaded = true
			break
		}
	}
	return st
}

// modelMatches tolerates tag suffixes: "llama3.2" matches "llama3.2:latest".
func modelMatches(listed, configured string) bool {
	if listed == configured {
		return true
	}
	base, _, _ := strings.Cut(configured, ":")
	listedBase, _, _ := strings.Cut(listed, ":")
	return base != "" && base == listedBase
}

// Stream adapts the completion stream to the assembler's token contract.
type Stream struct {
	inner *openai.ChatCompletionStream
}

// Recv returns the next text fragment, io.EOF at end of stream.
func (s *Stream) Recv() (string, error) {
	resp, err := s.inner.Recv()
	if err == io.EOF {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

// Close releases the stream.
func (s *Stream) Close() {
	_ = s.inner.Close()
}
