package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey     string
	Model      string        // default: gpt-4o-mini
	BaseURL    string        // default: https://api.openai.com
	Timeout    time.Duration // covers the entire stream; default: 10m
	MaxRetries int           // connect retries on transport failure; default: 2
}

// OpenAIClient implements ChatStreamer against any OpenAI-compatible
// /v1/chat/completions endpoint.
type OpenAIClient struct {
	cfg            OpenAIConfig
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// NewOpenAIClient creates a new streaming client with the given configuration.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	return &OpenAIClient{
		cfg: cfg,
		client: &http.Client{
			// The client timeout covers body reads too, bounding the
			// whole stream rather than just connection setup.
			Timeout: cfg.Timeout,
		},
		circuitBreaker: NewCircuitBreaker("openai-chat"),
	}
}

// chatStreamRequest is the request body for POST /v1/chat/completions.
type chatStreamRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// chatStreamChunk is one SSE data payload of a streaming completion.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// statusError is a non-2xx upstream response. It is not retried: the
// request reached the API and was rejected deliberately.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.code, e.body)
}

// ChatStream opens a streaming completion and returns a channel of text
// fragments. The channel closes when the stream ends; a mid-stream failure
// is delivered as a final StreamDelta with Err set.
func (c *OpenAIClient) ChatStream(ctx context.Context, messages []Message, temperature float64) (<-chan StreamDelta, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("chat stream requires at least one message")
	}

	jsonData, err := json.Marshal(chatStreamRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.connect(ctx, jsonData)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamDelta, 8)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return
			}

			var chunk chatStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				emit(ctx, out, StreamDelta{Err: fmt.Errorf("malformed stream chunk: %w", err)})
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				if !emit(ctx, out, StreamDelta{Content: content}) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			emit(ctx, out, StreamDelta{Err: fmt.Errorf("stream read failed: %w", err)})
		}
	}()
	return out, nil
}

// connect issues the upstream request through the circuit breaker, retrying
// transport failures with a short linear backoff. Status errors and an open
// circuit are returned immediately.
func (c *OpenAIClient) connect(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
			return c.doRequest(ctx, body)
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		var se *statusError
		if errors.As(err, &se) || errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to reach upstream after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

func (c *OpenAIClient) doRequest(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &statusError{code: resp.StatusCode, body: string(errBody)}
	}
	return resp, nil
}

// emit sends a delta unless the caller has gone away.
func emit(ctx context.Context, out chan<- StreamDelta, d StreamDelta) bool {
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

// GetModel returns the configured model name.
func (c *OpenAIClient) GetModel() string {
	return c.cfg.Model
}

// Compile-time assertion.
var _ ChatStreamer = (*OpenAIClient)(nil)
