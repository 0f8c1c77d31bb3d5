package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blueprintmaster/blueprint/internal/llm"
)

// TextInConfig holds configuration for the TextIn client.
type TextInConfig struct {
	AppID      string
	SecretCode string
	BaseURL    string        // default: https://api.textin.com
	Timeout    time.Duration // default: 5m
}

// TextInClient implements Service against the TextIn pdf_to_markdown API.
// Any document format the upstream accepts (PDF, images, office files) is
// passed through as raw bytes.
type TextInClient struct {
	cfg            TextInConfig
	client         *http.Client
	circuitBreaker *llm.CircuitBreaker
}

// NewTextInClient creates a recognition client with the given configuration.
func NewTextInClient(cfg TextInConfig) *TextInClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.textin.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &TextInClient{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: llm.NewCircuitBreaker("textin-ocr"),
	}
}

// textinResponse is the envelope returned by pdf_to_markdown.
type textinResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Markdown string `json:"markdown"`
	} `json:"result"`
}

// Recognize uploads the document and returns the recognized markdown.
func (c *TextInClient) Recognize(ctx context.Context, document []byte) (string, error) {
	if c.cfg.AppID == "" || c.cfg.SecretCode == "" {
		return "", ErrMissingCredentials
	}
	if len(document) == 0 {
		return "", ErrEmptyDocument
	}

	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.recognize(ctx, document)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *TextInClient) recognize(ctx context.Context, document []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/ai/service/v1/pdf_to_markdown", bytes.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-ti-app-id", c.cfg.AppID)
	req.Header.Set("x-ti-secret-code", c.cfg.SecretCode)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("textin returned status %d: %s", resp.StatusCode, string(body))
	}

	var data textinResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	// The API signals failures through its own code field with HTTP 200.
	if data.Code != 200 {
		return "", fmt.Errorf("textin recognition failed: code %d: %s", data.Code, data.Message)
	}
	return data.Result.Markdown, nil
}

// Compile-time assertion.
var _ Service = (*TextInClient)(nil)
