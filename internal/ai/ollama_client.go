package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaClient is a minimal HTTP client for a local Ollama runtime.
type OllamaClient struct {
	httpClient       *http.Client
	host             string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

// NewOllamaClient creates a new client targeting the given host (e.g., http://127.0.0.1:11434).
func NewOllamaClient(host string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OllamaClient {
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 2
	}
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = time.Second
	}
	return &OllamaClient{
		httpClient:       &http.Client{Timeout: httpTimeout},
		host:             strings.TrimRight(host, "/"),
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
	}
}

// Structures aligned with Ollama /api/chat (non-streaming)
type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// Generate sends a chat request to Ollama and maps the response to GenerateResponse.
// Connection failures surface as UnreachableError so callers can tell a
// stopped daemon apart from a model problem.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	oreq := ollamaChatRequest{Model: req.Model, Messages: req.Messages, Options: map[string]any{}}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}
	payload, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	backoff := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, retry, err := c.do(ctx, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retry || attempt == c.retryMaxAttempts {
			break
		}
		wait := withJitter(backoff)
		if wait > c.retryMaxDelay {
			wait = c.retryMaxDelay
		}
		backoff *= 2
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *OllamaClient) do(ctx context.Context, payload []byte) (*GenerateResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, isRetryableNetErr(err), &UnreachableError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, false, &ModelNotFoundError{APIError: apiErr}
		case resp.StatusCode >= 500:
			return nil, true, &ServerError{APIError: apiErr}
		case resp.StatusCode == http.StatusBadRequest:
			return nil, false, &BadRequestError{APIError: apiErr}
		}
		return nil, false, apiErr
	}
	var oresp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	return &GenerateResponse{
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: oresp.Message.Content}}},
		RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
	}, false, nil
}
