package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient adapts the Google generative AI SDK to Runtime. The SDK client
// is created on first use because construction needs a context.
type GeminiClient struct {
	apiKey string
	opts   []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient returns a runtime backed by the Gemini API.
func NewGeminiClient(apiKey string, opts ...option.ClientOption) *GeminiClient {
	return &GeminiClient{apiKey: apiKey, opts: opts}
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, errors.New("Gemini API key is missing")
	}
	opts := append([]option.ClientOption{option.WithAPIKey(c.apiKey)}, c.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.client = cl
	return cl, nil
}

// Generate sends the request messages as text parts and joins the text of
// every returned candidate.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	cl, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}
	model := cl.GenerativeModel(req.Model)
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	parts := make([]genai.Part, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			model.SystemInstruction = genai.NewUserContent(genai.Text(m.Content))
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, ErrEmptyResponse
	}
	out := &GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: text}}}}
	if um := resp.UsageMetadata; um != nil {
		out.Usage = Usage{
			PromptTokens:     int(um.PromptTokenCount),
			CompletionTokens: int(um.CandidatesTokenCount),
			TotalTokens:      int(um.TotalTokenCount),
		}
	}
	return out, nil
}

// Close releases the SDK client.
func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// classifyGeminiError maps SDK errors onto the package's typed errors.
func classifyGeminiError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("gemini generate: %w", err)
	}
	apiErr := &APIError{StatusCode: gerr.Code, Message: gerr.Message}
	switch {
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case gerr.Code == http.StatusTooManyRequests:
		if containsAnyFold(gerr.Message, "quota", "billing") {
			return &QuotaExceededError{APIError: apiErr}
		}
		return &RateLimitError{APIError: apiErr}
	case gerr.Code == http.StatusNotFound:
		return &ModelNotFoundError{APIError: apiErr}
	case gerr.Code == http.StatusBadRequest:
		if containsFold(gerr.Message, "api key") {
			return &AuthError{APIError: apiErr}
		}
		return &BadRequestError{APIError: apiErr}
	case gerr.Code >= 500:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}
