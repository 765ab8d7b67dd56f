package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"resume-optimizer/internal/llm"
)

const (
	defaultAPIURL = "https://api.openai.com/v1/chat/completions"

	// Upper bound on a provider response body; optimized resumes are a few
	// kilobytes, anything near this limit is garbage.
	maxResponseBytes = 1 << 20
)

const systemPrompt = "You are an expert resume writer. Follow the output format in the user message exactly."

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: defaultAPIURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt and returns the raw model text. Failures carry a
// classified llm sentinel so callers can decide on retry eligibility.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	temp := float32(0.7)
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: &temp,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("openai request: %w", llm.ErrProviderTimeout)
		}
		return "", fmt.Errorf("openai request: %v: %w", err, llm.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("openai read response: %w", llm.ErrProviderTimeout)
		}
		return "", fmt.Errorf("openai read response: %v: %w", err, llm.ErrProviderUnavailable)
	}

	if sentinel := classifyStatus(resp.StatusCode); sentinel != nil {
		return "", fmt.Errorf("openai status %d: %s: %w", resp.StatusCode, errorSnippet(body), sentinel)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai response parse: %v: %w", err, llm.ErrProviderUnavailable)
	}
	if parsed.Error != nil {
		sentinel := llm.ErrProviderUnavailable
		if strings.Contains(parsed.Error.Type, "rate_limit") || strings.Contains(parsed.Error.Type, "quota") {
			sentinel = llm.ErrProviderThrottled
		}
		return "", fmt.Errorf("openai error: %s (%s): %w", parsed.Error.Message, parsed.Error.Type, sentinel)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices: %w", llm.ErrProviderUnavailable)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai response empty content: %w", llm.ErrProviderUnavailable)
	}
	logUsage(c.model, parsed.Usage)
	return content, nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return llm.ErrProviderThrottled
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return llm.ErrProviderRejected
	case status >= 400 && status < 500:
		return llm.ErrProviderRejected
	default:
		return llm.ErrProviderUnavailable
	}
}

func errorSnippet(body []byte) string {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return snippet
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}

func logUsage(model string, usage *struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}) {
	if usage == nil {
		log.Printf("llm response model=%s", model)
		return
	}
	log.Printf("llm response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

var _ llm.Client = (*Client)(nil)
