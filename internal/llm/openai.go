package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultDeepseekModel = "deepseek-chat"
)

// OpenAICaller speaks the OpenAI chat completions protocol, which Deepseek
// also serves.
type OpenAICaller struct {
	provider    string
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// StatusError carries the HTTP status of a failed provider request.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status code: %d: %s", e.Provider, e.StatusCode, e.Body)
}

func NewOpenAICaller(provider, baseURL, apiKey, model string, maxTokens int, temperature float64, timeout time.Duration) *OpenAICaller {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OpenAICaller{
		provider:    provider,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *OpenAICaller) Provider() string { return c.provider }
func (c *OpenAICaller) Model() string    { return c.model }

func (c *OpenAICaller) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      c.maxTokens,
		Temperature:    c.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", eris.Wrapf(err, "%s: marshal request", c.provider)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrapf(err, "%s: create request", c.provider)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "%s: request failed", c.provider)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", eris.Wrapf(err, "%s: read response", c.provider)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Provider: c.provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", eris.Wrapf(err, "%s: parse response", c.provider)
	}
	if out.Error != nil {
		return "", eris.Errorf("%s: api error: %s", c.provider, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	if out.Usage != nil {
		logUsage(c.provider, c.model, out.Usage.PromptTokens, out.Usage.CompletionTokens, time.Since(start))
	}
	return out.Choices[0].Message.Content, nil
}
