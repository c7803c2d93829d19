package llm

import (
	"context"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)

type AnthropicCaller struct {
	messages    AnthropicMessager
	model       string
	maxTokens   int64
	temperature float64
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicCaller(apiKey, model string, maxTokens int, temperature float64) *AnthropicCaller {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicCaller{
		messages:    newAnthropicClient(apiKey),
		model:       modelOr(model, defaultAnthropicModel),
		maxTokens:   int64(maxTokens),
		temperature: temperature,
	}
}

func (a *AnthropicCaller) Provider() string { return "anthropic" }
func (a *AnthropicCaller) Model() string    { return a.model }

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   a.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(a.temperature),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	logUsage(a.Provider(), a.model, resp.Usage.InputTokens, resp.Usage.OutputTokens, time.Since(start))
	return sb.String(), nil
}
