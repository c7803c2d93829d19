package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiCaller struct {
	models      GeminiModels
	model       string
	maxTokens   int32
	temperature float32
}

func NewGeminiCaller(ctx context.Context, apiKey, model string, maxTokens int, temperature float64) (*GeminiCaller, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return newGeminiCaller(client.Models, model, maxTokens, temperature), nil
}

func newGeminiCaller(models GeminiModels, model string, maxTokens int, temperature float64) *GeminiCaller {
	return &GeminiCaller{
		models:      models,
		model:       modelOr(model, defaultGeminiModel),
		maxTokens:   int32(maxTokens),
		temperature: float32(temperature),
	}
}

func (g *GeminiCaller) Provider() string { return "gemini" }
func (g *GeminiCaller) Model() string    { return g.model }

func (g *GeminiCaller) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		ResponseMIMEType:  "application/json",
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}
	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, cfg)
	if err != nil {
		return "", err
	}
	if resp.UsageMetadata != nil {
		logUsage(g.Provider(), g.model, int64(resp.UsageMetadata.PromptTokenCount), int64(resp.UsageMetadata.CandidatesTokenCount), time.Since(start))
	}
	return resp.Text(), nil
}
