// Package llm talks to the text-generation providers that write the
// qualitative sections of a business case, and retries until the model
// returns JSON the caller can use.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/joelkehle/bizcase/internal/config"
)

// ErrNoProvider is returned by a StaticCaller with nothing to say. Callers
// fall back to locally generated content.
var ErrNoProvider = errors.New("llm: no provider configured")

// Caller returns a raw model response expected to hold a JSON object.
type Caller interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
}

// Described is implemented by callers that can name their backend.
type Described interface {
	Provider() string
	Model() string
}

// Describe reports provider and model for c, or "static" when unknown.
func Describe(c Caller) (provider, model string) {
	if d, ok := c.(Described); ok {
		return d.Provider(), d.Model()
	}
	return "static", ""
}

// NewCaller builds the caller for cfg.Provider, rate limited when
// cfg.RequestsPerSecond is positive.
func NewCaller(cfg config.LLMConfig) (Caller, error) {
	key := strings.TrimSpace(cfg.APIKey())
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second

	var c Caller
	switch cfg.Provider {
	case "static":
		return StaticCaller{}, nil
	case "anthropic":
		if key == "" {
			return nil, eris.New("llm: anthropic api key not configured")
		}
		c = NewAnthropicCaller(key, cfg.Model, cfg.MaxTokens, cfg.Temperature)
	case "openai":
		if key == "" {
			return nil, eris.New("llm: openai api key not configured")
		}
		c = NewOpenAICaller("openai", cfg.OpenAIBaseURL, key, modelOr(cfg.Model, defaultOpenAIModel), cfg.MaxTokens, cfg.Temperature, timeout)
	case "deepseek":
		if key == "" {
			return nil, eris.New("llm: deepseek api key not configured")
		}
		c = NewOpenAICaller("deepseek", cfg.DeepseekBaseURL, key, modelOr(cfg.Model, defaultDeepseekModel), cfg.MaxTokens, cfg.Temperature, timeout)
	case "gemini":
		if key == "" {
			return nil, eris.New("llm: gemini api key not configured")
		}
		g, err := NewGeminiCaller(context.Background(), key, cfg.Model, cfg.MaxTokens, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		c = g
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}

	if cfg.RequestsPerSecond > 0 {
		c = NewRateLimitedCaller(c, cfg.RequestsPerSecond)
	}
	return c, nil
}

func modelOr(model, fallback string) string {
	if strings.TrimSpace(model) == "" {
		return fallback
	}
	return model
}

// StaticCaller replays a fixed response. The zero value has nothing to say
// and always fails with ErrNoProvider.
type StaticCaller struct {
	Response string
	Err      error
}

func (s StaticCaller) GenerateJSON(context.Context, string, string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Response == "" {
		return "", ErrNoProvider
	}
	return s.Response, nil
}

// RateLimitedCaller spaces out requests to the wrapped caller.
type RateLimitedCaller struct {
	next    Caller
	limiter *rate.Limiter
}

func NewRateLimitedCaller(next Caller, perSecond float64) *RateLimitedCaller {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedCaller{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimitedCaller) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "rate limiter")
	}
	return r.next.GenerateJSON(ctx, system, prompt)
}

func (r *RateLimitedCaller) Provider() string {
	p, _ := Describe(r.next)
	return p
}

func (r *RateLimitedCaller) Model() string {
	_, m := Describe(r.next)
	return m
}

func logUsage(provider, model string, input, output int64, elapsed time.Duration) {
	zap.L().Debug("llm call complete",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int64("input_tokens", input),
		zap.Int64("output_tokens", output),
		zap.Duration("elapsed", elapsed),
	)
}
