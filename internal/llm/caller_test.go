package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/joelkehle/bizcase/internal/config"
)

type fakeMessager struct {
	params anthropic.MessageNewParams
	reply  string
	err    error
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.Message{Content: []anthropic.ContentBlockUnion{{Type: "text", Text: f.reply}}}, nil
}

func TestAnthropicCallerSendsSystemAndPrompt(t *testing.T) {
	fake := &fakeMessager{reply: `{"ok":true}`}
	orig := newAnthropicClient
	newAnthropicClient = func(string) AnthropicMessager { return fake }
	t.Cleanup(func() { newAnthropicClient = orig })

	c := NewAnthropicCaller("key", "", 0, 0.2)
	got, err := c.GenerateJSON(context.Background(), "be a consultant", "write it")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)
	assert.Equal(t, anthropic.Model(defaultAnthropicModel), fake.params.Model)
	assert.Equal(t, int64(4096), fake.params.MaxTokens)
	require.Len(t, fake.params.System, 1)
	assert.Equal(t, "be a consultant", fake.params.System[0].Text)
	assert.Equal(t, "anthropic", c.Provider())
}

func TestOpenAICallerRoundTrip(t *testing.T) {
	var seen chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"summary\":\"hi\"}"}}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewOpenAICaller("deepseek", srv.URL+"/", "secret", "deepseek-chat", 512, 0.3, time.Second)
	got, err := c.GenerateJSON(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"hi"}`, got)
	assert.Equal(t, "deepseek-chat", seen.Model)
	require.NotNil(t, seen.ResponseFormat)
	assert.Equal(t, "json_object", seen.ResponseFormat.Type)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "prompt", seen.Messages[1].Content)
}

func TestOpenAICallerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"slow down"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAICaller("openai", srv.URL, "secret", "gpt-4o-mini", 0, 0, time.Second)
	_, err := c.GenerateJSON(context.Background(), "sys", "prompt")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, FailureRateLimit, classifyTransportError(err))
}

type fakeGemini struct {
	model  string
	config *genai.GenerateContentConfig
	reply  string
}

func (f *fakeGemini) GenerateContent(_ context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = cfg
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}}}},
	}, nil
}

func TestGeminiCallerRequestsJSON(t *testing.T) {
	fake := &fakeGemini{reply: `{"summary":"g"}`}
	c := newGeminiCaller(fake, "", 1024, 0.5)

	got, err := c.GenerateJSON(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"g"}`, got)
	assert.Equal(t, defaultGeminiModel, fake.model)
	require.NotNil(t, fake.config)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	assert.Equal(t, int32(1024), fake.config.MaxOutputTokens)
}

func TestRateLimitedCallerForwardsDescription(t *testing.T) {
	inner := NewOpenAICaller("openai", "http://unused", "k", "gpt-4o-mini", 0, 0, time.Second)
	rl := NewRateLimitedCaller(inner, 5)
	p, m := Describe(rl)
	assert.Equal(t, "openai", p)
	assert.Equal(t, "gpt-4o-mini", m)
}

func TestRateLimitedCallerRespectsContext(t *testing.T) {
	rl := NewRateLimitedCaller(StaticCaller{Response: "{}"}, 0.001)
	got, err := rl.GenerateJSON(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "{}", got)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = rl.GenerateJSON(ctx, "", "")
	assert.Error(t, err)
}

func TestNewCallerSelectsProvider(t *testing.T) {
	c, err := NewCaller(config.LLMConfig{Provider: "static"})
	require.NoError(t, err)
	assert.IsType(t, StaticCaller{}, c)

	_, err = NewCaller(config.LLMConfig{Provider: "openai"})
	assert.Error(t, err, "missing key must be reported")

	c, err = NewCaller(config.LLMConfig{Provider: "deepseek", DeepseekKey: "k", DeepseekBaseURL: "https://api.deepseek.com/v1", RequestsPerSecond: 2})
	require.NoError(t, err)
	p, m := Describe(c)
	assert.Equal(t, "deepseek", p)
	assert.Equal(t, defaultDeepseekModel, m)

	_, err = NewCaller(config.LLMConfig{Provider: "nope"})
	assert.Error(t, err)
}
