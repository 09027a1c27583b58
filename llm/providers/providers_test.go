package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminaide/planforge/llm"
)

func TestProvidersRegistered(t *testing.T) {
	for _, name := range []string{"anthropic", "ollama", "openai"} {
		assert.NotNil(t, llm.GetProvider(name), "provider %s not registered", name)
	}
}

func TestAnthropicBuildURL(t *testing.T) {
	p := &AnthropicProvider{}

	assert.Equal(t, "https://api.anthropic.com/v1/messages", p.BuildURL(""))
	assert.Equal(t, "https://proxy.internal/v1/messages", p.BuildURL("https://proxy.internal/"))
}

func TestAnthropicBuildRequestBody(t *testing.T) {
	p := &AnthropicProvider{}

	messages := []llm.Message{
		{Role: "system", Content: "you are a planner"},
		{Role: "user", Content: "plan this"},
	}

	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", messages, nil, 0)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))

	// System messages move to the top-level system field.
	assert.Equal(t, "you are a planner", req["system"])
	assert.Len(t, req["messages"], 1)

	// Zero max tokens falls back to a default.
	assert.Equal(t, float64(4096), req["max_tokens"])

	// nil temperature is omitted so the API default applies.
	_, hasTemp := req["temperature"]
	assert.False(t, hasTemp)
}

func TestAnthropicParseResponse(t *testing.T) {
	p := &AnthropicProvider{}

	body := `{
		"content": [{"type": "text", "text": "part one "}, {"type": "text", "text": "part two"}],
		"model": "claude-sonnet-4-20250514",
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`

	resp, err := p.ParseResponse([]byte(body), "claude-sonnet-4-20250514")
	require.NoError(t, err)

	assert.Equal(t, "part one part two", resp.Content)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestOllamaBuildURL(t *testing.T) {
	p := &OllamaProvider{}

	assert.Equal(t, "http://localhost:11434/v1/chat/completions", p.BuildURL(""))
	assert.Equal(t, "http://gpu-box:8000/v1/chat/completions", p.BuildURL("http://gpu-box:8000/v1"))
	// Already-complete URLs pass through.
	assert.Equal(t, "http://gpu-box:8000/v1/chat/completions", p.BuildURL("http://gpu-box:8000/v1/chat/completions"))
}

func TestOllamaBuildRequestBody(t *testing.T) {
	p := &OllamaProvider{}

	temp := 0.2
	body, err := p.BuildRequestBody("llama3", []llm.Message{{Role: "user", Content: "hi"}}, &temp, 512)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "llama3", req["model"])
	assert.Equal(t, 0.2, req["temperature"])
	assert.Equal(t, float64(512), req["max_tokens"])
}

func TestOllamaParseResponse(t *testing.T) {
	p := &OllamaProvider{}

	body := `{
		"model": "llama3",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 8, "completion_tokens": 2, "total_tokens": 10}
	}`

	resp, err := p.ParseResponse([]byte(body), "llama3")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 10, resp.Usage.TotalTokens)

	_, err = p.ParseResponse([]byte(`{"choices": []}`), "llama3")
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAIBuildURL(t *testing.T) {
	p := &OpenAIProvider{}

	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", p.BuildURL(""))
	assert.Equal(t, "https://openrouter.ai/api/v1/chat/completions", p.BuildURL("https://openrouter.ai/api/v1"))
}
