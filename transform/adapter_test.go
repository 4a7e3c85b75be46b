package transform

import (
	"net/http"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
)

func body(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	parsed := map[string]interface{}{}
	err := jsoniter.UnmarshalFromString(raw, &parsed)
	assert.Nil(t, err)
	return parsed
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		headers http.Header
		raw     string
		dialect string
	}{
		{
			name:    "openai by path",
			path:    "/v1/chat/completions",
			raw:     `{"model":"x","messages":[{"role":"user","content":"hello"}]}`,
			dialect: OpenAIChat,
		},
		{
			name:    "openai by messages role",
			raw:     `{"messages":[{"role":"user","content":"hello"}]}`,
			dialect: OpenAIChat,
		},
		{
			name:    "claude by path",
			path:    "/v1/messages",
			raw:     `{"model":"x","messages":[{"role":"user","content":"hello"}]}`,
			dialect: ClaudeChat,
		},
		{
			name:    "claude by version header",
			headers: http.Header{"Anthropic-Version": []string{"2023-06-01"}},
			raw:     `{"model":"x","messages":[{"role":"user","content":"hello"}]}`,
			dialect: ClaudeChat,
		},
		{
			name:    "claude by cache_control",
			path:    "/v1/chat/completions",
			raw:     `{"messages":[{"role":"user","content":[{"type":"text","text":"hi","cache_control":{"type":"ephemeral"}}]}]}`,
			dialect: ClaudeChat,
		},
		{
			name:    "claude code by options",
			raw:     `{"prompt":"analyze this","options":{"model":"claude-sonnet-4-5"}}`,
			dialect: ClaudeCode,
		},
		{
			name:    "claude code by string prompt",
			raw:     `{"prompt":"analyze this"}`,
			dialect: ClaudeCode,
		},
		{
			name:    "gemini by contents parts",
			raw:     `{"contents":[{"role":"user","parts":[{"text":"hello"}]}]}`,
			dialect: GeminiChat,
		},
		{
			name:    "gemini by path",
			path:    "/v1beta/models/gemini-pro:generateContent",
			raw:     `{"contents":[{"parts":[{"text":"hello"}]}]}`,
			dialect: GeminiChat,
		},
		{
			name:    "role tool excludes claude",
			path:    "/v1/messages",
			raw:     `{"messages":[{"role":"tool","tool_call_id":"t1","content":"ok"}]}`,
			dialect: OpenAIChat,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			adapter, ok := Detect(c.path, c.headers, body(t, c.raw), nil)
			assert.True(t, ok)
			assert.Equal(t, c.dialect, adapter.Name())
		})
	}
}

func TestDetectCandidates(t *testing.T) {
	// a bare prompt goes to claude_code first, codex needs the
	// candidate set to exclude it
	raw := body(t, `{"prompt":"write a function"}`)

	adapter, ok := Detect("/v1/completions", nil, raw, nil)
	assert.True(t, ok)
	assert.Equal(t, ClaudeCode, adapter.Name())

	adapter, ok = Detect("/v1/completions", nil, raw, []string{OpenAICodex})
	assert.True(t, ok)
	assert.Equal(t, OpenAICodex, adapter.Name())
}

func TestDetectNoMatch(t *testing.T) {
	_, ok := Detect("/v1/embeddings", nil, body(t, `{"input":"hello"}`), nil)
	assert.False(t, ok)

	_, ok = Detect("", nil, map[string]interface{}{}, nil)
	assert.False(t, ok)
}

func TestDialects(t *testing.T) {
	names := Dialects()
	assert.Equal(t, []string{ClaudeCode, ClaudeChat, OpenAIChat, GeminiChat, OpenAICodex}, names)

	adapter, err := Get(OpenAIChat)
	assert.Nil(t, err)
	assert.Equal(t, OpenAIChat, adapter.Name())

	_, err = Get("nope")
	assert.NotNil(t, err)
}

func TestModerationText(t *testing.T) {
	adapter, err := Get(OpenAIChat)
	assert.Nil(t, err)

	req, err := adapter.ParseRequest(body(t, `{
		"model": "x",
		"messages": [
			{"role": "system", "content": "be nice"},
			{"role": "user", "content": "hello"},
			{"role": "assistant", "content": "hi"},
			{"role": "user", "content": "again"}
		]
	}`))
	assert.Nil(t, err)
	assert.Equal(t, "be nice\nhello\nagain", req.ModerationText())
}
