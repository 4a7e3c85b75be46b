package proxy

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTokenJSON(t *testing.T) {
	token := url.QueryEscape(`{
		"basic_moderation": {"enabled": true, "keywords_file": "/tmp/kw.txt"},
		"smart_moderation": {"enabled": true, "profile": "default"},
		"format_transform": {"enabled": true, "from": "openai_chat", "to": "claude_chat", "stream": false}
	}`)

	cfg, err := DecodeToken(token)
	assert.Nil(t, err)
	assert.True(t, cfg.BasicModeration.Enabled)
	assert.Equal(t, "/tmp/kw.txt", cfg.BasicModeration.KeywordsFile)
	assert.Equal(t, "BASIC_MODERATION_BLOCKED", cfg.BasicModeration.ErrorCode)
	assert.Equal(t, "default", cfg.SmartModeration.Profile)
	assert.Equal(t, []string{"openai_chat"}, cfg.FormatTransform.From.Candidates())
	assert.Equal(t, "claude_chat", cfg.FormatTransform.To)
	assert.False(t, cfg.FormatTransform.Stream.Auto)
	assert.False(t, cfg.FormatTransform.Stream.Resolve(true))
}

func TestDecodeTokenDefaults(t *testing.T) {
	cfg, err := DecodeToken(url.QueryEscape(`{}`))
	assert.Nil(t, err)
	assert.False(t, cfg.BasicModeration.Enabled)
	assert.Equal(t, "BASIC_MODERATION_BLOCKED", cfg.BasicModeration.ErrorCode)
	assert.Nil(t, cfg.FormatTransform.From.Candidates())
	assert.True(t, cfg.FormatTransform.Stream.Auto)
	assert.True(t, cfg.FormatTransform.Stream.Resolve(true))
	assert.False(t, cfg.FormatTransform.Stream.Resolve(false))
}

func TestDecodeTokenEnv(t *testing.T) {
	t.Setenv("GB_TEST_ROUTE", `{"format_transform":{"enabled":true,"from":["openai_chat","claude_chat"],"stream":"auto"}}`)

	cfg, err := DecodeToken("!GB_TEST_ROUTE")
	assert.Nil(t, err)
	assert.True(t, cfg.FormatTransform.Enabled)
	assert.Equal(t, []string{"openai_chat", "claude_chat"}, cfg.FormatTransform.From.Candidates())
	assert.True(t, cfg.FormatTransform.Stream.Auto)

	_, err = DecodeToken("!GB_MISSING_ROUTE")
	assert.NotNil(t, err)
}

func TestDecodeTokenInvalid(t *testing.T) {
	_, err := DecodeToken(url.QueryEscape(`not json`))
	assert.NotNil(t, err)

	_, err = DecodeToken(url.QueryEscape(`{"format_transform":{"stream":"sometimes"}}`))
	assert.NotNil(t, err)

	_, err = DecodeToken(url.QueryEscape(`{"format_transform":{"from":123}}`))
	assert.NotNil(t, err)
}

func TestParsePath(t *testing.T) {
	token, upstream, err := ParsePath("/%7B%7D$https://api.example.com/v1/chat/completions")
	assert.Nil(t, err)
	assert.Equal(t, "%7B%7D", token)
	assert.Equal(t, "https://api.example.com/v1/chat/completions", upstream)

	// a collapsed scheme slash is repaired
	_, upstream, err = ParsePath("/%7B%7D$https:/api.example.com/v1/messages")
	assert.Nil(t, err)
	assert.Equal(t, "https://api.example.com/v1/messages", upstream)
}

func TestParsePathInvalid(t *testing.T) {
	cases := []string{
		"/no-upstream-here",
		"/$https://api.example.com",
		"/token$",
		"/token$ftp://api.example.com",
		"",
	}
	for _, path := range cases {
		_, _, err := ParsePath(path)
		assert.NotNil(t, err, path)
	}
}
