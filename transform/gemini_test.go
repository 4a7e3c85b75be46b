package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeminiRequestParse(t *testing.T) {
	gemini, _ := Get(GeminiChat)

	req, err := gemini.ParseRequest(body(t, `{
		"systemInstruction": {"parts": [{"text": "be brief"}]},
		"contents": [
			{"role": "user", "parts": [{"text": "hello"}]},
			{"role": "model", "parts": [{"functionCall": {"name": "f", "args": {"x": 1}}}]},
			{"role": "user", "parts": [{"functionResponse": {"name": "f", "response": {"ok": true}}}]}
		],
		"tools": [{"functionDeclarations": [{"name": "f", "description": "d", "parameters": {"type": "object"}}]}]
	}`))
	assert.Nil(t, err)
	assert.Len(t, req.Messages, 4)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, RoleAssistant, req.Messages[2].Role)

	call := req.Messages[2].Content[0]
	result := req.Messages[3].Content[0]
	assert.Equal(t, BlockToolCall, call.Type)
	assert.Equal(t, BlockToolResult, result.Type)
	// a response binds to the id synthesized for the earlier call
	assert.Equal(t, call.ToolCall.ID, result.ToolResult.CallID)

	assert.Len(t, req.Tools, 1)
	assert.Equal(t, "f", req.Tools[0].Name)
}

func TestGeminiFromOpenAI(t *testing.T) {
	openai, _ := Get(OpenAIChat)
	gemini, _ := Get(GeminiChat)

	req, err := openai.ParseRequest(body(t, `{
		"model": "x",
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "hello"},
			{"role": "assistant", "content": "hi"}
		]
	}`))
	assert.Nil(t, err)

	rendered := gemini.RenderRequest(req)
	instruction := rendered["systemInstruction"].(map[string]interface{})
	assert.Equal(t, []interface{}{map[string]interface{}{"text": "be brief"}}, instruction["parts"])

	contents := rendered["contents"].([]interface{})
	assert.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].(map[string]interface{})["role"])
	assert.Equal(t, "model", contents[1].(map[string]interface{})["role"])
}

func TestGeminiResponseToOpenAI(t *testing.T) {
	gemini, _ := Get(GeminiChat)
	openai, _ := Get(OpenAIChat)

	res, err := gemini.ParseResponse(body(t, `{
		"responseId": "r1",
		"modelVersion": "gemini-pro",
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "answer"}]},
			"finishReason": "STOP",
			"index": 0
		}],
		"usageMetadata": {"totalTokenCount": 10}
	}`))
	assert.Nil(t, err)
	assert.Equal(t, "r1", res.ID)
	assert.Equal(t, "answer", res.LastMessage().Content[0].Text)

	rendered := openai.RenderResponse(res)
	message := rendered["choices"].([]interface{})[0].(map[string]interface{})["message"].(map[string]interface{})
	assert.Equal(t, "answer", message["content"])
}

func TestCodexRequest(t *testing.T) {
	codex, _ := Get(OpenAICodex)

	req, err := codex.ParseRequest(body(t, `{"model": "code-1", "prompt": "write a sort", "max_tokens": 64}`))
	assert.Nil(t, err)
	assert.Equal(t, "code-1", req.Model)
	assert.Equal(t, "write a sort", req.Messages[0].Content[0].Text)

	rendered := codex.RenderRequest(req)
	assert.Equal(t, "write a sort", rendered["prompt"])
	assert.Equal(t, float64(64), rendered["max_tokens"])
}

func TestCodexResponse(t *testing.T) {
	codex, _ := Get(OpenAICodex)

	res, err := codex.ParseResponse(body(t, `{
		"id": "cmpl-1",
		"model": "code-1",
		"choices": [{"text": "sorted()", "index": 0, "finish_reason": "stop"}]
	}`))
	assert.Nil(t, err)
	assert.Equal(t, "sorted()", res.LastMessage().Content[0].Text)

	rendered := codex.RenderResponse(res)
	assert.Equal(t, "text_completion", rendered["object"])
	choices := rendered["choices"].([]interface{})
	assert.Equal(t, "sorted()", choices[0].(map[string]interface{})["text"])
}
