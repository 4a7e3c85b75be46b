package transform

import (
	"net/http"
	"strings"

	"github.com/spf13/cast"
)

// openaiCodexAdapter translates the legacy OpenAI text-completions
// dialect: a prompt string in, choices[].text out. It carries no tool
// semantics.
type openaiCodexAdapter struct{}

func (adapter *openaiCodexAdapter) Name() string { return OpenAICodex }

// CanParse accepts prompt-only completion bodies. The options field is
// an Agent SDK marker and excludes this dialect.
func (adapter *openaiCodexAdapter) CanParse(path string, headers http.Header, body map[string]interface{}) bool {
	if strings.Contains(path, "/chat/completions") {
		return false
	}
	if _, has := body["options"]; has {
		return false
	}
	if _, has := body["messages"]; has {
		return false
	}
	if _, ok := body["prompt"].(string); ok {
		return true
	}
	return strings.Contains(path, "/completions")
}

// ParseRequest converts a completions request to the neutral model
func (adapter *openaiCodexAdapter) ParseRequest(body map[string]interface{}) (*Request, error) {
	messages := []Message{
		{Role: RoleUser, Content: []Block{TextBlock(str(body["prompt"]))}},
	}
	return &Request{
		Messages: messages,
		Model:    str(body["model"]),
		Stream:   cast.ToBool(body["stream"]),
		Extra:    extraFields(body, "prompt", "model", "stream"),
	}, nil
}

// RenderRequest converts a neutral request to a completions body. The
// user and system texts collapse into the prompt string.
func (adapter *openaiCodexAdapter) RenderRequest(req *Request) map[string]interface{} {
	texts := []string{}
	for _, m := range req.Messages {
		if m.Role != RoleUser && m.Role != RoleSystem {
			continue
		}
		for _, block := range m.Content {
			if block.Type == BlockText && block.Text != "" {
				texts = append(texts, block.Text)
			}
		}
	}

	body := map[string]interface{}{
		"model":  req.Model,
		"prompt": strings.Join(texts, "\n"),
		"stream": req.Stream,
	}
	for key, value := range req.Extra {
		body[key] = value
	}
	return body
}

// ParseResponse converts a completions response to the neutral model
func (adapter *openaiCodexAdapter) ParseResponse(body map[string]interface{}) (*Response, error) {
	choices := mapSlice(body, "choices")
	choice := map[string]interface{}{}
	if len(choices) > 0 {
		choice = choices[0]
	}

	blocks := []Block{TextBlock(str(choice["text"]))}

	var usage map[string]interface{}
	if u, ok := body["usage"].(map[string]interface{}); ok {
		usage = u
	}

	return &Response{
		ID:           str(body["id"]),
		Model:        str(body["model"]),
		Messages:     []Message{{Role: RoleAssistant, Content: blocks}},
		FinishReason: str(choice["finish_reason"]),
		Usage:        usage,
		Extra:        extraFields(body, "id", "model", "choices", "usage"),
	}, nil
}

// RenderResponse converts a neutral response to a completions body
func (adapter *openaiCodexAdapter) RenderResponse(res *Response) map[string]interface{} {
	last := res.LastMessage()
	texts := []string{}
	for _, block := range last.Content {
		if block.Type == BlockText && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}

	body := map[string]interface{}{
		"id":     res.ID,
		"model":  res.Model,
		"object": "text_completion",
		"choices": []interface{}{map[string]interface{}{
			"index":         0,
			"text":          strings.Join(texts, "\n"),
			"finish_reason": res.FinishReason,
		}},
	}
	if res.Usage != nil {
		body["usage"] = res.Usage
	}
	for key, value := range res.Extra {
		body[key] = value
	}
	return body
}
