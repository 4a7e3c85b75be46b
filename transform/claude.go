package transform

import (
	"net/http"
	"strings"

	"github.com/spf13/cast"
)

// claudeChatAdapter translates the Claude Messages dialect
type claudeChatAdapter struct{}

func (adapter *claudeChatAdapter) Name() string { return ClaudeChat }

// CanParse accepts Claude Messages requests. It rejects the Gemini
// contents shape and OpenAI markers (role=tool messages, image_url
// content parts), and requires a positive Claude signal so plain
// OpenAI Chat bodies fall through to the OpenAI adapter.
func (adapter *claudeChatAdapter) CanParse(path string, headers http.Header, body map[string]interface{}) bool {
	if isGemini(body) {
		return false
	}

	cached := false
	for _, msg := range mapSlice(body, "messages") {
		if str(msg["role"]) == RoleTool {
			return false
		}
		if content, ok := msg["content"].([]interface{}); ok {
			for _, item := range content {
				if part, ok := item.(map[string]interface{}); ok {
					if str(part["type"]) == "image_url" {
						return false
					}
					if _, has := part["cache_control"]; has {
						cached = true
					}
				}
			}
		}
	}

	if strings.Contains(path, "/messages") || headerHas(headers, "anthropic-version") {
		return true
	}
	if _, has := body["anthropic_version"]; has {
		return true
	}
	// prompt caching blocks only exist on the Claude wire
	if cached {
		return true
	}

	if _, ok := body["prompt"].(string); ok {
		if _, has := body["messages"]; !has {
			return true
		}
	}
	return false
}

// ParseRequest converts a Claude Messages request to the neutral model.
// Prompt-only bodies are delegated to the Claude Code adapter; detection
// order sends them here only when claude_code is out of the candidate set.
func (adapter *claudeChatAdapter) ParseRequest(body map[string]interface{}) (*Request, error) {
	if _, has := body["prompt"]; has {
		if _, hasMessages := body["messages"]; !hasMessages {
			return (&claudeCodeAdapter{}).ParseRequest(body)
		}
	}

	tools := []Tool{}
	for _, t := range mapSlice(body, "tools") {
		tools = append(tools, Tool{
			Name:        str(t["name"]),
			Description: str(t["description"]),
			InputSchema: anyMap(t["input_schema"]),
		})
	}

	messages := []Message{}
	if text := claudeSystemText(body["system"]); text != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: []Block{TextBlock(text)}})
	}

	for _, msg := range mapSlice(body, "messages") {
		blocks := []Block{}
		switch content := msg["content"].(type) {
		case string:
			blocks = append(blocks, TextBlock(content))

		case []interface{}:
			for _, item := range content {
				part, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				switch str(part["type"]) {
				case "text":
					blocks = append(blocks, TextBlock(str(part["text"])))

				case "tool_use":
					blocks = append(blocks, ToolCallBlock(
						str(part["id"]),
						str(part["name"]),
						anyMap(part["input"]),
					))

				case "tool_result":
					blocks = append(blocks, ToolResultBlock(
						str(part["tool_use_id"]),
						"",
						claudeResultOutput(part["content"]),
					))
				}
			}
		}

		if len(blocks) == 0 {
			blocks = append(blocks, TextBlock(""))
		}

		role := RoleAssistant
		if str(msg["role"]) == RoleUser {
			role = RoleUser
		}
		messages = append(messages, Message{Role: role, Content: blocks})
	}

	return &Request{
		Messages:   messages,
		Model:      str(body["model"]),
		Stream:     cast.ToBool(body["stream"]),
		Tools:      tools,
		ToolChoice: body["tool_choice"],
		Extra:      extraFields(body, "system", "messages", "model", "stream", "tools", "tool_choice"),
	}, nil
}

// RenderRequest converts a neutral request to a Claude Messages body
func (adapter *claudeChatAdapter) RenderRequest(req *Request) map[string]interface{} {
	body := map[string]interface{}{
		"model":  req.Model,
		"stream": req.Stream,
	}

	// system messages merge into the top-level system field
	systemTexts := []string{}
	claudeMessages := []interface{}{}
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			for _, block := range m.Content {
				if block.Type == BlockText && block.Text != "" {
					systemTexts = append(systemTexts, block.Text)
				}
			}
			continue
		}

		content := []interface{}{}
		for _, block := range m.Content {
			switch block.Type {
			case BlockText:
				if block.Text != "" {
					content = append(content, map[string]interface{}{"type": "text", "text": block.Text})
				}

			case BlockToolCall:
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    block.ToolCall.ID,
					"name":  block.ToolCall.Name,
					"input": block.ToolCall.Arguments,
				})

			case BlockToolResult:
				content = append(content, map[string]interface{}{
					"type":        "tool_result",
					"tool_use_id": block.ToolResult.CallID,
					"content":     claudeRenderResult(block.ToolResult.Output),
				})
			}
		}

		if len(content) == 0 {
			continue
		}
		role := RoleAssistant
		if m.Role == RoleUser {
			role = RoleUser
		}
		claudeMessages = append(claudeMessages, map[string]interface{}{"role": role, "content": content})
	}

	if len(systemTexts) > 0 {
		body["system"] = strings.Join(systemTexts, "\n")
	}
	body["messages"] = claudeMessages

	if len(req.Tools) > 0 {
		tools := []interface{}{}
		for _, t := range req.Tools {
			tools = append(tools, map[string]interface{}{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.InputSchema,
			})
		}
		body["tools"] = tools
	}
	if req.ToolChoice != nil {
		body["tool_choice"] = req.ToolChoice
	}
	for key, value := range req.Extra {
		body[key] = value
	}
	return body
}

// ParseResponse converts a Claude response to the neutral model
func (adapter *claudeChatAdapter) ParseResponse(body map[string]interface{}) (*Response, error) {
	blocks := []Block{}
	for _, part := range mapSlice(body, "content") {
		switch str(part["type"]) {
		case "text":
			blocks = append(blocks, TextBlock(str(part["text"])))
		case "tool_use":
			blocks = append(blocks, ToolCallBlock(
				str(part["id"]),
				str(part["name"]),
				anyMap(part["input"]),
			))
		}
	}
	if len(blocks) == 0 {
		blocks = append(blocks, TextBlock(""))
	}

	var usage map[string]interface{}
	if u, ok := body["usage"].(map[string]interface{}); ok {
		usage = u
	}

	return &Response{
		ID:           str(body["id"]),
		Model:        str(body["model"]),
		Messages:     []Message{{Role: RoleAssistant, Content: blocks}},
		FinishReason: str(body["stop_reason"]),
		Usage:        usage,
		Extra:        extraFields(body, "id", "model", "content", "stop_reason", "usage"),
	}, nil
}

// RenderResponse converts a neutral response to a Claude response body
func (adapter *claudeChatAdapter) RenderResponse(res *Response) map[string]interface{} {
	last := res.LastMessage()

	content := []interface{}{}
	for _, block := range last.Content {
		switch block.Type {
		case BlockText:
			if block.Text != "" {
				content = append(content, map[string]interface{}{"type": "text", "text": block.Text})
			}
		case BlockToolCall:
			content = append(content, map[string]interface{}{
				"type":  "tool_use",
				"id":    block.ToolCall.ID,
				"name":  block.ToolCall.Name,
				"input": block.ToolCall.Arguments,
			})
		}
	}
	if len(content) == 0 {
		content = append(content, map[string]interface{}{"type": "text", "text": ""})
	}

	body := map[string]interface{}{
		"id":          res.ID,
		"model":       res.Model,
		"type":        "message",
		"role":        RoleAssistant,
		"content":     content,
		"stop_reason": res.FinishReason,
	}
	if res.Usage != nil {
		body["usage"] = res.Usage
	}
	for key, value := range res.Extra {
		body[key] = value
	}
	return body
}

// claudeSystemText flattens the top-level system value, which may be a
// string or a list of text blocks.
func claudeSystemText(system interface{}) string {
	switch value := system.(type) {
	case string:
		return value
	case []interface{}:
		texts := []string{}
		for _, item := range value {
			if block, ok := item.(map[string]interface{}); ok {
				if str(block["type"]) == "text" {
					texts = append(texts, str(block["text"]))
				}
			}
		}
		return strings.Join(texts, "\n")
	}
	return ""
}

// claudeResultOutput flattens a tool_result content value. Block lists
// collapse to their joined text.
func claudeResultOutput(content interface{}) interface{} {
	if items, ok := content.([]interface{}); ok {
		texts := []string{}
		for _, item := range items {
			if block, ok := item.(map[string]interface{}); ok {
				if str(block["type"]) == "text" {
					texts = append(texts, str(block["text"]))
				}
			}
		}
		return strings.Join(texts, "\n")
	}
	return content
}

// claudeRenderResult renders a neutral tool result output as a Claude
// tool_result content array.
func claudeRenderResult(output interface{}) interface{} {
	switch value := output.(type) {
	case string:
		return []interface{}{map[string]interface{}{"type": "text", "text": value}}
	case map[string]interface{}:
		return []interface{}{map[string]interface{}{"type": "text", "text": jsonString(value)}}
	}
	return output
}
