package transform

import (
	"fmt"
	"net/http"
	"strings"
)

// defaultClaudeCodeModel is used when the options carry no model
const defaultClaudeCodeModel = "claude-sonnet-4-5"

// claudeCodeAdapter translates the Claude Code (Agent SDK) dialect:
// {prompt, options} request bodies and typed stream-message responses.
type claudeCodeAdapter struct{}

func (adapter *claudeCodeAdapter) Name() string { return ClaudeCode }

// CanParse accepts Agent SDK bodies: a prompt without messages. The
// Claude Messages markers (path, version header) exclude this dialect.
func (adapter *claudeCodeAdapter) CanParse(path string, headers http.Header, body map[string]interface{}) bool {
	if strings.Contains(path, "/messages") || headerHas(headers, "anthropic-version") {
		return false
	}

	if _, has := body["prompt"]; !has {
		return false
	}
	if _, has := body["messages"]; has {
		return false
	}
	if _, has := body["options"]; has {
		return true
	}
	_, ok := body["prompt"].(string)
	return ok
}

// ParseRequest converts an Agent SDK request to the neutral model.
// MCP server tools flatten to mcp__{server}__{tool} names.
func (adapter *claudeCodeAdapter) ParseRequest(body map[string]interface{}) (*Request, error) {
	options := anyMap(body["options"])

	messages := []Message{}
	if prompt := str(options["systemPrompt"]); prompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: []Block{TextBlock(prompt)}})
	}
	messages = append(messages, Message{Role: RoleUser, Content: []Block{TextBlock(str(body["prompt"]))}})

	tools := []Tool{}
	for server, value := range anyMap(options["mcpServers"]) {
		config := anyMap(value)
		for _, t := range mapSlice(config, "tools") {
			tools = append(tools, Tool{
				Name:        fmt.Sprintf("mcp__%s__%s", server, str(t["name"])),
				Description: str(t["description"]),
				InputSchema: anyMap(t["input_schema"]),
			})
		}
	}

	model := str(options["model"])
	if model == "" {
		model = defaultClaudeCodeModel
	}

	return &Request{
		Messages:   messages,
		Model:      model,
		Stream:     false, // the SDK iterates messages, not SSE
		Tools:      tools,
		ToolChoice: options["tool_choice"],
		Extra:      extraFields(options, "model", "systemPrompt", "mcpServers", "tool_choice"),
	}, nil
}

// RenderRequest converts a neutral request to an Agent SDK body. All
// tools collapse into a single default MCP server.
func (adapter *claudeCodeAdapter) RenderRequest(req *Request) map[string]interface{} {
	systemTexts := []string{}
	userTexts := []string{}
	for _, m := range req.Messages {
		for _, block := range m.Content {
			if block.Type != BlockText || block.Text == "" {
				continue
			}
			switch m.Role {
			case RoleSystem:
				systemTexts = append(systemTexts, block.Text)
			case RoleUser:
				userTexts = append(userTexts, block.Text)
			}
		}
	}

	options := map[string]interface{}{"model": req.Model}
	if len(systemTexts) > 0 {
		options["systemPrompt"] = strings.Join(systemTexts, "\n")
	}
	for key, value := range req.Extra {
		options[key] = value
	}

	if len(req.Tools) > 0 {
		tools := []interface{}{}
		for _, t := range req.Tools {
			tools = append(tools, map[string]interface{}{
				"name":         strings.TrimPrefix(t.Name, "mcp__default__"),
				"description":  t.Description,
				"input_schema": t.InputSchema,
			})
		}
		options["mcpServers"] = map[string]interface{}{
			"default": map[string]interface{}{"tools": tools},
		}
	}

	return map[string]interface{}{
		"prompt":  strings.Join(userTexts, "\n"),
		"options": options,
	}
}

// ParseResponse converts an Agent SDK stream message to the neutral
// model. Messages are typed: assistant, tool_call, tool_result.
func (adapter *claudeCodeAdapter) ParseResponse(body map[string]interface{}) (*Response, error) {
	blocks := []Block{}

	switch str(body["type"]) {
	case RoleAssistant:
		switch content := body["content"].(type) {
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
					blocks = append(blocks, ToolCallBlock(str(part["id"]), str(part["name"]), anyMap(part["input"])))
				}
			}
		}

	case "tool_call":
		blocks = append(blocks, ToolCallBlock(str(body["id"]), str(body["tool_name"]), anyMap(body["input"])))

	case "tool_result":
		blocks = append(blocks, ToolResultBlock(str(body["tool_call_id"]), str(body["tool_name"]), body["result"]))
	}

	if len(blocks) == 0 {
		blocks = append(blocks, TextBlock(""))
	}

	id := str(body["id"])
	if id == "" {
		id = str(body["session_id"])
	}

	var usage map[string]interface{}
	if u, ok := body["usage"].(map[string]interface{}); ok {
		usage = u
	}

	return &Response{
		ID:           id,
		Model:        str(body["model"]),
		Messages:     []Message{{Role: RoleAssistant, Content: blocks}},
		FinishReason: str(body["stop_reason"]),
		Usage:        usage,
		Extra:        extraFields(body, "id", "type", "content", "model", "stop_reason", "usage"),
	}, nil
}

// RenderResponse converts a neutral response to an Agent SDK stream
// message. Tool results win over tool calls, tool calls over text.
func (adapter *claudeCodeAdapter) RenderResponse(res *Response) map[string]interface{} {
	last := res.LastMessage()

	for _, block := range last.Content {
		if block.Type == BlockToolResult && block.ToolResult != nil {
			return map[string]interface{}{
				"type":         "tool_result",
				"tool_name":    block.ToolResult.Name,
				"result":       block.ToolResult.Output,
				"tool_call_id": block.ToolResult.CallID,
			}
		}
	}

	for _, block := range last.Content {
		if block.Type == BlockToolCall && block.ToolCall != nil {
			return map[string]interface{}{
				"type":      "tool_call",
				"id":        block.ToolCall.ID,
				"tool_name": block.ToolCall.Name,
				"input":     block.ToolCall.Arguments,
			}
		}
	}

	content := []interface{}{}
	for _, block := range last.Content {
		if block.Type == BlockText && block.Text != "" {
			content = append(content, map[string]interface{}{"type": "text", "text": block.Text})
		}
	}
	if len(content) == 0 {
		content = append(content, map[string]interface{}{"type": "text", "text": ""})
	}

	body := map[string]interface{}{
		"type":    RoleAssistant,
		"content": content,
		"model":   res.Model,
		"id":      res.ID,
	}
	for key, value := range res.Extra {
		body[key] = value
	}
	return body
}
