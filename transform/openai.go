package transform

import (
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
)

// openaiChatAdapter translates the OpenAI Chat Completions dialect
type openaiChatAdapter struct{}

func (adapter *openaiChatAdapter) Name() string { return OpenAIChat }

// CanParse accepts chat-completions requests and rejects the Gemini
// contents shape, prompt-only completion bodies and Claude bodies that
// carry cache_control blocks.
func (adapter *openaiChatAdapter) CanParse(path string, headers http.Header, body map[string]interface{}) bool {
	if isGemini(body) {
		return false
	}

	if _, has := body["prompt"]; has {
		if _, hasMessages := body["messages"]; !hasMessages {
			return false
		}
	}

	// cache_control is a Claude prompt-caching marker
	for _, msg := range mapSlice(body, "messages") {
		if content, ok := msg["content"].([]interface{}); ok {
			for _, part := range content {
				if block, ok := part.(map[string]interface{}); ok {
					if _, has := block["cache_control"]; has {
						return false
					}
				}
			}
		}
	}

	if strings.Contains(path, "/chat/completions") {
		return true
	}

	messages := mapSlice(body, "messages")
	if len(messages) > 0 {
		if _, has := messages[0]["role"]; has {
			return true
		}
	}
	return false
}

// ParseRequest converts an OpenAI Chat request to the neutral model
func (adapter *openaiChatAdapter) ParseRequest(body map[string]interface{}) (*Request, error) {
	tools := []Tool{}
	for _, t := range mapSlice(body, "tools") {
		if str(t["type"]) != "function" {
			continue
		}
		function := anyMap(t["function"])
		tools = append(tools, Tool{
			Name:        str(function["name"]),
			Description: str(function["description"]),
			InputSchema: anyMap(function["parameters"]),
		})
	}

	messages := []Message{}
	for _, msg := range mapSlice(body, "messages") {
		blocks := parseOpenAIContent(msg["content"])

		if str(msg["role"]) == RoleTool {
			output := msg["content"]
			if output == nil {
				output = ""
			}
			blocks = append(blocks[:0], ToolResultBlock(
				str(msg["tool_call_id"]),
				str(msg["name"]),
				output,
			))
		}

		for _, tc := range mapSlice(msg, "tool_calls") {
			function := anyMap(tc["function"])
			blocks = append(blocks, ToolCallBlock(
				str(tc["id"]),
				str(function["name"]),
				parseArguments(function["arguments"]),
			))
		}

		if len(blocks) == 0 {
			blocks = append(blocks, TextBlock(""))
		}

		role := str(msg["role"])
		if role == "" {
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
		Extra:      extraFields(body, "messages", "model", "stream", "tools", "tool_choice"),
	}, nil
}

// RenderRequest converts a neutral request to an OpenAI Chat body
func (adapter *openaiChatAdapter) RenderRequest(req *Request) map[string]interface{} {
	tools := []interface{}{}
	for _, t := range req.Tools {
		tools = append(tools, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			},
		})
	}

	messages := []interface{}{}
	for _, m := range req.Messages {
		toolResults := []*ToolResult{}
		toolCalls := []*ToolCall{}
		for _, block := range m.Content {
			switch block.Type {
			case BlockToolResult:
				toolResults = append(toolResults, block.ToolResult)
			case BlockToolCall:
				toolCalls = append(toolCalls, block.ToolCall)
			}
		}

		if m.Role != RoleTool {
			msg := map[string]interface{}{"role": m.Role}
			renderOpenAIContent(msg, m.Content, len(toolCalls) > 0)

			if len(toolCalls) > 0 {
				calls := []interface{}{}
				for _, tc := range toolCalls {
					calls = append(calls, map[string]interface{}{
						"id":   tc.ID,
						"type": "function",
						"function": map[string]interface{}{
							"name":      tc.Name,
							"arguments": jsonString(tc.Arguments),
						},
					})
				}
				msg["tool_calls"] = calls
			}
			messages = append(messages, msg)
		}

		// tool results become independent role=tool messages
		for _, tr := range toolResults {
			msg := map[string]interface{}{
				"role":         RoleTool,
				"tool_call_id": tr.CallID,
				"content":      renderToolOutput(tr.Output),
			}
			if tr.Name != "" {
				msg["name"] = tr.Name
			}
			messages = append(messages, msg)
		}
	}

	body := map[string]interface{}{
		"model":    req.Model,
		"messages": messages,
		"stream":   req.Stream,
	}
	if len(tools) > 0 {
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

// ParseResponse converts an OpenAI Chat response to the neutral model
func (adapter *openaiChatAdapter) ParseResponse(body map[string]interface{}) (*Response, error) {
	choices := mapSlice(body, "choices")
	choice := map[string]interface{}{}
	if len(choices) > 0 {
		choice = choices[0]
	}
	message := anyMap(choice["message"])

	blocks := parseOpenAIContent(message["content"])
	for _, tc := range mapSlice(message, "tool_calls") {
		function := anyMap(tc["function"])
		blocks = append(blocks, ToolCallBlock(
			str(tc["id"]),
			str(function["name"]),
			parseArguments(function["arguments"]),
		))
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
		FinishReason: str(choice["finish_reason"]),
		Usage:        usage,
		Extra:        extraFields(body, "id", "model", "choices", "usage"),
	}, nil
}

// RenderResponse converts a neutral response to an OpenAI Chat body
func (adapter *openaiChatAdapter) RenderResponse(res *Response) map[string]interface{} {
	last := res.LastMessage()

	message := map[string]interface{}{"role": RoleAssistant}
	renderOpenAIContent(message, last.Content, true)

	toolCalls := []interface{}{}
	for _, block := range last.Content {
		if block.Type == BlockToolCall && block.ToolCall != nil {
			toolCalls = append(toolCalls, map[string]interface{}{
				"id":   block.ToolCall.ID,
				"type": "function",
				"function": map[string]interface{}{
					"name":      block.ToolCall.Name,
					"arguments": jsonString(block.ToolCall.Arguments),
				},
			})
		}
	}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}

	body := map[string]interface{}{
		"id":     res.ID,
		"model":  res.Model,
		"object": "chat.completion",
		"choices": []interface{}{map[string]interface{}{
			"index":         0,
			"message":       message,
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

// parseOpenAIContent parses a string or multi-part content value into
// text and image blocks.
func parseOpenAIContent(content interface{}) []Block {
	blocks := []Block{}
	switch value := content.(type) {
	case string:
		if value != "" {
			blocks = append(blocks, TextBlock(value))
		}

	case []interface{}:
		for _, item := range value {
			part, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			switch str(part["type"]) {
			case "text":
				blocks = append(blocks, TextBlock(str(part["text"])))
			case "image_url":
				image := anyMap(part["image_url"])
				url := str(image["url"])
				if url == "" {
					continue
				}
				blocks = append(blocks, ImageBlock(url, str(image["detail"])))
			}
		}
	}
	return blocks
}

// renderOpenAIContent writes the content field of an OpenAI message.
// Text-only content renders as a plain string; any image forces the
// multi-part array form.
func renderOpenAIContent(msg map[string]interface{}, blocks []Block, hasToolCalls bool) {
	texts := []string{}
	hasImage := false
	for _, block := range blocks {
		switch block.Type {
		case BlockText:
			texts = append(texts, block.Text)
		case BlockImage:
			hasImage = true
		}
	}

	if hasImage {
		parts := []interface{}{}
		for _, block := range blocks {
			switch block.Type {
			case BlockText:
				parts = append(parts, map[string]interface{}{"type": "text", "text": block.Text})
			case BlockImage:
				image := map[string]interface{}{"url": block.Image.URL}
				if block.Image.Detail != "" {
					image["detail"] = block.Image.Detail
				}
				parts = append(parts, map[string]interface{}{"type": "image_url", "image_url": image})
			}
		}
		msg["content"] = parts
		return
	}

	if len(texts) > 0 {
		msg["content"] = strings.Join(texts, "\n")
	} else if !hasToolCalls {
		msg["content"] = ""
	}
}

// parseArguments decodes a tool-call arguments value. Strings are
// parsed as JSON; a parse failure yields an empty object.
func parseArguments(value interface{}) map[string]interface{} {
	switch args := value.(type) {
	case string:
		parsed := map[string]interface{}{}
		if err := jsoniter.UnmarshalFromString(args, &parsed); err != nil {
			return map[string]interface{}{}
		}
		return parsed
	case map[string]interface{}:
		return args
	}
	return map[string]interface{}{}
}

// renderToolOutput renders a tool result output as a string
func renderToolOutput(output interface{}) string {
	switch value := output.(type) {
	case string:
		return value
	case nil:
		return ""
	default:
		return jsonString(value)
	}
}

// jsonString marshals a value, falling back to the empty object
func jsonString(value interface{}) string {
	text, err := jsoniter.MarshalToString(value)
	if err != nil {
		return "{}"
	}
	return text
}
