package transform

import (
	"fmt"
	"net/http"
	"strings"
)

// geminiChatAdapter translates the Gemini generateContent dialect
type geminiChatAdapter struct{}

func (adapter *geminiChatAdapter) Name() string { return GeminiChat }

// CanParse accepts the Gemini contents[].parts shape and the
// :generateContent path suffix.
func (adapter *geminiChatAdapter) CanParse(path string, headers http.Header, body map[string]interface{}) bool {
	if isGemini(body) {
		return true
	}
	return strings.Contains(path, ":generateContent") || strings.Contains(path, ":streamGenerateContent")
}

// ParseRequest converts a Gemini request to the neutral model
func (adapter *geminiChatAdapter) ParseRequest(body map[string]interface{}) (*Request, error) {
	messages := []Message{}

	instruction := anyMap(body["systemInstruction"])
	if texts := geminiPartTexts(instruction["parts"]); len(texts) > 0 {
		messages = append(messages, Message{
			Role:    RoleSystem,
			Content: []Block{TextBlock(strings.Join(texts, "\n"))},
		})
	}

	callSeq := 0
	lastCall := map[string]string{}
	for _, content := range mapSlice(body, "contents") {
		blocks := []Block{}
		for _, item := range parts(content) {
			switch {
			case item["text"] != nil:
				blocks = append(blocks, TextBlock(str(item["text"])))

			case item["fileData"] != nil:
				file := anyMap(item["fileData"])
				blocks = append(blocks, ImageBlock(str(file["fileUri"]), ""))

			case item["functionCall"] != nil:
				call := anyMap(item["functionCall"])
				callSeq++
				id := geminiCallID(str(call["name"]), callSeq)
				lastCall[str(call["name"])] = id
				blocks = append(blocks, ToolCallBlock(id, str(call["name"]), anyMap(call["args"])))

			case item["functionResponse"] != nil:
				response := anyMap(item["functionResponse"])
				id := lastCall[str(response["name"])]
				if id == "" {
					callSeq++
					id = geminiCallID(str(response["name"]), callSeq)
				}
				blocks = append(blocks, ToolResultBlock(id, str(response["name"]), response["response"]))
			}
		}
		if len(blocks) == 0 {
			blocks = append(blocks, TextBlock(""))
		}

		role := RoleUser
		if str(content["role"]) == "model" {
			role = RoleAssistant
		}
		messages = append(messages, Message{Role: role, Content: blocks})
	}

	tools := []Tool{}
	for _, t := range mapSlice(body, "tools") {
		for _, decl := range mapSlice(t, "functionDeclarations") {
			tools = append(tools, Tool{
				Name:        str(decl["name"]),
				Description: str(decl["description"]),
				InputSchema: anyMap(decl["parameters"]),
			})
		}
	}

	return &Request{
		Messages:   messages,
		Model:      str(body["model"]),
		Stream:     false,
		Tools:      tools,
		ToolChoice: body["toolConfig"],
		Extra:      extraFields(body, "contents", "systemInstruction", "model", "tools", "toolConfig"),
	}, nil
}

// RenderRequest converts a neutral request to a Gemini body
func (adapter *geminiChatAdapter) RenderRequest(req *Request) map[string]interface{} {
	body := map[string]interface{}{}
	if req.Model != "" {
		body["model"] = req.Model
	}

	systemTexts := []string{}
	contents := []interface{}{}
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			for _, block := range m.Content {
				if block.Type == BlockText && block.Text != "" {
					systemTexts = append(systemTexts, block.Text)
				}
			}
			continue
		}

		parts := []interface{}{}
		for _, block := range m.Content {
			switch block.Type {
			case BlockText:
				if block.Text != "" {
					parts = append(parts, map[string]interface{}{"text": block.Text})
				}

			case BlockImage:
				parts = append(parts, map[string]interface{}{
					"fileData": map[string]interface{}{"fileUri": block.Image.URL},
				})

			case BlockToolCall:
				parts = append(parts, map[string]interface{}{
					"functionCall": map[string]interface{}{
						"name": block.ToolCall.Name,
						"args": block.ToolCall.Arguments,
					},
				})

			case BlockToolResult:
				parts = append(parts, map[string]interface{}{
					"functionResponse": map[string]interface{}{
						"name":     block.ToolResult.Name,
						"response": block.ToolResult.Output,
					},
				})
			}
		}
		if len(parts) == 0 {
			continue
		}

		role := RoleUser
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, map[string]interface{}{"role": role, "parts": parts})
	}

	if len(systemTexts) > 0 {
		body["systemInstruction"] = map[string]interface{}{
			"parts": []interface{}{map[string]interface{}{"text": strings.Join(systemTexts, "\n")}},
		}
	}
	body["contents"] = contents

	if len(req.Tools) > 0 {
		declarations := []interface{}{}
		for _, t := range req.Tools {
			declarations = append(declarations, map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			})
		}
		body["tools"] = []interface{}{map[string]interface{}{"functionDeclarations": declarations}}
	}
	if req.ToolChoice != nil {
		body["toolConfig"] = req.ToolChoice
	}
	for key, value := range req.Extra {
		body[key] = value
	}
	return body
}

// ParseResponse converts a Gemini response to the neutral model
func (adapter *geminiChatAdapter) ParseResponse(body map[string]interface{}) (*Response, error) {
	candidates := mapSlice(body, "candidates")
	candidate := map[string]interface{}{}
	if len(candidates) > 0 {
		candidate = candidates[0]
	}
	content := anyMap(candidate["content"])

	blocks := []Block{}
	callSeq := 0
	for _, item := range parts(content) {
		switch {
		case item["text"] != nil:
			blocks = append(blocks, TextBlock(str(item["text"])))
		case item["functionCall"] != nil:
			call := anyMap(item["functionCall"])
			callSeq++
			blocks = append(blocks, ToolCallBlock(
				geminiCallID(str(call["name"]), callSeq),
				str(call["name"]),
				anyMap(call["args"]),
			))
		}
	}
	if len(blocks) == 0 {
		blocks = append(blocks, TextBlock(""))
	}

	var usage map[string]interface{}
	if u, ok := body["usageMetadata"].(map[string]interface{}); ok {
		usage = u
	}

	return &Response{
		ID:           str(body["responseId"]),
		Model:        str(body["modelVersion"]),
		Messages:     []Message{{Role: RoleAssistant, Content: blocks}},
		FinishReason: str(candidate["finishReason"]),
		Usage:        usage,
		Extra:        extraFields(body, "candidates", "responseId", "modelVersion", "usageMetadata"),
	}, nil
}

// RenderResponse converts a neutral response to a Gemini body
func (adapter *geminiChatAdapter) RenderResponse(res *Response) map[string]interface{} {
	last := res.LastMessage()

	renderedParts := []interface{}{}
	for _, block := range last.Content {
		switch block.Type {
		case BlockText:
			if block.Text != "" {
				renderedParts = append(renderedParts, map[string]interface{}{"text": block.Text})
			}
		case BlockToolCall:
			renderedParts = append(renderedParts, map[string]interface{}{
				"functionCall": map[string]interface{}{
					"name": block.ToolCall.Name,
					"args": block.ToolCall.Arguments,
				},
			})
		}
	}
	if len(renderedParts) == 0 {
		renderedParts = append(renderedParts, map[string]interface{}{"text": ""})
	}

	body := map[string]interface{}{
		"candidates": []interface{}{map[string]interface{}{
			"content":      map[string]interface{}{"role": "model", "parts": renderedParts},
			"finishReason": res.FinishReason,
			"index":        0,
		}},
		"responseId":   res.ID,
		"modelVersion": res.Model,
	}
	if res.Usage != nil {
		body["usageMetadata"] = res.Usage
	}
	for key, value := range res.Extra {
		body[key] = value
	}
	return body
}

// parts returns the parts list of a content entry
func parts(content map[string]interface{}) []map[string]interface{} {
	return mapSlice(content, "parts")
}

// geminiPartTexts collects the text fields of a parts value
func geminiPartTexts(value interface{}) []string {
	texts := []string{}
	items, ok := value.([]interface{})
	if !ok {
		return texts
	}
	for _, item := range items {
		if part, ok := item.(map[string]interface{}); ok {
			if text := str(part["text"]); text != "" {
				texts = append(texts, text)
			}
		}
	}
	return texts
}

// geminiCallID synthesizes a stable call id. Gemini function calls
// carry no id on the wire; the name plus position keeps the binding
// between a call and its response deterministic within a request.
func geminiCallID(name string, seq int) string {
	return fmt.Sprintf("call_%s_%d", name, seq)
}
