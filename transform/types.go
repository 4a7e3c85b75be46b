package transform

import "strings"

// Block types of the neutral content model
const (
	BlockText       = "text"
	BlockImage      = "image_url"
	BlockToolCall   = "tool_call"
	BlockToolResult = "tool_result"
)

// Roles of the neutral message model
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Tool a tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolCall a tool invocation issued by the assistant
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult the output of an earlier tool call
type ToolResult struct {
	CallID string      `json:"call_id"`
	Name   string      `json:"name,omitempty"`
	Output interface{} `json:"output"`
}

// Image an image reference
type Image struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// Block a content block, tagged by Type. Exactly one of the payload
// fields is meaningful for a given type.
type Block struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	Image      *Image      `json:"image_url,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// Message a single chat message
type Message struct {
	Role    string  `json:"role"`
	Content []Block `json:"content"`
}

// Request the neutral chat request
type Request struct {
	Messages   []Message              `json:"messages"`
	Model      string                 `json:"model"`
	Stream     bool                   `json:"stream"`
	Tools      []Tool                 `json:"tools,omitempty"`
	ToolChoice interface{}            `json:"tool_choice,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// Response the neutral chat response
type Response struct {
	ID           string                 `json:"id"`
	Model        string                 `json:"model"`
	Messages     []Message              `json:"messages"`
	FinishReason string                 `json:"finish_reason,omitempty"`
	Usage        map[string]interface{} `json:"usage,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// TextBlock create a text block
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// ImageBlock create an image block
func ImageBlock(url string, detail string) Block {
	return Block{Type: BlockImage, Image: &Image{URL: url, Detail: detail}}
}

// ToolCallBlock create a tool call block
func ToolCallBlock(id string, name string, args map[string]interface{}) Block {
	if args == nil {
		args = map[string]interface{}{}
	}
	return Block{Type: BlockToolCall, ToolCall: &ToolCall{ID: id, Name: name, Arguments: args}}
}

// ToolResultBlock create a tool result block
func ToolResultBlock(callID string, name string, output interface{}) Block {
	return Block{Type: BlockToolResult, ToolResult: &ToolResult{CallID: callID, Name: name, Output: output}}
}

// ModerationText concatenates the text blocks of the user and system
// messages. This is the input handed to the moderation engine.
func (req *Request) ModerationText() string {
	texts := []string{}
	for _, msg := range req.Messages {
		if msg.Role != RoleUser && msg.Role != RoleSystem {
			continue
		}
		for _, block := range msg.Content {
			if block.Type == BlockText && block.Text != "" {
				texts = append(texts, block.Text)
			}
		}
	}
	return strings.Join(texts, "\n")
}

// HasTools reports whether the request carries any tool definition,
// tool choice, tool call or tool result.
func (req *Request) HasTools() bool {
	if len(req.Tools) > 0 || req.ToolChoice != nil {
		return true
	}
	for _, msg := range req.Messages {
		for _, block := range msg.Content {
			if block.Type == BlockToolCall || block.Type == BlockToolResult {
				return true
			}
		}
	}
	return false
}

// LastMessage returns the last message of the response, or an empty
// assistant message when the response has none.
func (res *Response) LastMessage() Message {
	if len(res.Messages) == 0 {
		return Message{Role: RoleAssistant, Content: []Block{TextBlock("")}}
	}
	return res.Messages[len(res.Messages)-1]
}
