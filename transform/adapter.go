package transform

import (
	"fmt"
	"net/http"

	"github.com/spf13/cast"
)

// Dialect names
const (
	ClaudeCode  = "claude_code"
	ClaudeChat  = "claude_chat"
	OpenAIChat  = "openai_chat"
	GeminiChat  = "gemini_chat"
	OpenAICodex = "openai_codex"
)

// Adapter translates one vendor dialect to and from the neutral model.
// Adapters hold no state; every method is a pure function of its inputs.
type Adapter interface {
	Name() string

	// CanParse reports whether the request looks like this dialect.
	// It must assert on dialect-specific signals and exclude known
	// conflicts with other dialects.
	CanParse(path string, headers http.Header, body map[string]interface{}) bool

	// ParseRequest converts a dialect request body to the neutral model
	ParseRequest(body map[string]interface{}) (*Request, error)

	// RenderRequest converts a neutral request to a dialect request body
	RenderRequest(req *Request) map[string]interface{}

	// ParseResponse converts a dialect response body to the neutral model
	ParseResponse(body map[string]interface{}) (*Response, error)

	// RenderResponse converts a neutral response to a dialect response body
	RenderResponse(res *Response) map[string]interface{}
}

// order is the detection order, most specific dialect first.
var order = []string{ClaudeCode, ClaudeChat, OpenAIChat, GeminiChat, OpenAICodex}

var adapters = map[string]Adapter{
	ClaudeCode:  &claudeCodeAdapter{},
	ClaudeChat:  &claudeChatAdapter{},
	OpenAIChat:  &openaiChatAdapter{},
	GeminiChat:  &geminiChatAdapter{},
	OpenAICodex: &openaiCodexAdapter{},
}

// Get returns the adapter for the given dialect name
func Get(name string) (Adapter, error) {
	adapter, has := adapters[name]
	if !has {
		return nil, fmt.Errorf("unknown dialect: %s", name)
	}
	return adapter, nil
}

// Dialects returns the supported dialect names in detection order
func Dialects() []string {
	names := make([]string, len(order))
	copy(names, order)
	return names
}

// Detect returns the first adapter whose CanParse accepts the request.
// candidates restricts the set of dialects to try; nil or empty means
// all dialects in detection order.
func Detect(path string, headers http.Header, body map[string]interface{}, candidates []string) (Adapter, bool) {
	names := order
	if len(candidates) > 0 {
		allowed := map[string]bool{}
		for _, name := range candidates {
			allowed[name] = true
		}
		names = []string{}
		for _, name := range order {
			if allowed[name] {
				names = append(names, name)
			}
		}
	}

	for _, name := range names {
		adapter := adapters[name]
		if adapter.CanParse(path, headers, body) {
			return adapter, true
		}
	}
	return nil, false
}

// mapSlice returns body[key] as a slice of maps, skipping entries of
// other shapes.
func mapSlice(body map[string]interface{}, key string) []map[string]interface{} {
	values, ok := body[key].([]interface{})
	if !ok {
		return nil
	}
	items := []map[string]interface{}{}
	for _, value := range values {
		if item, ok := value.(map[string]interface{}); ok {
			items = append(items, item)
		}
	}
	return items
}

// anyMap returns value as a map, or an empty map
func anyMap(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// extraFields copies body without the consumed keys
func extraFields(body map[string]interface{}, consumed ...string) map[string]interface{} {
	skip := map[string]bool{}
	for _, key := range consumed {
		skip[key] = true
	}
	extra := map[string]interface{}{}
	for key, value := range body {
		if !skip[key] {
			extra[key] = value
		}
	}
	return extra
}

// isGemini reports whether the body uses the Gemini contents[].parts shape
func isGemini(body map[string]interface{}) bool {
	contents := mapSlice(body, "contents")
	if len(contents) == 0 {
		return false
	}
	_, has := contents[0]["parts"]
	return has
}

// headerHas reports whether the header is present (case-insensitive)
func headerHas(headers http.Header, name string) bool {
	if headers == nil {
		return false
	}
	return headers.Get(name) != ""
}

// str is a shorthand for cast.ToString
func str(value interface{}) string {
	return cast.ToString(value)
}
