package proxy

import (
	"bytes"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
)

// Checker inspects the first SSE frames of an upstream stream and
// decides when the response is worth committing to the client: either
// real text has arrived (more than two characters in total) or a tool
// call has started. Until then the raw bytes are buffered.
type Checker struct {
	buffer    bytes.Buffer
	pending   []byte
	text      []rune
	committed bool
}

// NewChecker a checker over one upstream stream
func NewChecker() *Checker {
	return &Checker{}
}

// Feed consume one chunk of upstream bytes. Returns true once the
// stream has committed (including on this chunk).
func (checker *Checker) Feed(chunk []byte) bool {
	if checker.committed {
		return true
	}

	checker.buffer.Write(chunk)
	checker.pending = append(checker.pending, chunk...)

	for {
		frame, rest, found := cutFrame(checker.pending)
		if !found {
			break
		}
		checker.pending = rest
		checker.inspect(frame)
		if checker.committed {
			break
		}
	}
	return checker.committed
}

// Committed reports whether the stream has produced content
func (checker *Checker) Committed() bool {
	return checker.committed
}

// Buffered the raw bytes consumed before commitment
func (checker *Checker) Buffered() []byte {
	return checker.buffer.Bytes()
}

// Text the accumulated textual content
func (checker *Checker) Text() string {
	return string(checker.text)
}

// inspect one SSE frame: decode the data payload and account for its
// text or tool-call markers
func (checker *Checker) inspect(frame []byte) {
	for _, line := range strings.Split(string(frame), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(line[len("data:"):])
		if data == "" || data == "[DONE]" {
			continue
		}

		payload := map[string]interface{}{}
		if err := jsoniter.UnmarshalFromString(data, &payload); err != nil {
			continue
		}
		checker.account(payload)
		if checker.committed {
			return
		}
	}
}

func (checker *Checker) account(payload map[string]interface{}) {
	// OpenAI chunk: choices[].delta
	if choices, ok := payload["choices"].([]interface{}); ok {
		for _, item := range choices {
			choice := cast.ToStringMap(item)
			delta := cast.ToStringMap(choice["delta"])
			if calls, ok := delta["tool_calls"].([]interface{}); ok && len(calls) > 0 {
				checker.committed = true
				return
			}
			checker.text = append(checker.text, []rune(cast.ToString(delta["content"]))...)
		}
	}

	// Claude events
	switch cast.ToString(payload["type"]) {
	case "content_block_delta":
		delta := cast.ToStringMap(payload["delta"])
		if cast.ToString(delta["type"]) == "text_delta" {
			checker.text = append(checker.text, []rune(cast.ToString(delta["text"]))...)
		}
	case "content_block_start":
		block := cast.ToStringMap(payload["content_block"])
		if cast.ToString(block["type"]) == "tool_use" {
			checker.committed = true
			return
		}
	case "message_start":
		message := cast.ToStringMap(payload["message"])
		if content, ok := message["content"].([]interface{}); ok {
			for _, item := range content {
				if cast.ToString(cast.ToStringMap(item)["type"]) == "tool_use" {
					checker.committed = true
					return
				}
			}
		}
	}

	if len(checker.text) > 2 {
		checker.committed = true
	}
}

// cutFrame split the first complete SSE frame off the buffer. Frames
// end with a blank line.
func cutFrame(data []byte) ([]byte, []byte, bool) {
	for _, sep := range [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")} {
		if idx := bytes.Index(data, sep); idx >= 0 {
			return data[:idx], data[idx+len(sep):], true
		}
	}
	return nil, data, false
}
