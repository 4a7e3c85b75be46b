// Package proxy routes gateway requests: it decodes the inline URL
// configuration, runs moderation and format translation, and forwards
// the request to the upstream service.
package proxy

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// BasicModeration the keyword tier settings
type BasicModeration struct {
	Enabled      bool   `json:"enabled"`
	KeywordsFile string `json:"keywords_file"`
	ErrorCode    string `json:"error_code"`
}

// SmartModeration the classifier tier settings
type SmartModeration struct {
	Enabled bool   `json:"enabled"`
	Profile string `json:"profile"`
}

// FormatTransform the translation settings
type FormatTransform struct {
	Enabled      bool       `json:"enabled"`
	From         FromSpec   `json:"from"`
	To           string     `json:"to"`
	Stream       StreamSpec `json:"stream"`
	StrictParse  bool       `json:"strict_parse"`
	DisableTools bool       `json:"disable_tools"`
}

// Config the per-request configuration carried in the URL. Immutable
// after decoding.
type Config struct {
	BasicModeration BasicModeration `json:"basic_moderation"`
	SmartModeration SmartModeration `json:"smart_moderation"`
	FormatTransform FormatTransform `json:"format_transform"`
}

// FromSpec the source dialect: "auto", one dialect name, or a list of
// candidate names
type FromSpec struct {
	Names []string
}

// UnmarshalJSON accept a string or a list of strings
func (spec *FromSpec) UnmarshalJSON(data []byte) error {
	var name string
	if err := jsoniter.Unmarshal(data, &name); err == nil {
		if name != "" && name != "auto" {
			spec.Names = []string{name}
		}
		return nil
	}

	var names []string
	if err := jsoniter.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("from must be a dialect name or a list: %s", err.Error())
	}
	spec.Names = names
	return nil
}

// Candidates the dialects to try during detection; nil means all
func (spec FromSpec) Candidates() []string {
	return spec.Names
}

// StreamSpec the streaming override: "auto" follows the request body,
// a boolean forces the value
type StreamSpec struct {
	Auto  bool
	Value bool
}

// UnmarshalJSON accept "auto" or a boolean
func (spec *StreamSpec) UnmarshalJSON(data []byte) error {
	var value bool
	if err := jsoniter.Unmarshal(data, &value); err == nil {
		spec.Auto = false
		spec.Value = value
		return nil
	}

	var name string
	if err := jsoniter.Unmarshal(data, &name); err != nil || name != "auto" {
		return fmt.Errorf("stream must be \"auto\" or a boolean")
	}
	spec.Auto = true
	return nil
}

// Resolve the effective stream flag given the request body's value
func (spec StreamSpec) Resolve(bodyStream bool) bool {
	if spec.Auto {
		return bodyStream
	}
	return spec.Value
}

// DecodeToken decode the configuration token from the URL: either
// "!ENV_NAME" naming an environment variable holding JSON, or a
// URL-encoded JSON document.
func DecodeToken(token string) (*Config, error) {
	config := &Config{
		BasicModeration: BasicModeration{ErrorCode: "BASIC_MODERATION_BLOCKED"},
		FormatTransform: FormatTransform{Stream: StreamSpec{Auto: true}},
	}

	raw := token
	if strings.HasPrefix(token, "!") {
		name := token[1:]
		raw = os.Getenv(name)
		if raw == "" {
			return nil, fmt.Errorf("environment variable %s is empty or unset", name)
		}
	} else {
		decoded, err := url.QueryUnescape(token)
		if err != nil {
			return nil, fmt.Errorf("config token is not URL-encoded: %s", err.Error())
		}
		raw = decoded
	}

	if err := jsoniter.UnmarshalFromString(raw, config); err != nil {
		return nil, fmt.Errorf("config token is not valid JSON: %s", err.Error())
	}
	return config, nil
}

// ParsePath split "/{token}${upstream-url}" into the raw token and the
// upstream URL. The token stays percent-encoded; the upstream part is
// taken verbatim.
func ParsePath(escapedPath string) (string, string, error) {
	if !strings.HasPrefix(escapedPath, "/") {
		return "", "", fmt.Errorf("path must start with /")
	}

	rest := escapedPath[1:]
	idx := strings.Index(rest, "$")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", fmt.Errorf("path must look like /{config}${upstream-url}")
	}

	token := rest[:idx]
	upstream := rest[idx+1:]

	// some clients collapse the double slash after the scheme
	for _, scheme := range []string{"http", "https"} {
		prefix := scheme + ":/"
		if strings.HasPrefix(upstream, prefix) && !strings.HasPrefix(upstream, scheme+"://") {
			upstream = scheme + "://" + upstream[len(prefix):]
		}
	}
	if !strings.HasPrefix(upstream, "http://") && !strings.HasPrefix(upstream, "https://") {
		return "", "", fmt.Errorf("upstream URL must be absolute, got %s", upstream)
	}
	return token, upstream, nil
}
