package proxy

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/yaoapp/kun/log"

	"github.com/guardianbridge/guardianbridge/config"
	"github.com/guardianbridge/guardianbridge/moderation"
	"github.com/guardianbridge/guardianbridge/transform"
)

// Attach mount the gateway on the engine. Every method and path goes
// through the same handler; anything not matching the path grammar is
// a 404.
func Attach(router *gin.Engine) {
	router.NoRoute(handle)
}

func handle(c *gin.Context) {
	requestID := c.Request.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-Id", requestID)

	token, upstream, err := ParsePath(c.Request.URL.EscapedPath())
	if err != nil {
		abortError(c, http.StatusNotFound, ErrPathGrammar, err.Error())
		return
	}
	log.Trace("proxy: [%s] %s %s", requestID, c.Request.Method, upstream)

	cfg, err := DecodeToken(token)
	if err != nil {
		abortError(c, http.StatusBadRequest, ErrConfigDecode, err.Error())
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortError(c, http.StatusBadRequest, ErrInternal, err.Error())
		return
	}

	// non-JSON bodies bypass moderation and translation
	bodyMap := map[string]interface{}{}
	isJSON := len(body) > 0 && jsoniter.Unmarshal(body, &bodyMap) == nil

	var from transform.Adapter
	var neutral *transform.Request

	needParse := isJSON &&
		(cfg.FormatTransform.Enabled || cfg.BasicModeration.Enabled || cfg.SmartModeration.Enabled)

	if needParse {
		if cfg.FormatTransform.DisableTools && hasToolMarkers(bodyMap) {
			abortError(c, http.StatusBadRequest, ErrToolsDisabled, "tools are disabled on this route")
			return
		}

		candidates := detectCandidates(cfg)
		adapter, ok := transform.Detect(upstreamPath(upstream), c.Request.Header, bodyMap, candidates)
		if ok {
			parsed, err := adapter.ParseRequest(bodyMap)
			if err == nil {
				from, neutral = adapter, parsed
			} else if cfg.FormatTransform.Enabled && cfg.FormatTransform.StrictParse {
				abortError(c, http.StatusBadRequest, ErrFormatDetect, err.Error())
				return
			}
		} else if cfg.FormatTransform.Enabled && cfg.FormatTransform.StrictParse {
			abortError(c, http.StatusBadRequest, ErrFormatDetect, "no dialect matched the request")
			return
		}
	}

	if neutral != nil {
		if cfg.FormatTransform.DisableTools && neutral.HasTools() {
			abortError(c, http.StatusBadRequest, ErrToolsDisabled, "tools are disabled on this route")
			return
		}

		text := neutral.ModerationText()
		if cfg.BasicModeration.Enabled {
			result := moderation.Basic(text, keywordsFile(cfg), cfg.BasicModeration.ErrorCode)
			if result.Violation {
				abortError(c, http.StatusBadRequest, ErrBasicModeration, result.Reason)
				return
			}
		}
		if cfg.SmartModeration.Enabled {
			result, err := moderation.Smart(config.Conf.ProfilesRoot, cfg.SmartModeration.Profile, text)
			if err != nil {
				// moderation faults fail open
				log.Error("proxy: smart moderation: %s", err.Error())
			}
			if result.Violation {
				abortError(c, http.StatusBadRequest, ErrSmartModeration, result.Reason)
				return
			}
		}
	}

	// render the request in the upstream dialect
	var to transform.Adapter
	if cfg.FormatTransform.Enabled && from != nil && neutral != nil {
		neutral.Stream = cfg.FormatTransform.Stream.Resolve(neutral.Stream)
		if cfg.FormatTransform.To != "" && cfg.FormatTransform.To != from.Name() {
			target, err := transform.Get(cfg.FormatTransform.To)
			if err != nil {
				abortError(c, http.StatusBadRequest, ErrConfigDecode, err.Error())
				return
			}
			to = target
		}
		render := from
		if to != nil {
			render = to
		}
		rendered, err := jsoniter.Marshal(render.RenderRequest(neutral))
		if err != nil {
			abortError(c, http.StatusInternalServerError, ErrInternal, err.Error())
			return
		}
		body = rendered
	}

	forward(c, upstream, body, from, to)
}

// forward send the request upstream and relay the response
func forward(c *gin.Context, upstream string, body []byte, from transform.Adapter, to transform.Adapter) {
	target := upstream
	if c.Request.URL.RawQuery != "" {
		target = target + "?" + c.Request.URL.RawQuery
	}

	request, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, bytes.NewReader(body))
	if err != nil {
		abortError(c, http.StatusBadGateway, ErrUpstream, err.Error())
		return
	}
	copyRequestHeaders(request.Header, c.Request.Header)

	response, err := Client(upstream).Do(request)
	if err != nil {
		abortError(c, http.StatusBadGateway, ErrUpstream, err.Error())
		return
	}
	defer response.Body.Close()

	if strings.Contains(response.Header.Get("Content-Type"), "text/event-stream") {
		relayStream(c, response)
		return
	}
	relayBody(c, response, from, to)
}

// relayBody relay a non-streaming response, translating it back to the
// client dialect when the route translates requests
func relayBody(c *gin.Context, response *http.Response, from transform.Adapter, to transform.Adapter) {
	payload, err := io.ReadAll(response.Body)
	if err != nil {
		abortError(c, http.StatusBadGateway, ErrUpstream, err.Error())
		return
	}

	headers := filterResponseHeaders(response.Header)

	if to != nil && from != nil && response.StatusCode < 300 {
		decoded, wasCompressed, err := decodeBody(payload, response.Header.Get("Content-Encoding"))
		if err != nil {
			abortError(c, http.StatusInternalServerError, ErrResponseTransform, err.Error())
			return
		}

		bodyMap := map[string]interface{}{}
		if err := jsoniter.Unmarshal(decoded, &bodyMap); err != nil {
			abortError(c, http.StatusInternalServerError, ErrResponseTransform, err.Error())
			return
		}

		parsed, err := to.ParseResponse(bodyMap)
		if err != nil {
			abortError(c, http.StatusInternalServerError, ErrResponseTransform, err.Error())
			return
		}
		payload, err = jsoniter.Marshal(from.RenderResponse(parsed))
		if err != nil {
			abortError(c, http.StatusInternalServerError, ErrResponseTransform, err.Error())
			return
		}

		if wasCompressed {
			headers.Del("Content-Encoding")
		}
		headers.Set("Content-Type", "application/json")
	}

	writeHeaders(c, headers)
	c.Status(response.StatusCode)
	c.Writer.Write(payload)
}

// relayStream gate the stream on the validator, then pass bytes
// through verbatim
func relayStream(c *gin.Context, response *http.Response) {
	checker := NewChecker()
	chunk := make([]byte, 4096)

	for !checker.Committed() {
		n, err := response.Body.Read(chunk)
		if n > 0 {
			checker.Feed(chunk[:n])
		}
		if err == io.EOF {
			if !checker.Committed() {
				abortError(c, http.StatusBadGateway, ErrStreamEmpty,
					"upstream closed the stream before any content: "+checker.Text())
				return
			}
			break
		}
		if err != nil {
			abortError(c, http.StatusBadGateway, ErrUpstream, err.Error())
			return
		}
	}

	writeHeaders(c, filterResponseHeaders(response.Header))
	c.Status(response.StatusCode)
	c.Writer.Write(checker.Buffered())
	c.Writer.Flush()

	for {
		n, err := response.Body.Read(chunk)
		if n > 0 {
			c.Writer.Write(chunk[:n])
			c.Writer.Flush()
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			// the stream is live, surface the fault in-band
			sse.Encode(c.Writer, sse.Event{Event: "error", Data: err.Error()})
			c.Writer.Flush()
			return
		}
	}
}

// detectCandidates the dialects detection may consider for this route
func detectCandidates(cfg *Config) []string {
	candidates := cfg.FormatTransform.From.Candidates()
	if !cfg.FormatTransform.DisableTools {
		return candidates
	}
	if candidates == nil {
		candidates = transform.Dialects()
	}
	kept := []string{}
	for _, name := range candidates {
		if name == transform.ClaudeCode || name == transform.OpenAICodex {
			continue
		}
		kept = append(kept, name)
	}
	return kept
}

// hasToolMarkers reports tools-related fields in a raw request body
func hasToolMarkers(body map[string]interface{}) bool {
	if tools, ok := body["tools"].([]interface{}); ok && len(tools) > 0 {
		return true
	}
	if _, has := body["tool_choice"]; has {
		return true
	}
	if messages, ok := body["messages"].([]interface{}); ok {
		for _, item := range messages {
			message, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if calls, ok := message["tool_calls"].([]interface{}); ok && len(calls) > 0 {
				return true
			}
			if role, _ := message["role"].(string); role == "tool" {
				return true
			}
			if blocks, ok := message["content"].([]interface{}); ok {
				for _, raw := range blocks {
					block, ok := raw.(map[string]interface{})
					if !ok {
						continue
					}
					kind, _ := block["type"].(string)
					if kind == "tool_use" || kind == "tool_result" {
						return true
					}
				}
			}
		}
	}
	return false
}

// hop-by-hop headers never cross the proxy
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Proxy-Connection", "Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// copyRequestHeaders splice client headers into the upstream request.
// Compression is pinned to codecs the stream validator can read.
func copyRequestHeaders(dst http.Header, src http.Header) {
	for key, values := range src {
		dst[key] = append([]string(nil), values...)
	}
	for _, key := range hopHeaders {
		dst.Del(key)
	}
	dst.Del("Host")
	dst.Del("Content-Length")
	dst.Set("Accept-Encoding", "gzip, deflate, identity")
}

func filterResponseHeaders(src http.Header) http.Header {
	headers := http.Header{}
	for key, values := range src {
		headers[key] = append([]string(nil), values...)
	}
	for _, key := range hopHeaders {
		headers.Del(key)
	}
	headers.Del("Content-Length")
	return headers
}

func writeHeaders(c *gin.Context, headers http.Header) {
	for key, values := range headers {
		for _, value := range values {
			c.Writer.Header().Add(key, value)
		}
	}
}

func decodeBody(payload []byte, encoding string) ([]byte, bool, error) {
	switch {
	case strings.Contains(encoding, "gzip"):
		reader, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, false, err
		}
		defer reader.Close()
		decoded, err := io.ReadAll(reader)
		if err != nil {
			return nil, false, err
		}
		return decoded, true, nil

	case strings.Contains(encoding, "deflate"):
		// servers send zlib-wrapped deflate, a few send the raw stream
		if reader, err := zlib.NewReader(bytes.NewReader(payload)); err == nil {
			defer reader.Close()
			if decoded, err := io.ReadAll(reader); err == nil {
				return decoded, true, nil
			}
		}
		reader := flate.NewReader(bytes.NewReader(payload))
		defer reader.Close()
		decoded, err := io.ReadAll(reader)
		if err != nil {
			return nil, false, err
		}
		return decoded, true, nil
	}
	return payload, false, nil
}

// upstreamPath the path component of the upstream URL, used as a
// detection signal
func upstreamPath(upstream string) string {
	if parsed, err := url.Parse(upstream); err == nil {
		return parsed.Path
	}
	return ""
}

// keywordsFile the keyword file for a route, falling back to the
// gateway default
func keywordsFile(cfg *Config) string {
	if cfg.BasicModeration.KeywordsFile != "" {
		return cfg.BasicModeration.KeywordsFile
	}
	return config.Conf.KeywordsFile
}
