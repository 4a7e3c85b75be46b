package proxy

import (
	"bytes"
	"compress/zlib"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
)

func gateway(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Attach(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, gateway *httptest.Server, config string, upstream string, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	target := gateway.URL + "/" + url.QueryEscape(config) + "$" + upstream
	response, err := http.Post(target, "application/json", bytes.NewReader([]byte(body)))
	assert.Nil(t, err)
	t.Cleanup(func() { response.Body.Close() })

	payload, err := io.ReadAll(response.Body)
	assert.Nil(t, err)
	parsed := map[string]interface{}{}
	jsoniter.Unmarshal(payload, &parsed)
	return response, parsed
}

func errorCode(body map[string]interface{}) string {
	if inner, ok := body["error"].(map[string]interface{}); ok {
		code, _ := inner["code"].(string)
		return code
	}
	return ""
}

func TestRouterPathGrammar(t *testing.T) {
	server := gateway(t)

	response, err := http.Get(server.URL + "/no-grammar-here")
	assert.Nil(t, err)
	defer response.Body.Close()
	assert.Equal(t, 404, response.StatusCode)

	payload, _ := io.ReadAll(response.Body)
	parsed := map[string]interface{}{}
	assert.Nil(t, jsoniter.Unmarshal(payload, &parsed))
	assert.Equal(t, ErrPathGrammar, errorCode(parsed))
}

func TestRouterConfigDecodeError(t *testing.T) {
	server := gateway(t)

	response, body := post(t, server, "not json", "http://127.0.0.1:1/v1", `{}`)
	assert.Equal(t, 400, response.StatusCode)
	assert.Equal(t, ErrConfigDecode, errorCode(body))
}

func TestRouterBasicModerationBlock(t *testing.T) {
	var calls int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer upstream.Close()

	keywords := filepath.Join(t.TempDir(), "keywords.txt")
	assert.Nil(t, os.WriteFile(keywords, []byte("forbidden\n"), 0o644))

	server := gateway(t)
	config := `{"basic_moderation":{"enabled":true,"keywords_file":"` + keywords + `"}}`
	request := `{"model":"x","messages":[{"role":"user","content":"this is Forbidden stuff"}]}`

	response, body := post(t, server, config, upstream.URL+"/v1/chat/completions", request)
	assert.Equal(t, 400, response.StatusCode)
	assert.Equal(t, ErrBasicModeration, errorCode(body))

	message := body["error"].(map[string]interface{})["message"].(string)
	assert.Contains(t, message, "forbidden")
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
}

func TestRouterDisableTools(t *testing.T) {
	var calls int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer upstream.Close()

	server := gateway(t)
	config := `{"format_transform":{"enabled":true,"disable_tools":true}}`
	request := `{
		"model": "x",
		"messages": [{"role": "user", "content": "hi"}],
		"tools": [{"type": "function", "function": {"name": "f"}}]
	}`

	response, body := post(t, server, config, upstream.URL+"/v1/chat/completions", request)
	assert.Equal(t, 400, response.StatusCode)
	assert.Equal(t, ErrToolsDisabled, errorCode(body))
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
}

func TestRouterTranslationForward(t *testing.T) {
	var received map[string]interface{}
	var acceptEncoding string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		jsoniter.Unmarshal(payload, &received)
		acceptEncoding = r.Header.Get("Accept-Encoding")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1", "model": "claude-3", "type": "message",
			"content": [{"type": "text", "text": "hello back"}],
			"stop_reason": "end_turn"
		}`))
	}))
	defer upstream.Close()

	server := gateway(t)
	config := `{"format_transform":{"enabled":true,"from":"openai_chat","to":"claude_chat"}}`
	request := `{"model":"x","messages":[{"role":"user","content":"hello"}]}`

	response, body := post(t, server, config, upstream.URL+"/v1/messages", request)
	assert.Equal(t, 200, response.StatusCode)

	// the upstream saw the Claude shape
	assert.Equal(t, "x", received["model"])
	assert.Equal(t, false, received["stream"])
	messages := received["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	assert.Equal(t, map[string]interface{}{"type": "text", "text": "hello"}, content[0])
	assert.Equal(t, "gzip, deflate, identity", acceptEncoding)

	// the client got the OpenAI shape back
	choices := body["choices"].([]interface{})
	message := choices[0].(map[string]interface{})["message"].(map[string]interface{})
	assert.Equal(t, "hello back", message["content"])
	assert.Equal(t, "msg_1", body["id"])
}

func TestRouterTranslationDeflate(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var compressed bytes.Buffer
		writer := zlib.NewWriter(&compressed)
		writer.Write([]byte(`{
			"id": "msg_2", "model": "claude-3", "type": "message",
			"content": [{"type": "text", "text": "compressed reply"}],
			"stop_reason": "end_turn"
		}`))
		writer.Close()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "deflate")
		w.Write(compressed.Bytes())
	}))
	defer upstream.Close()

	server := gateway(t)
	config := `{"format_transform":{"enabled":true,"from":"openai_chat","to":"claude_chat"}}`
	request := `{"model":"x","messages":[{"role":"user","content":"hello"}]}`

	response, body := post(t, server, config, upstream.URL+"/v1/messages", request)
	assert.Equal(t, 200, response.StatusCode)
	assert.Equal(t, "", response.Header.Get("Content-Encoding"))

	choices := body["choices"].([]interface{})
	message := choices[0].(map[string]interface{})["message"].(map[string]interface{})
	assert.Equal(t, "compressed reply", message["content"])
	assert.Equal(t, "msg_2", body["id"])
}

func TestRouterNonJSONPassthrough(t *testing.T) {
	var received []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	server := gateway(t)
	config := `{"basic_moderation":{"enabled":true},"format_transform":{"enabled":true}}`

	response, body := post(t, server, config, upstream.URL+"/anything", "plain text payload")
	assert.Equal(t, 200, response.StatusCode)
	assert.Equal(t, "plain text payload", string(received))
	assert.Equal(t, true, body["ok"])
}

func TestRouterStreamEmpty(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer upstream.Close()

	server := gateway(t)
	response, body := post(t, server, `{}`, upstream.URL+"/v1/chat/completions",
		`{"model":"x","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	assert.Equal(t, 502, response.StatusCode)
	assert.Equal(t, ErrStreamEmpty, errorCode(body))
}

func TestRouterStreamPassthrough(t *testing.T) {
	frames := "data: {\"choices\":[{\"delta\":{\"content\":\"hello\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n" +
		"data: [DONE]\n\n"

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(frames))
	}))
	defer upstream.Close()

	server := gateway(t)
	target := server.URL + "/" + url.QueryEscape(`{}`) + "$" + upstream.URL + "/v1/chat/completions"
	response, err := http.Post(target, "application/json", bytes.NewReader([]byte(`{"stream":true}`)))
	assert.Nil(t, err)
	defer response.Body.Close()

	assert.Equal(t, 200, response.StatusCode)
	assert.Contains(t, response.Header.Get("Content-Type"), "text/event-stream")

	payload, err := io.ReadAll(response.Body)
	assert.Nil(t, err)
	assert.Equal(t, frames, string(payload))
}

func TestRouterUpstreamError(t *testing.T) {
	server := gateway(t)

	// nothing listens on this port
	response, body := post(t, server, `{}`, "http://127.0.0.1:1/v1", `{}`)
	assert.Equal(t, 502, response.StatusCode)
	assert.Equal(t, ErrUpstream, errorCode(body))
}
