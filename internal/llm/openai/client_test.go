package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
	"github.com/joseph-ayodele/procurement-extractor/internal/llm"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "  [{\"software\":\"Canvas\"}]\n"}
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		APIKey:    "test-key",
		BaseURL:   srv.URL + "/v1/",
		Model:     "gpt-4o",
		MaxTokens: 4000,
		Timeout:   5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c, &calls
}

func TestComplete_SendsPromptAndImage(t *testing.T) {
	var body map[string]any
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})

	out, err := c.Complete(context.Background(), llm.CompletionRequest{
		Prompt: "extract software",
		PNG:    []byte{0x89, 'P', 'N', 'G'},
	})

	require.NoError(t, err)
	assert.Equal(t, `[{"software":"Canvas"}]`, out)
	assert.Equal(t, 1, *calls)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.EqualValues(t, 4000, body["max_tokens"])
	assert.EqualValues(t, 0, body["temperature"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	content := msg["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "extract software", content[0].(map[string]any)["text"])
	img := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.True(t, strings.HasPrefix(img["url"].(string), "data:image/png;base64,"))
}

func TestComplete_ServerErrorIsTransport(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	})

	_, err := c.Complete(context.Background(), llm.CompletionRequest{Prompt: "p", PNG: []byte{1}})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Equal(t, 1, *calls, "sdk retries must be disabled")
}

func TestComplete_NoChoicesIsMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`)
	})

	_, err := c.Complete(context.Background(), llm.CompletionRequest{Prompt: "p", PNG: []byte{1}})

	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(common.DefaultConfig().LLM)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.EqualValues(t, 4000, cfg.MaxTokens)
	assert.Equal(t, time.Hour, cfg.Timeout)
}
