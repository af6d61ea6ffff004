package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/form-copilot/internal/provider"
)

const completionResponse = `{
	"id": "cmpl-1",
	"object": "chat.completion",
	"created": 1,
	"model": "pixtral-12b-2409",
	"choices": [
		{"index": 0, "message": {"role": "assistant", "content": "{\"1\": \"First Name\"}"}, "finish_reason": "stop"}
	],
	"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

func newTestServer(t *testing.T, status int, body string, captured *map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		if captured != nil {
			require.NoError(t, json.Unmarshal(data, captured))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestCompleter_Complete(t *testing.T) {
	var req map[string]any
	srv := newTestServer(t, http.StatusOK, completionResponse, &req)

	c, err := NewCompleter(srv.URL+"/v1", "default-model", WithToken("test-key"))
	require.NoError(t, err)

	completion, err := c.Complete(context.Background(), []provider.Message{
		provider.SystemMessage("label the fields"),
		provider.UserMessage(
			provider.TextContent("which labels?"),
			provider.ImageURLContent("data:image/jpeg;base64,QUJD"),
		),
	}, &provider.CompleteOptions{
		Model:  "pixtral-12b-2409",
		Format: provider.CompletionFormatJSON,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"1": "First Name"}`, completion.Text())
	assert.Equal(t, provider.CompletionReasonStop, completion.Reason)
	assert.Equal(t, 12, completion.Usage.InputTokens)

	assert.Equal(t, "pixtral-12b-2409", req["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])

	messages, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)

	user := messages[1].(map[string]any)
	parts, ok := user["content"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[1].(map[string]any)["type"])
}

func TestCompleter_DefaultModel(t *testing.T) {
	var req map[string]any
	srv := newTestServer(t, http.StatusOK, completionResponse, &req)

	c, err := NewCompleter(srv.URL+"/v1/", "mistral-small-2506", WithToken("test-key"))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), []provider.Message{
		provider.UserMessage(provider.TextContent("hello")),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "mistral-small-2506", req["model"])
	assert.Nil(t, req["response_format"])
}

func TestCompleter_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := newTestServer(t, http.StatusUnauthorized, `{"error": {"message": "bad key"}}`, nil)
		c, err := NewCompleter(srv.URL+"/v1", "m", WithToken("test-key"))
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), []provider.Message{
			provider.UserMessage(provider.TextContent("hello")),
		}, nil)
		assert.Error(t, err)
	})

	t.Run("no model", func(t *testing.T) {
		c, err := NewCompleter("http://127.0.0.1:1/v1", "", WithToken("test-key"))
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), []provider.Message{
			provider.UserMessage(provider.TextContent("hello")),
		}, nil)
		assert.ErrorContains(t, err, "no model")
	})

	t.Run("empty user message", func(t *testing.T) {
		c, err := NewCompleter("http://127.0.0.1:1/v1", "m", WithToken("test-key"))
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), []provider.Message{provider.UserMessage()}, nil)
		assert.ErrorContains(t, err, "empty user message")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := newTestServer(t, http.StatusOK, `{"id": "x", "object": "chat.completion", "model": "m", "choices": []}`, nil)
		c, err := NewCompleter(srv.URL+"/v1", "m", WithToken("test-key"))
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), []provider.Message{
			provider.UserMessage(provider.TextContent("hello")),
		}, nil)
		assert.ErrorContains(t, err, "no choices")
	})
}
