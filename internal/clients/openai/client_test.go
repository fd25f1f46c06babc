package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(config.OpenAIClientConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1/"}, "qwen2vl", server.Client())
	require.NoError(t, err)
	return client
}

func TestComplete_RequestShape(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  The answer is C.  "}}]}`))
	})

	text, err := client.Complete(context.Background(), models.ChatRequest{
		SystemPrompt: "You are a helpful assistant.",
		Images:       []string{"data:image/jpeg;base64,AAA", "data:image/jpeg;base64,BBB"},
		Text:         "question",
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer is C.", text)

	assert.Equal(t, "qwen2vl", captured["model"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "You are a helpful assistant.", system["content"])

	user := messages[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	parts := user["content"].([]any)
	require.Len(t, parts, 3)
	first := parts[0].(map[string]any)
	assert.Equal(t, "image_url", first["type"])
	assert.Equal(t, "data:image/jpeg;base64,AAA", first["image_url"].(map[string]any)["url"])
	last := parts[2].(map[string]any)
	assert.Equal(t, "text", last["type"])
	assert.Equal(t, "question", last["text"])
}

func TestComplete_ErrorStatus(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Complete(context.Background(), models.ChatRequest{Text: "q"})
	assert.ErrorIs(t, err, models.ErrModelCall)
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_EmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := client.Complete(context.Background(), models.ChatRequest{Text: "q"})
	assert.ErrorIs(t, err, models.ErrEmptyResponse)
}

func TestComplete_NullContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":null}}]}`))
	})
	_, err := client.Complete(context.Background(), models.ChatRequest{Text: "q"})
	assert.ErrorIs(t, err, models.ErrEmptyResponse)
}

func TestComplete_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	_, err := client.Complete(context.Background(), models.ChatRequest{Text: "q"})
	assert.ErrorIs(t, err, models.ErrModelCall)
}

func TestComplete_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, models.ChatRequest{Text: "q"})
	assert.ErrorIs(t, err, models.ErrModelCall)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(config.OpenAIClientConfig{BaseURL: "http://x"}, "", nil)
	assert.Error(t, err)
	_, err = NewClient(config.OpenAIClientConfig{}, "m", nil)
	assert.Error(t, err)
}
