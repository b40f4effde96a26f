package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalScanner/internal/config"
	"SignalScanner/internal/domain"
)

func completionWith(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func newTestClient(endpoint string) *ChatGPTClient {
	return NewChatGPTClient(config.ChatGPTConfig{
		Endpoint: endpoint,
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
	})
}

func TestGenerateTopics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0]["role"])

		w.Write([]byte(completionWith(`[
			{"title":"Sparse attention in practice","summary":"s1","category":"research"},
			{"title":"","summary":"dropped"},
			{"title":"Serving costs","summary":"s2"}
		]`)))
	}))
	defer srv.Close()

	topics, err := newTestClient(srv.URL).GenerateTopics(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Sparse attention in practice", topics[0].Title)
	assert.Equal(t, "research", topics[0].Category)
}

func TestGenerateTopicsStripsFences(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(completionWith("```json\n[{\"title\":\"Fenced\",\"summary\":\"s\"}]\n```")))
	}))
	defer srv.Close()

	topics, err := newTestClient(srv.URL).GenerateTopics(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Fenced", topics[0].Title)
}

func TestGenerateTopicsTruncatesToRequested(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(completionWith(`[
			{"title":"a","summary":"1"},{"title":"b","summary":"2"},{"title":"c","summary":"3"}
		]`)))
	}))
	defer srv.Close()

	topics, err := newTestClient(srv.URL).GenerateTopics(context.Background(), 2)

	require.NoError(t, err)
	assert.Len(t, topics, 2)
}

func TestGenerateSupplementary(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(completionWith(`["first paragraph", "", "second paragraph"]`)))
	}))
	defer srv.Close()

	bodies, err := newTestClient(srv.URL).GenerateSupplementary(context.Background(),
		domain.Topic{Title: "Serving costs", Summary: "s"})

	require.NoError(t, err)
	assert.Equal(t, []string{"first paragraph", "second paragraph"}, bodies)
}

func TestGenerateTopicsAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateTopics(context.Background(), 3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestMisconfiguredClient(t *testing.T) {
	t.Parallel()

	c := NewChatGPTClient(config.ChatGPTConfig{Endpoint: "https://api.openai.com/v1/chat/completions"})

	_, err := c.GenerateTopics(context.Background(), 3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "misconfigured")
}
