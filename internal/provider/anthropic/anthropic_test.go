package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/scoutchat/internal/provider"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete_SendsMessagesRequest(t *testing.T) {
	var got map[string]any
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "What do you notice?"}],
			"usage": {"input_tokens": 120, "output_tokens": 8}
		}`))
	})

	p := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	resp, err := p.Complete(context.Background(), provider.Request{
		System: "be helpful",
		Messages: []provider.Message{
			provider.TextMessage(provider.RoleUser, "hi"),
			{Role: provider.RoleUser, Content: []provider.ContentBlock{
				provider.TextBlock("look"),
				provider.ImageBlock("image/png", "AAAA"),
			}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "What do you notice?", resp.Content)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 8, resp.OutputTokens)
	assert.True(t, resp.UsageReported)

	assert.Equal(t, DefaultModel, got["model"])
	assert.EqualValues(t, DefaultMaxTokens, got["max_tokens"])
	assert.Equal(t, "be helpful", got["system"])

	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi", messages[0].(map[string]any)["content"])

	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)
	assert.Equal(t, "image", image["type"])
	assert.Equal(t, "image/png", image["source"].(map[string]any)["media_type"])
}

func TestComplete_MissingUsage(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": [{"type": "text", "text": "Hmm?"}]}`))
	})

	resp, err := New(Config{APIKey: "k", BaseURL: srv.URL}).Complete(context.Background(), provider.Request{
		Messages: []provider.Message{provider.TextMessage(provider.RoleUser, "hi")},
	})
	require.NoError(t, err)
	assert.False(t, resp.UsageReported)
	assert.Zero(t, resp.InputTokens)
	assert.Zero(t, resp.OutputTokens)
}

func TestComplete_NotConfigured(t *testing.T) {
	p := New(Config{})
	assert.False(t, p.IsConfigured())

	_, err := p.Complete(context.Background(), provider.Request{})
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestComplete_APIError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	})

	_, err := New(Config{APIKey: "bad", BaseURL: srv.URL}).Complete(context.Background(), provider.Request{
		Messages: []provider.Message{provider.TextMessage(provider.RoleUser, "hi")},
	})

	var apiErr *provider.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid x-api-key", apiErr.Message)
}

func TestComplete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	p := New(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := p.Complete(context.Background(), provider.Request{
		Messages: []provider.Message{provider.TextMessage(provider.RoleUser, "hi")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestComplete_EmptyContent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": []}`))
	})

	_, err := New(Config{APIKey: "k", BaseURL: srv.URL}).Complete(context.Background(), provider.Request{
		Messages: []provider.Message{provider.TextMessage(provider.RoleUser, "hi")},
	})
	assert.Error(t, err)
}
