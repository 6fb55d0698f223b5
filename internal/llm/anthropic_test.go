package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// messagesRequest is the subset of a Messages API request the tests inspect.
type messagesRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

// replyJSON answers with a JSON body and the given status.
func replyJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestAnthropicClient_GenerateContent(t *testing.T) {
	var got messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		replyJSON(w, http.StatusOK, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5-20251001",`+
			`"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}],"stop_reason":"end_turn"}`)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(DefaultAnthropicConfig(), "test-key", server.URL)
	require.NoError(t, err)

	text, err := client.GenerateContent(context.Background(), "Say hi", TierLite)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
	assert.Equal(t, "claude-haiku-4-5-20251001", got.Model)
	assert.Equal(t, 1024, got.MaxTokens)
	assert.Empty(t, got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 1)
	assert.Equal(t, "Say hi", got.Messages[0].Content[0].Text)
}

func TestAnthropicClient_GenerateJSONStripsFences(t *testing.T) {
	var got messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		replyJSON(w, http.StatusOK, `{"content":[{"type":"text","text":"`+"```json\\n[{\\\"id\\\":1}]\\n```"+`"}]}`)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(nil, "k", server.URL)
	require.NoError(t, err)

	text, err := client.GenerateJSON(context.Background(), "rank", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, text)
	require.Len(t, got.System, 1)
	assert.Contains(t, got.System[0].Text, "JSON only")
}

// fastRetry shortens the retry backoff for the duration of a test.
func fastRetry(t *testing.T) {
	t.Helper()
	prev := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = prev })
}

func TestAnthropicClient_APIError(t *testing.T) {
	fastRetry(t)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		replyJSON(w, http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(nil, "k", server.URL)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), "hi", TierLite)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate_limit_error", apiErr.Type)
	assert.Contains(t, err.Error(), "slow down")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnthropicClient_RetriesOverload(t *testing.T) {
	fastRetry(t)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			replyJSON(w, 529, `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`)
			return
		}
		replyJSON(w, http.StatusOK, `{"content":[{"type":"text","text":"Dear Contoso team"}]}`)
	}))
	defer server.Close()

	config := DefaultAnthropicConfig()
	config.Retries = 2
	client, err := NewAnthropicClient(config, "k", server.URL)
	require.NoError(t, err)

	text, err := client.GenerateContent(context.Background(), "cover letter", TierAdvanced)
	require.NoError(t, err)
	assert.Equal(t, "Dear Contoso team", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnthropicClient_BadRequestNotRetried(t *testing.T) {
	fastRetry(t)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		replyJSON(w, http.StatusBadRequest, `{"type":"error","error":{"type":"invalid_request_error","message":"prompt too long"}}`)
	}))
	defer server.Close()

	config := DefaultAnthropicConfig()
	config.Retries = 2
	client, err := NewAnthropicClient(config, "k", server.URL)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), "hi", TierLite)
	assert.ErrorContains(t, err, "prompt too long")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnthropicClient_NonJSONError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(nil, "k", server.URL)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), "hi", TierLite)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.True(t, Retryable(err))
	assert.Equal(t, int32(1), calls.Load(), "the SDK must not retry on its own")
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		replyJSON(w, http.StatusOK, `{"content":[],"stop_reason":"max_tokens"}`)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(nil, "k", server.URL)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), "hi", TierLite)
	assert.ErrorContains(t, err, "max_tokens")
}

func TestNewAnthropicClient_RequiresKey(t *testing.T) {
	_, err := NewAnthropicClient(nil, "", "")
	assert.Error(t, err)
}

func TestNewClient_SelectsProvider(t *testing.T) {
	client, err := NewClient(context.Background(), DefaultAnthropicConfig(), "k")
	require.NoError(t, err)
	_, ok := client.(*AnthropicClient)
	assert.True(t, ok)
	assert.NoError(t, client.Close())
}

func TestNewClient_MissingKeyReturnsNil(t *testing.T) {
	for _, cfg := range []*Config{DefaultAnthropicConfig(), DefaultGeminiConfig()} {
		client, err := NewClient(context.Background(), cfg, "")
		assert.Error(t, err)
		assert.True(t, client == nil, string(cfg.Provider))
	}
}
