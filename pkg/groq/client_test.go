package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsWireContract(t *testing.T) {
	var captured ChatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gemma2-9b-it")

	content, err := client.Complete(context.Background(), []ChatMessage{
		{Role: "system", Content: "You are a business analyst expert."},
		{Role: "user", Content: "Generate scenarios."},
	}, 4096, 0.7)
	require.NoError(t, err)

	assert.Equal(t, "hello", content)
	assert.Equal(t, "gemma2-9b-it", captured.Model)
	assert.Equal(t, 4096, captured.MaxTokens)
	assert.InDelta(t, 0.7, captured.Temperature, 0.001)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
}

func TestCompleteErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": "rate_limit", "message": "Rate limit reached", "type": "requests"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gemma2-9b-it")

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 100, 0.7)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Rate limit reached")
}

func TestCompleteNonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gemma2-9b-it")

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 100, 0.7)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream unavailable")
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "cmpl-2", "choices": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gemma2-9b-it")

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 100, 0.7)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "invalid response structure")
}

func TestCompleteMalformedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gemma2-9b-it")

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 100, 0.7)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "invalid response structure")
}

func TestCompleteMissingAPIKey(t *testing.T) {
	client := NewClient("http://localhost:0", "", "gemma2-9b-it")

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 100, 0.7)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "API key is not configured")
}

func TestCompleteTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from now on

	client := NewClient(server.URL, "test-key", "gemma2-9b-it")

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 100, 0.7)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.NotNil(t, apiErr.Unwrap())
}
