package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substifinder/backend/internal/domain"
)

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key", "https://api.example.com", "gpt-4o", 0, nil)

	assert.NotNil(t, client)
	assert.Equal(t, "test-api-key", client.apiKey)
	assert.Equal(t, "https://api.example.com", client.baseURL)
	assert.Equal(t, "gpt-4o", client.model)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Queijo Ralado Parmesão 50g")
		assert.Contains(t, req.Messages[1].Content, "R$ 10,99")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"queijo ralado parmesão 50g\nqueijo ralado parmesão\nqueijo parmesão\nqueijo ralado\nqueijo"}}]}`))
	}))
	defer server.Close()

	client := NewClient("test-api-key", server.URL, "gpt-4o", 5*time.Second, nil)

	content, err := client.Complete(context.Background(), "Queijo Ralado Parmesão 50g", "10,99")
	require.NoError(t, err)
	assert.Contains(t, content, "queijo ralado parmesão 50g")
}

func TestComplete_OmitsPriceLineWhenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotContains(t, req.Messages[1].Content, "Preço")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"a\nb\nc\nd\ne"}}]}`))
	}))
	defer server.Close()

	client := NewClient("k", server.URL, "gpt-4o", 5*time.Second, nil)
	_, err := client.Complete(context.Background(), "Leite Integral 1L", "")
	require.NoError(t, err)
}

func TestComplete_RetriesOnServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"termo"}}]}`))
	}))
	defer server.Close()

	client := NewClient("k", server.URL, "gpt-4o", 5*time.Second, nil)
	content, err := client.Complete(context.Background(), "produto", "")
	require.NoError(t, err)
	assert.Equal(t, "termo", content)
	assert.Equal(t, 3, calls)
}

func TestComplete_NoBackoffAfterFinalAttempt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("k", server.URL, "gpt-4o", 5*time.Second, nil)

	start := time.Now()
	_, err := client.Complete(context.Background(), "produto", "")
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, domain.ErrTermService)
	assert.Equal(t, 3, calls)
	// Two inter-attempt backoffs (500ms + 1s); the 2s third backoff must
	// not run once the error is final.
	assert.Less(t, elapsed, 3*time.Second)
}

func TestComplete_FailsFastOnClientError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-key", server.URL, "gpt-4o", 5*time.Second, nil)
	_, err := client.Complete(context.Background(), "produto", "")
	assert.ErrorIs(t, err, domain.ErrTermService)
	assert.Equal(t, 1, calls)
}

func TestComplete_ErrorOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient("k", server.URL, "gpt-4o", 5*time.Second, nil)
	_, err := client.Complete(context.Background(), "produto", "")
	assert.ErrorIs(t, err, domain.ErrTermService)
}
