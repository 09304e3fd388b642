package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduops/class-review-api/pkg/config"
)

func TestClientGenerate(t *testing.T) {
	var captured struct {
		auth    string
		request chatRequest
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.request))
		assert.Equal(t, "/chat/completions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": `{"summary":"fine"}`}},
			},
			"usage": map[string]int{"total_tokens": 321},
		})
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{BaseURL: server.URL, APIKey: "secret", Model: "chat-model", Timeout: time.Second})

	result, err := client.Generate(context.Background(), "system prompt", "user prompt", GenerateOptions{Temperature: 0.2, MaxTokens: 512})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"fine"}`, result.Result)
	assert.Equal(t, 321, result.TokensUsed)

	assert.Equal(t, "Bearer secret", captured.auth)
	assert.Equal(t, "chat-model", captured.request.Model)
	require.Len(t, captured.request.Messages, 2)
	assert.Equal(t, "system", captured.request.Messages[0].Role)
	assert.Equal(t, "user prompt", captured.request.Messages[1].Content)
}

func TestClientGenerateNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{BaseURL: server.URL, Timeout: time.Second})

	_, err := client.Generate(context.Background(), "s", "u", GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClientGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{BaseURL: server.URL, Timeout: time.Second})

	_, err := client.Generate(context.Background(), "s", "u", GenerateOptions{})
	require.Error(t, err)
}

func TestClientGenerateHonorsContextCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(config.LLMConfig{BaseURL: server.URL, Timeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "s", "u", GenerateOptions{})
	require.Error(t, err)
}
