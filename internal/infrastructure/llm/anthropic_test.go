package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func writeMessage(w http.ResponseWriter, content []map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":          "msg_test_001",
		"type":        "message",
		"role":        "assistant",
		"content":     content,
		"model":       DefaultModel,
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":  12,
			"output_tokens": 7,
		},
	})
}

func newTestGenerator(baseURL string) *AnthropicGenerator {
	return NewAnthropicGenerator(Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		MaxRetries: 0,
	})
}

func TestGenerate_ReturnsText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, DefaultModel, req["model"])
		assert.EqualValues(t, 4096, req["max_tokens"])
		assert.Contains(t, string(body), "Describe sugar")

		writeMessage(w, []map[string]any{
			{"type": "text", "text": "<ingredients>"},
			{"type": "text", "text": "</ingredients>"},
		})
	}))
	defer ts.Close()

	gen := newTestGenerator(ts.URL)
	out, err := gen.Generate(context.Background(), "Describe sugar", 4096)

	require.NoError(t, err)
	assert.Equal(t, "<ingredients></ingredients>", out)
}

func TestGenerate_EmptyReply(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, []map[string]any{})
	}))
	defer ts.Close()

	gen := newTestGenerator(ts.URL)
	_, err := gen.Generate(context.Background(), "hello", 16)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty reply")
}

func TestGenerate_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"type": "error",
			"error": map[string]any{
				"type":    "invalid_request_error",
				"message": "max_tokens too large",
			},
		})
	}))
	defer ts.Close()

	gen := newTestGenerator(ts.URL)
	out, err := gen.Generate(context.Background(), "hello", 1_000_000)

	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "anthropic: create message")
}

func TestNewAnthropicGenerator_DefaultModel(t *testing.T) {
	gen := NewAnthropicGenerator(Config{APIKey: "k"})
	assert.Equal(t, DefaultModel, gen.Model())

	gen = NewAnthropicGenerator(Config{APIKey: "k", Model: "claude-sonnet-4-5-20250929"})
	assert.Equal(t, "claude-sonnet-4-5-20250929", gen.Model())
}
