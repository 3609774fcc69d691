package extractor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pcax/internal/config"
	"pcax/internal/extractor"
	"pcax/internal/extractor/gemini"
	"pcax/internal/port"
)

func geminiPayload(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]string{{"text": text}},
			},
			"finishReason": "STOP",
		}},
	})
	return string(body)
}

func geminiTestClient(t *testing.T, handler http.HandlerFunc) *gemini.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := &config.ProviderEndpointConfig{APIKey: "test-key", Temperature: 0.1}
	return gemini.NewClientWithEndpoint(cfg, server.URL, zap.NewNop())
}

func TestGeminiClient_ExtractSuccess(t *testing.T) {
	var gotAPIKey string
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiPayload(`{"rows": [{"address": "1 Main St", "pca_name": "Gas Station", "description_timeline": "USTs"}]}`)))
	})

	rows, raw, err := client.Extract(context.Background(), port.ExtractInput{Chunk: testChunk, Prompt: "Extract PCAs."})
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.NotEmpty(t, raw)
	require.Len(t, rows, 1)
	assert.Equal(t, "1 Main St", rows[0].Address)
}

func TestGeminiClient_PerJobOverrides(t *testing.T) {
	var gotAPIKey string
	var gotTemp float64
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-goog-api-key")
		var req struct {
			GenerationConfig struct {
				Temperature float64 `json:"temperature"`
			} `json:"generationConfig"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotTemp = req.GenerationConfig.Temperature
		_, _ = w.Write([]byte(geminiPayload(`{"rows": []}`)))
	})

	temp := 0.9
	_, _, err := client.Extract(context.Background(), port.ExtractInput{
		Chunk:       testChunk,
		Prompt:      "Extract PCAs.",
		Temperature: &temp,
		APIKey:      "per-job-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "per-job-key", gotAPIKey)
	assert.Equal(t, 0.9, gotTemp)
}

func TestGeminiClient_RateLimitedWithRetryAfter(t *testing.T) {
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "quota exceeded"}`))
	})

	_, _, err := client.Extract(context.Background(), port.ExtractInput{Chunk: testChunk, Prompt: "p"})
	var rlErr *extractor.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, float64(7), rlErr.RetryAfter.Seconds())
}

func TestGeminiClient_AuthFailure(t *testing.T) {
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "API key not valid"}`))
	})

	_, _, err := client.Extract(context.Background(), port.ExtractInput{Chunk: testChunk, Prompt: "p"})
	var authErr *extractor.AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestGeminiClient_ServerErrorIsNetwork(t *testing.T) {
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _, err := client.Extract(context.Background(), port.ExtractInput{Chunk: testChunk, Prompt: "p"})
	var netErr *extractor.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestGeminiClient_TruncatedOutputIsInvalid(t *testing.T) {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"parts": []map[string]string{{"text": `{"rows": [`}}},
			"finishReason": "MAX_TOKENS",
		}},
	})
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	})

	_, raw, err := client.Extract(context.Background(), port.ExtractInput{Chunk: testChunk, Prompt: "p"})
	var invErr *extractor.InvalidResponseError
	require.True(t, errors.As(err, &invErr))
	assert.NotEmpty(t, raw)
}

func TestGeminiClient_StrictRetryChangesPrompt(t *testing.T) {
	var prompts []string
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompts = append(prompts, req.Contents[0].Parts[0].Text)
		_, _ = w.Write([]byte(geminiPayload(`{"rows": []}`)))
	})

	_, _, err := client.Extract(context.Background(), port.ExtractInput{Chunk: testChunk, Prompt: "p"})
	require.NoError(t, err)
	_, _, err = client.Extract(context.Background(), port.ExtractInput{Chunk: testChunk, Prompt: "p", Strict: true})
	require.NoError(t, err)

	require.Len(t, prompts, 2)
	assert.NotEqual(t, prompts[0], prompts[1])
	assert.Contains(t, prompts[1], "ONLY a valid JSON object")
}
