package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pcax/internal/config"
	"pcax/internal/domain"
	"pcax/internal/extractor"
	"pcax/internal/port"
)

const (
	apiURL       = "https://api.openai.com/v1/chat/completions"
	providerName = "openai"

	systemPrompt = "You are a careful, JSON-only extraction assistant for environmental due-diligence."
)

// Client implements port.ChunkExtractor using the OpenAI Chat Completions API.
type Client struct {
	apiKey      string
	model       string
	temperature float64
	endpoint    string
	client      *http.Client
	log         *zap.Logger
}

// NewClient creates an OpenAI-based chunk extractor.
func NewClient(cfg *config.ProviderEndpointConfig, log *zap.Logger) *Client {
	return newClient(cfg, apiURL, log)
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ProviderEndpointConfig, endpoint string, log *zap.Logger) *Client {
	return newClient(cfg, endpoint, log)
}

func newClient(cfg *config.ProviderEndpointConfig, endpoint string, log *zap.Logger) *Client {
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		endpoint:    endpoint,
		client:      &http.Client{Timeout: timeout},
		log:         log,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) Extract(ctx context.Context, input port.ExtractInput) ([]domain.ExtractedRow, string, error) {
	prompt := extractor.BuildChunkPrompt(input)

	model := c.model
	if input.Model != "" {
		model = input.Model
	}
	temperature := c.temperature
	if input.Temperature != nil {
		temperature = *input.Temperature
	}
	apiKey := c.apiKey
	if input.APIKey != "" {
		apiKey = input.APIKey
	}

	reqBody := map[string]interface{}{
		"model":           model,
		"temperature":     temperature,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", &extractor.NetworkError{Provider: providerName, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &extractor.NetworkError{Provider: providerName, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, string(respBody), extractor.ClassifyStatus(providerName, resp.StatusCode, string(respBody), resp.Header.Get("Retry-After"))
	}

	text, err := messageContent(respBody)
	if err != nil {
		return nil, string(respBody), err
	}

	rows, err := extractor.ParseRows(providerName, text, input.Chunk, c.log)
	return rows, text, err
}

// apiResponse models the Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func messageContent(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &extractor.InvalidResponseError{Provider: providerName, Err: fmt.Errorf("unmarshaling response: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return "", &extractor.InvalidResponseError{Provider: providerName, Err: fmt.Errorf("empty response: no choices")}
	}
	if resp.Choices[0].FinishReason == "length" {
		return "", &extractor.InvalidResponseError{Provider: providerName, Err: fmt.Errorf("output truncated (finish_reason: length)")}
	}
	return resp.Choices[0].Message.Content, nil
}
