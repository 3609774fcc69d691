package gemini

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
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	providerName = "gemini"
)

// Client implements port.ChunkExtractor using Google's Gemini API.
type Client struct {
	apiKey      string
	model       string
	temperature float64
	endpoint    string
	client      *http.Client
	log         *zap.Logger
}

// NewClient creates a Gemini-based chunk extractor.
func NewClient(cfg *config.ProviderEndpointConfig, log *zap.Logger) *Client {
	return newClient(cfg, "", log)
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ProviderEndpointConfig, endpoint string, log *zap.Logger) *Client {
	return newClient(cfg, endpoint, log)
}

func newClient(cfg *config.ProviderEndpointConfig, endpoint string, log *zap.Logger) *Client {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.5-flash"
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
	endpoint := c.endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      temperature,
			"responseMimeType": "application/json",
			"maxOutputTokens":  16384,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

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

	text, err := candidateText(respBody)
	if err != nil {
		return nil, string(respBody), err
	}

	rows, err := extractor.ParseRows(providerName, text, input.Chunk, c.log)
	return rows, text, err
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func candidateText(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &extractor.InvalidResponseError{Provider: providerName, Err: fmt.Errorf("unmarshaling response: %w", err)}
	}
	if len(resp.Candidates) == 0 {
		return "", &extractor.InvalidResponseError{Provider: providerName, Err: fmt.Errorf("empty response: no candidates")}
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &extractor.InvalidResponseError{Provider: providerName, Err: fmt.Errorf("empty response: no parts")}
	}
	if resp.Candidates[0].FinishReason == "MAX_TOKENS" {
		return "", &extractor.InvalidResponseError{Provider: providerName, Err: fmt.Errorf("output truncated (finishReason: MAX_TOKENS)")}
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
