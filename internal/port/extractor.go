package port

import (
	"context"

	"pcax/internal/domain"
)

// ExtractInput carries one chunk and the prompt to send to the provider.
type ExtractInput struct {
	Chunk  domain.Chunk
	Prompt string
	// Strict appends a reformatting instruction after a malformed response.
	Strict bool

	// Per-job overrides. Zero values fall back to the client's configured
	// model, temperature, and credentials.
	Model       string
	Temperature *float64
	APIKey      string
}

// ChunkExtractor abstracts a single structured-extraction call to an LLM
// provider. Implementations classify failures with the typed errors in
// internal/extractor. The raw model text is returned alongside the parsed
// rows (and on parse failures) so callers can persist it for debugging.
type ChunkExtractor interface {
	Extract(ctx context.Context, input ExtractInput) (rows []domain.ExtractedRow, raw string, err error)
}
