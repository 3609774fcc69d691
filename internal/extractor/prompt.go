package extractor

import (
	"fmt"

	"pcax/internal/port"
)

// strictSuffix is appended when retrying after a malformed response.
const strictSuffix = "\n\nIMPORTANT: Your previous answer was not valid JSON. " +
	"Return ONLY a valid JSON object of the form {\"rows\": [...]} with no " +
	"commentary, no markdown fences, and no trailing text."

// BuildChunkPrompt assembles the full prompt for one chunk: the opaque
// template content followed by the page-tagged document text.
func BuildChunkPrompt(input port.ExtractInput) string {
	prompt := fmt.Sprintf("%s\n\n## Document Text (Pages %d-%d)\n\n%s",
		input.Prompt, input.Chunk.StartPage, input.Chunk.EndPage, input.Chunk.Text)
	if input.Strict {
		prompt += strictSuffix
	}
	return prompt
}
